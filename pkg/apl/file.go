// pkg/apl/file.go
package apl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"holiapp/pkg/logger"
)

// FileAPL persists records as a JSON array in a local file. The file is
// re-read on every call so edits made by hand are picked up.
type FileAPL struct {
	path string
	log  *zap.SugaredLogger
	mu   sync.Mutex
}

func NewFileAPL(path string, log *zap.SugaredLogger) *FileAPL {
	return &FileAPL{path: path, log: logger.OrNop(log)}
}

func (f *FileAPL) load() ([]AuthData, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file apl: read %s: %w", f.path, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, nil
	}
	var out []AuthData
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("file apl: decode %s: %w", f.path, err)
	}
	return out, nil
}

func (f *FileAPL) store(all []AuthData) error {
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("file apl: mkdir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("file apl: write: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileAPL) Get(ctx context.Context, apiURL string) (*AuthData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].APIURL == apiURL {
			return validOrNil(&all[i]), nil
		}
	}
	return nil, nil
}

func (f *FileAPL) Set(ctx context.Context, data AuthData) error {
	if !data.Valid() {
		return ErrInvalidAuthData
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].APIURL == data.APIURL {
			all[i] = data
			replaced = true
		}
	}
	if !replaced {
		all = append(all, data)
	}
	if err := f.store(all); err != nil {
		return err
	}
	f.log.Debugw("file apl: stored", "apiUrl", data.APIURL, "path", f.path)
	return nil
}

func (f *FileAPL) Delete(ctx context.Context, apiURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, a := range all {
		if a.APIURL != apiURL {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(all) {
		return nil
	}
	return f.store(kept)
}

func (f *FileAPL) GetAll(ctx context.Context) ([]AuthData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return nil, err
	}
	return filterValid(all), nil
}

func (f *FileAPL) IsReady(ctx context.Context) Readiness {
	return readinessFrom(f.IsConfigured(ctx))
}

func (f *FileAPL) IsConfigured(ctx context.Context) Configuration {
	if strings.TrimSpace(f.path) == "" {
		return notConfigured(fmt.Errorf("%w: file path is empty", ErrNotConfigured))
	}
	return configured()
}
