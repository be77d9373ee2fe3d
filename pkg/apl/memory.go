// pkg/apl/memory.go
package apl

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"holiapp/pkg/logger"
)

// MemoryAPL keeps records in process memory. Suitable for tests and
// single-process development; everything is lost on restart.
type MemoryAPL struct {
	log   *zap.SugaredLogger
	mu    sync.RWMutex
	byURL map[string]AuthData
}

func NewMemoryAPL(log *zap.SugaredLogger, seed ...AuthData) *MemoryAPL {
	m := &MemoryAPL{log: logger.OrNop(log), byURL: map[string]AuthData{}}
	for _, a := range seed {
		if a.Valid() {
			m.byURL[a.APIURL] = a
		}
	}
	return m
}

func (m *MemoryAPL) Get(ctx context.Context, apiURL string) (*AuthData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.byURL[apiURL]; ok {
		return validOrNil(&a), nil
	}
	return nil, nil
}

func (m *MemoryAPL) Set(ctx context.Context, data AuthData) error {
	if !data.Valid() {
		return ErrInvalidAuthData
	}
	m.mu.Lock()
	m.byURL[data.APIURL] = data
	m.mu.Unlock()
	m.log.Debugw("memory apl: stored", "apiUrl", data.APIURL)
	return nil
}

func (m *MemoryAPL) Delete(ctx context.Context, apiURL string) error {
	m.mu.Lock()
	delete(m.byURL, apiURL)
	m.mu.Unlock()
	return nil
}

func (m *MemoryAPL) GetAll(ctx context.Context) ([]AuthData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuthData, 0, len(m.byURL))
	for _, a := range m.byURL {
		out = append(out, a)
	}
	return filterValid(out), nil
}

func (m *MemoryAPL) IsReady(ctx context.Context) Readiness { return ready() }

func (m *MemoryAPL) IsConfigured(ctx context.Context) Configuration { return configured() }
