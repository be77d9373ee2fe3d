// pkg/apl/env.go
package apl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"holiapp/pkg/logger"
)

// EnvAPL serves a single tenant whose credentials come from the environment.
// It cannot persist anything: Set only prints the received data (when
// enabled) so an operator can copy it into the environment.
type EnvAPL struct {
	data       AuthData
	printOnSet bool
	log        *zap.SugaredLogger
}

func NewEnvAPL(data AuthData, printOnSet bool, log *zap.SugaredLogger) *EnvAPL {
	return &EnvAPL{data: data, printOnSet: printOnSet, log: logger.OrNop(log)}
}

func (e *EnvAPL) Get(ctx context.Context, apiURL string) (*AuthData, error) {
	if !e.data.Valid() || e.data.APIURL != apiURL {
		return nil, nil
	}
	d := e.data
	return &d, nil
}

func (e *EnvAPL) Set(ctx context.Context, data AuthData) error {
	if !e.printOnSet {
		e.log.Warnw("env apl: set called but printing is disabled, data is dropped", "apiUrl", data.APIURL)
		return nil
	}
	// Operator facing output; the token is intentionally included.
	fmt.Printf("HOLIPOLY_API_URL=%s\nHOLIPOLY_APP_TOKEN=%s\nHOLIPOLY_APP_ID=%s\nHOLIPOLY_DOMAIN=%s\nHOLIPOLY_JWKS=%s\n",
		data.APIURL, data.Token, data.AppID, data.Domain, data.JWKS)
	return nil
}

func (e *EnvAPL) Delete(ctx context.Context, apiURL string) error {
	e.log.Warnw("env apl: delete is a no-op, unset the environment variables instead", "apiUrl", apiURL)
	return nil
}

func (e *EnvAPL) GetAll(ctx context.Context) ([]AuthData, error) {
	if !e.data.Valid() {
		return []AuthData{}, nil
	}
	return []AuthData{e.data}, nil
}

func (e *EnvAPL) IsReady(ctx context.Context) Readiness {
	return readinessFrom(e.IsConfigured(ctx))
}

func (e *EnvAPL) IsConfigured(ctx context.Context) Configuration {
	if !e.data.Valid() {
		return notConfigured(fmt.Errorf("%w: HOLIPOLY_API_URL, HOLIPOLY_APP_TOKEN and HOLIPOLY_APP_ID must be set", ErrNotConfigured))
	}
	return configured()
}
