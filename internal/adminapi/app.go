// Package adminapi exposes operator endpoints over the stored tenant
// credentials: listing installations, inspecting one, removing it and
// refreshing its JWKS snapshot.
package adminapi

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"

	"holiapp/pkg/apl"
	"holiapp/pkg/logger"
)

// Config holds admin-api specific configuration. Token and JWKSURL are
// alternatives; with neither set the admin API is not mounted.
type Config struct {
	Token       string
	JWKSURL     string
	Issuer      string
	Audience    string
	CORSOrigins []string
}

// Enabled reports whether any admin credential is configured.
func (c Config) Enabled() bool { return c.Token != "" || c.JWKSURL != "" }

// JWKSFetcher fetches a tenant's current JWKS. *platform.Client implements it.
type JWKSFetcher interface {
	FetchJWKS(ctx context.Context, apiURL string) (string, error)
}

// App is the admin-api application container.
type App struct {
	log         *zap.SugaredLogger
	apl         apl.APL
	jwks        JWKSFetcher
	adminToken  string
	adminJWKS   jwk.Set
	adminIssuer string
	adminAud    string
	cors        []string
}

// New constructs App. When cfg.JWKSURL is set the admin key set is fetched once.
func New(log *zap.SugaredLogger, store apl.APL, jwks JWKSFetcher, cfg Config) (*App, error) {
	a := &App{
		log:         logger.OrNop(log),
		apl:         store,
		jwks:        jwks,
		adminToken:  cfg.Token,
		adminIssuer: cfg.Issuer,
		adminAud:    cfg.Audience,
		cors:        cfg.CORSOrigins,
	}
	if cfg.JWKSURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		set, err := jwk.Fetch(ctx, cfg.JWKSURL)
		if err != nil {
			return nil, fmt.Errorf("adminapi: fetch admin jwks: %w", err)
		}
		a.adminJWKS = set
	}
	return a, nil
}
