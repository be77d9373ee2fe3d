// pkg/apl/factory.go
package apl

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"holiapp/pkg/config"
)

// FromConfig builds the backend selected by cfg.APL. pool and rdb may be nil
// when the selected backend does not need them.
func FromConfig(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, pool *pgxpool.Pool, rdb *redis.Client, client *http.Client) (APL, error) {
	switch cfg.APL {
	case "memory":
		return NewMemoryAPL(log), nil
	case "file", "":
		return NewFileAPL(cfg.FileAPLPath, log), nil
	case "env":
		return NewEnvAPL(AuthData{
			APIURL: cfg.EnvAPIURL,
			Token:  cfg.EnvAppToken,
			AppID:  cfg.EnvAppID,
			Domain: cfg.EnvDomain,
			JWKS:   cfg.EnvJWKS,
		}, cfg.PrintAuthDataOnRegister, log), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("%w: APL=redis requires REDIS_URL", ErrNotConfigured)
		}
		return NewRedisAPL(rdb, DefaultRedisHashKey, log), nil
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("%w: APL=postgres requires DATABASE_URL", ErrNotConfigured)
		}
		if err := EnsureSchema(ctx, pool); err != nil {
			return nil, fmt.Errorf("postgres apl: schema: %w", err)
		}
		return NewPostgresAPL(pool, log), nil
	case "remote":
		opts := []RemoteOption{WithLogger(log), WithHTTPClient(client)}
		switch cfg.RemoteAPLCache {
		case "memory":
			opts = append(opts, WithCache(NewMemoryCache()))
		case "redis":
			if rdb == nil {
				return nil, fmt.Errorf("%w: REST_APL_CACHE=redis requires REDIS_URL", ErrNotConfigured)
			}
			opts = append(opts, WithCache(NewRedisCache(rdb, "")))
		}
		return NewRemoteAPL(cfg.RemoteAPLURL, cfg.RemoteAPLToken, opts...), nil
	}
	return nil, fmt.Errorf("unknown APL %q", cfg.APL)
}
