// Package db opens the optional Postgres and Redis connections used by the
// APL backends and the remote APL cache.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"holiapp/pkg/config"
)

const connectTimeout = 10 * time.Second

// Postgres opens and pings a pool. An empty DSN yields nil, nil.
func Postgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return pool, nil
}

// Redis parses url and pings the server. An empty url yields nil, nil.
func Redis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse: %w", err)
	}
	cli := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, nil
}

func MustConnect(cfg config.Config, log *zap.SugaredLogger) *pgxpool.Pool {
	pool, err := Postgres(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("postgres unavailable", "err", err)
	}
	if pool != nil {
		log.Infow("postgres ready", "host", redactDSN(cfg.DatabaseURL))
	}
	return pool
}

func MustRedis(cfg config.Config, log *zap.SugaredLogger) *redis.Client {
	cli, err := Redis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalw("redis unavailable", "err", err)
	}
	if cli != nil {
		log.Infow("redis ready", "addr", cli.Options().Addr)
	}
	return cli
}

func redactDSN(dsn string) string {
	if i := strings.LastIndex(dsn, "@"); i > 0 {
		scheme := ""
		if j := strings.Index(dsn, "://"); j > 0 && j < i {
			scheme = dsn[:j+3]
		}
		return scheme + "***@" + dsn[i+1:]
	}
	return dsn
}
