// pkg/apl/redis.go
package apl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"holiapp/pkg/logger"
)

// DefaultRedisHashKey is the hash holding one field per tenant API URL.
const DefaultRedisHashKey = "holipoly_app_auth"

// RedisAPL stores every record as a JSON field of a single redis hash.
type RedisAPL struct {
	rdb     *redis.Client
	hashKey string
	log     *zap.SugaredLogger
}

func NewRedisAPL(rdb *redis.Client, hashKey string, log *zap.SugaredLogger) *RedisAPL {
	if hashKey == "" {
		hashKey = DefaultRedisHashKey
	}
	return &RedisAPL{rdb: rdb, hashKey: hashKey, log: logger.OrNop(log)}
}

func (r *RedisAPL) Get(ctx context.Context, apiURL string) (*AuthData, error) {
	raw, err := r.rdb.HGet(ctx, r.hashKey, apiURL).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis apl: hget: %w", err)
	}
	var a AuthData
	if err := json.Unmarshal(raw, &a); err != nil {
		r.log.Warnw("redis apl: undecodable record ignored", "apiUrl", apiURL, "err", err)
		return nil, nil
	}
	return validOrNil(&a), nil
}

func (r *RedisAPL) Set(ctx context.Context, data AuthData) error {
	if !data.Valid() {
		return ErrInvalidAuthData
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.hashKey, data.APIURL, b).Err(); err != nil {
		return fmt.Errorf("redis apl: hset: %w", err)
	}
	return nil
}

func (r *RedisAPL) Delete(ctx context.Context, apiURL string) error {
	if err := r.rdb.HDel(ctx, r.hashKey, apiURL).Err(); err != nil {
		return fmt.Errorf("redis apl: hdel: %w", err)
	}
	return nil
}

func (r *RedisAPL) GetAll(ctx context.Context) ([]AuthData, error) {
	m, err := r.rdb.HGetAll(ctx, r.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis apl: hgetall: %w", err)
	}
	out := make([]AuthData, 0, len(m))
	for k, v := range m {
		var a AuthData
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			r.log.Warnw("redis apl: undecodable record ignored", "apiUrl", k, "err", err)
			continue
		}
		out = append(out, a)
	}
	return filterValid(out), nil
}

// IsReady pings the server in addition to the configuration check.
func (r *RedisAPL) IsReady(ctx context.Context) Readiness {
	if c := r.IsConfigured(ctx); !c.Configured {
		return Readiness{Err: c.Err}
	}
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return Readiness{Err: fmt.Errorf("redis apl: ping: %w", err)}
	}
	return ready()
}

func (r *RedisAPL) IsConfigured(ctx context.Context) Configuration {
	if r.rdb == nil {
		return notConfigured(fmt.Errorf("%w: REDIS_URL is not set", ErrNotConfigured))
	}
	return configured()
}
