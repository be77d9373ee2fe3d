// pkg/apl/cache.go
package apl

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Cache is the optional read-through store used by RemoteAPL. Entries never
// expire; they are replaced on Set and evicted on Delete through the same
// RemoteAPL instance. Nothing invalidates entries held by other processes.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, apiURL string) (*AuthData, error)
	Set(ctx context.Context, data AuthData) error
	Delete(ctx context.Context, apiURL string) error
}

// MemoryCache is a process local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]AuthData
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]AuthData{}}
}

func (c *MemoryCache) Get(_ context.Context, apiURL string) (*AuthData, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a, ok := c.entries[apiURL]; ok {
		return validOrNil(&a), nil
	}
	return nil, nil
}

func (c *MemoryCache) Set(_ context.Context, data AuthData) error {
	c.mu.Lock()
	c.entries[data.APIURL] = data
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, apiURL string) error {
	c.mu.Lock()
	delete(c.entries, apiURL)
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares entries between processes through redis keys without TTL.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "holipoly_apl_cache:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, apiURL string) (*AuthData, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+apiURL).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a AuthData
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, nil
	}
	return validOrNil(&a), nil
}

func (c *RedisCache) Set(ctx context.Context, data AuthData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+data.APIURL, b, 0).Err()
}

func (c *RedisCache) Delete(ctx context.Context, apiURL string) error {
	return c.rdb.Del(ctx, c.prefix+apiURL).Err()
}
