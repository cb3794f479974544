package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryCacheTTL is how long a computed summary may be served stale.
const SummaryCacheTTL = 30 * time.Second

// Cache stores computed summaries. Failures are logged by the caller and
// never fail a request.
type Cache interface {
	Get(ctx context.Context, key string) (Summary, bool, error)
	Set(ctx context.Context, key string, s Summary, ttl time.Duration) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(ctx context.Context, key string) (Summary, bool, error) {
	return Summary{}, false, nil
}

func (NopCache) Set(ctx context.Context, key string, s Summary, ttl time.Duration) error {
	return nil
}

// RedisCache stores summaries as JSON strings.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Summary, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, fmt.Errorf("reporting cache get: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return Summary{}, false, fmt.Errorf("reporting cache decode: %w", err)
	}
	return s, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, s Summary, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("reporting cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("reporting cache set: %w", err)
	}
	return nil
}
