package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of redis.Cmdable used by RedisCache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache is a Cache shared across processes.
type RedisCache struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache stores digests under prefix+interviewID. A zero ttl keeps
// keys forever.
func NewRedisCache(client RedisClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "interviewflow:digest:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, interviewID string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+interviewID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get digest %s: %w", interviewID, err)
	}
	return val, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, interviewID, digest string) error {
	if err := c.client.Set(ctx, c.prefix+interviewID, digest, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set digest %s: %w", interviewID, err)
	}
	return nil
}
