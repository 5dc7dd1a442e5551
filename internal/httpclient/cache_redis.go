package httpclient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"scholar-console/internal/shared/telemetry"
)

const redisKeyPrefix = "scholar:cache:"

// RedisCache shares cached responses between console replicas. Expiry is
// delegated to Redis key TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: redisKeyPrefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			telemetry.Warn("cache.redis.get_failed", map[string]any{"key": key, "error": err})
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		telemetry.Warn("cache.redis.set_failed", map[string]any{"key": key, "error": err})
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, pattern string) {
	match := c.prefix + "*"
	if pattern != "" {
		match = c.prefix + "*" + escapeGlob(pattern) + "*"
	}
	iter := c.client.Scan(ctx, 0, match, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		telemetry.Warn("cache.redis.scan_failed", map[string]any{"pattern": pattern, "error": err})
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		telemetry.Warn("cache.redis.del_failed", map[string]any{"pattern": pattern, "error": err})
	}
}

func escapeGlob(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(s)
}
