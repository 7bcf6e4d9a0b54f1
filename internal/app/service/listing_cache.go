package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultListingCachePrefix = "directory"

// RedisListingCache caches public directory pages in Redis. Keys embed a
// generation counter; Invalidate bumps the counter so older pages are never
// read again and expire on their own.
type RedisListingCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisListingCache returns a cache storing pages for ttl.
func NewRedisListingCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisListingCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisListingCache{
		client: client,
		ttl:    ttl,
		prefix: defaultListingCachePrefix,
		logger: logger,
	}
}

func (c *RedisListingCache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *RedisListingCache) pageKey(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	sum := sha1.Sum([]byte(key))
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, hex.EncodeToString(sum[:])), nil
}

// Get returns the cached page and the Redis key for the current generation.
// Redis failures count as a miss with no slot.
func (c *RedisListingCache) Get(ctx context.Context, key string) (*PageResult, string, bool) {
	redisKey, err := c.pageKey(ctx, key)
	if err != nil {
		c.logger.Warn("listing cache unavailable", zap.Error(err))
		return nil, "", false
	}

	data, err := c.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("listing cache read failed", zap.Error(err))
		}
		return nil, redisKey, false
	}

	var page PageResult
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("listing cache entry corrupt", zap.String("key", redisKey), zap.Error(err))
		return nil, redisKey, false
	}
	return &page, redisKey, true
}

// Set stores page under a slot returned by Get. Failures are logged and ignored.
func (c *RedisListingCache) Set(ctx context.Context, slot string, page *PageResult) {
	if slot == "" {
		return
	}

	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("listing cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, slot, data, c.ttl).Err(); err != nil {
		c.logger.Warn("listing cache write failed", zap.Error(err))
	}
}

// Invalidate moves the cache to a new generation.
func (c *RedisListingCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.logger.Error("listing cache invalidation failed", zap.Error(err))
	}
}
