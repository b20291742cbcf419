package cache

import (
	"context"
	"time"
)

// LayeredCache reads memory first and falls back to Redis. Writes go to
// Redis, then memory.
type LayeredCache struct {
	mem   *MemoryCache
	redis Service
	// memTTL caps how long an L2 hit is kept in memory.
	memTTL time.Duration
}

func NewLayeredCache(redis Service, mem *MemoryCache, memTTL time.Duration) *LayeredCache {
	if mem == nil {
		mem = NewMemoryCache()
	}
	return &LayeredCache{mem: mem, redis: redis, memTTL: memTTL}
}

func (lc *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if b, err := lc.mem.Get(ctx, key); err == nil {
		return b, nil
	}
	b, err := lc.redis.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = lc.mem.Set(ctx, key, b, lc.memTTL)
	return b, nil
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := lc.redis.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	memTTL := ttl
	if lc.memTTL > 0 && (memTTL <= 0 || lc.memTTL < memTTL) {
		memTTL = lc.memTTL
	}
	return lc.mem.Set(ctx, key, value, memTTL)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.redis.Delete(ctx, keys...)
}
