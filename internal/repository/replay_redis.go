package repository

import (
	"context"
	"fmt"
	"time"

	domrepo "SignalDesk/internal/domain/repository"
)

// NXSetter is the subset of cache.RedisCache the replay guard needs.
type NXSetter interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// RedisReplayGuard shares replay suppression across instances: the first
// SET NX for a key within the window wins and the key expires with it.
type RedisReplayGuard struct {
	kv     NXSetter
	window time.Duration
}

func NewRedisReplayGuard(kv NXSetter, window time.Duration) domrepo.ReplayGuard {
	return &RedisReplayGuard{kv: kv, window: window}
}

func (g *RedisReplayGuard) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := g.kv.SetNX(ctx, "replay:"+key, []byte("1"), g.window)
	if err != nil {
		return false, fmt.Errorf("replay setnx: %w", err)
	}
	return ok, nil
}
