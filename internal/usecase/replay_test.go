package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryReplayGuardWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
	g := NewMemoryReplayGuard(5*time.Second, 0)
	g.now = clock.Now
	ctx := context.Background()

	ok, err := g.Allow(ctx, "NVDA|AI_5m|Buy")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(4999 * time.Millisecond)
	ok, _ = g.Allow(ctx, "NVDA|AI_5m|Buy")
	assert.False(t, ok, "repeat inside the window is suppressed")

	ok, _ = g.Allow(ctx, "NVDA|AI_5m|Sell")
	assert.True(t, ok, "different direction is a different key")

	clock.Advance(time.Millisecond)
	ok, _ = g.Allow(ctx, "NVDA|AI_5m|Buy")
	assert.True(t, ok, "window is measured from the last accepted call")
}

func TestMemoryReplayGuardEvictsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
	g := NewMemoryReplayGuard(5*time.Second, 0)
	g.now = clock.Now
	ctx := context.Background()

	for _, k := range []string{"A|AI_5m|Buy", "B|AI_5m|Buy", "C|AI_5m|Buy"} {
		_, _ = g.Allow(ctx, k)
	}
	assert.Equal(t, 3, g.Len())

	clock.Advance(6 * time.Second)
	_, _ = g.Allow(ctx, "D|AI_5m|Buy")
	assert.Equal(t, 1, g.Len())
}

func TestMemoryReplayGuardCapacity(t *testing.T) {
	g := NewMemoryReplayGuard(time.Hour, 2)
	ctx := context.Background()

	_, _ = g.Allow(ctx, "A")
	_, _ = g.Allow(ctx, "B")
	_, _ = g.Allow(ctx, "C")
	assert.Equal(t, 2, g.Len())

	ok, _ := g.Allow(ctx, "A")
	assert.True(t, ok, "oldest key was evicted to make room")
}
