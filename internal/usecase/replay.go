package usecase

import (
	"container/list"
	"context"
	"sync"
	"time"

	domrepo "SignalDesk/internal/domain/repository"
)

const defaultReplayCapacity = 10000

// MemoryReplayGuard remembers accepted keys for one window. Entries are kept in
// acceptance order so expired ones are evicted from the front, and the total
// is capped so a flood of distinct keys cannot grow it without bound.
type MemoryReplayGuard struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	order    *list.List
	entries  map[string]*list.Element
	now      func() time.Time
}

type replayEntry struct {
	key string
	at  time.Time
}

func NewMemoryReplayGuard(window time.Duration, capacity int) *MemoryReplayGuard {
	if capacity <= 0 {
		capacity = defaultReplayCapacity
	}
	return &MemoryReplayGuard{
		window:   window,
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (g *MemoryReplayGuard) Allow(_ context.Context, key string) (bool, error) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.evictExpired(now)

	if el, ok := g.entries[key]; ok {
		if now.Sub(el.Value.(*replayEntry).at) < g.window {
			return false, nil
		}
		g.order.Remove(el)
		delete(g.entries, key)
	}

	for g.order.Len() >= g.capacity {
		g.removeFront()
	}
	g.entries[key] = g.order.PushBack(&replayEntry{key: key, at: now})
	return true, nil
}

// Len returns the number of remembered keys.
func (g *MemoryReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}

func (g *MemoryReplayGuard) evictExpired(now time.Time) {
	for front := g.order.Front(); front != nil; front = g.order.Front() {
		if now.Sub(front.Value.(*replayEntry).at) < g.window {
			return
		}
		g.removeFront()
	}
}

func (g *MemoryReplayGuard) removeFront() {
	front := g.order.Front()
	if front == nil {
		return
	}
	g.order.Remove(front)
	delete(g.entries, front.Value.(*replayEntry).key)
}

var _ domrepo.ReplayGuard = (*MemoryReplayGuard)(nil)
