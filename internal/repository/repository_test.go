package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/pkg/cache"
	applogger "SignalDesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []models.TickerRow {
	nvda := models.TickerRow{Ticker: "NVDA", Time: "09:31", Zone: models.ZoneGreen}
	nvda.SetSignal("AI_5m", models.DirectionBuy)
	aapl := models.TickerRow{Ticker: "AAPL", Zone: models.ZoneRed}
	aapl.SetSignal("AI_1h", models.DirectionSell)
	return []models.TickerRow{nvda, aapl}
}

func TestFileDocumentStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewFileDocumentStore(dir, "alerts.json")
	ctx := context.Background()

	rows, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rows, "missing file loads as empty")

	require.NoError(t, s.Save(ctx, sampleRows()))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileDocumentStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alerts.json"), []byte("{not json"), 0o644))

	_, err := NewFileDocumentStore(dir, "alerts.json").Load(context.Background())
	assert.Error(t, err)
}

func TestRedisDocumentStoreOverCacheService(t *testing.T) {
	kv := cache.NewMemoryCache()
	s := NewRedisDocumentStore(kv)
	ctx := context.Background()

	rows, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rows)

	require.NoError(t, s.Save(ctx, sampleRows()))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), got)
}

type fakeNX struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeNX) SetNX(_ context.Context, key string, _ []byte, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func TestRedisReplayGuard(t *testing.T) {
	nx := &fakeNX{keys: map[string]time.Duration{}}
	g := NewRedisReplayGuard(nx, 5*time.Second)
	ctx := context.Background()

	ok, err := g.Allow(ctx, "NVDA|AI_5m|Buy")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, nx.keys["replay:NVDA|AI_5m|Buy"])

	ok, err = g.Allow(ctx, "NVDA|AI_5m|Buy")
	require.NoError(t, err)
	assert.False(t, ok)

	nx.err = errors.New("conn refused")
	_, err = g.Allow(ctx, "AAPL|AI_5m|Buy")
	assert.Error(t, err)
}

func TestAlertEventArgs(t *testing.T) {
	id := uuid.MustParse("8f14e45f-ceea-4e7a-9a5b-1c2d3e4f5a6b")
	at := time.Date(2024, 3, 1, 9, 31, 0, 0, time.FixedZone("EST", -5*3600))
	ev := models.AlertEvent{Ticker: "NVDA", Timeframe: "AI_5m", Direction: models.DirectionBuy, Time: "09:31", Zone: models.ZoneGreen}

	args := alertEventArgs(id, ev, at)
	require.Len(t, args, 7)
	assert.Equal(t, id, args[0])
	assert.Equal(t, at.UTC(), args[1])
	assert.Equal(t, "Buy", args[4])
	assert.Equal(t, "green", args[5])
	assert.Contains(t, insertAlertEventSQL("signaldesk"), "signaldesk.alert_events")
	assert.Contains(t, AlertEventsSchema("signaldesk")[1], "ENGINE = MergeTree")
}

type recordingBroadcaster struct {
	events []string
	err    error
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, event string, _ any) error {
	r.events = append(r.events, event)
	return r.err
}

type publishedMessage struct {
	topic string
	key   []byte
	value any
}

type recordingPublisher struct {
	mu      sync.Mutex
	msgs    []publishedMessage
	release chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, key []byte, value any) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, publishedMessage{topic: topic, key: key, value: value})
	return nil
}

func (p *recordingPublisher) published() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.msgs...)
}

func TestMultiBroadcasterJoinsErrors(t *testing.T) {
	ok := &recordingBroadcaster{}
	bad := &recordingBroadcaster{err: errors.New("bus down")}
	m := NewMultiBroadcaster(ok, nil, bad)

	err := m.Broadcast(context.Background(), models.EventAlertsUpdate, nil)
	assert.ErrorIs(t, err, bad.err)
	assert.Equal(t, []string{models.EventAlertsUpdate}, ok.events, "healthy target still receives the event")
}

func TestKafkaBroadcasterEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	kb := NewKafkaBroadcaster(pub, "signaldesk.broadcast", 4, time.Second, applogger.NewNop())
	fixed := time.Date(2024, 3, 1, 14, 31, 0, 0, time.UTC)
	kb.now = func() time.Time { return fixed }

	require.NoError(t, kb.Broadcast(context.Background(), models.EventPivotUpdate, []int{1}))
	require.NoError(t, kb.Close())

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "signaldesk.broadcast", msgs[0].topic)
	assert.Equal(t, []byte(models.EventPivotUpdate), msgs[0].key)
	assert.Equal(t, BroadcastEnvelope{Event: models.EventPivotUpdate, Payload: []int{1}, SentAt: fixed}, msgs[0].value)
}

func TestKafkaBroadcasterDoesNotWaitOnBroker(t *testing.T) {
	pub := &recordingPublisher{release: make(chan struct{})}
	kb := NewKafkaBroadcaster(pub, "signaldesk.broadcast", 1, 5*time.Second, applogger.NewNop())

	start := time.Now()
	accepted, full := 0, 0
	for i := 0; i < 4; i++ {
		err := kb.Broadcast(context.Background(), models.EventAlertsUpdate, i)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrBroadcastQueueFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Less(t, time.Since(start), time.Second, "broadcast returns while the broker is stuck")
	assert.GreaterOrEqual(t, full, 2)
	assert.Empty(t, pub.published())

	close(pub.release)
	require.NoError(t, kb.Close())
	assert.Len(t, pub.published(), accepted, "queued envelopes are drained on close")

	assert.Error(t, kb.Broadcast(context.Background(), models.EventAlertsUpdate, nil))
}
