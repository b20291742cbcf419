package usecase

import (
	"context"
	"sync"

	"SignalDesk/internal/domain/models"
)

type fakeDocs struct {
	mu      sync.Mutex
	initial []models.TickerRow
	loadErr error
	saveErr error
	loads   int
	saves   [][]models.TickerRow
	// saveCtxErrs records ctx.Err() as seen by each Save.
	saveCtxErrs []error
	deadlines   []bool
}

func (f *fakeDocs) Load(context.Context) ([]models.TickerRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.initial, nil
}

func (f *fakeDocs) Save(ctx context.Context, rows []models.TickerRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, rows)
	f.saveCtxErrs = append(f.saveCtxErrs, ctx.Err())
	_, ok := ctx.Deadline()
	f.deadlines = append(f.deadlines, ok)
	return f.saveErr
}

func (f *fakeDocs) setLoadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

func (f *fakeDocs) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func (f *fakeDocs) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type broadcastCall struct {
	event   string
	payload any
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
	err   error
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{event: event, payload: payload})
	return f.err
}

func (f *fakeBroadcaster) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.event == event {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) last(event string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].event == event {
			return f.calls[i].payload
		}
	}
	return nil
}

type fakeMetrics struct {
	mu             sync.Mutex
	alerts         map[string]int
	rows           int
	persistErrors  int
	providerErrors map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{alerts: map[string]int{}, providerErrors: map[string]int{}}
}

func (m *fakeMetrics) RecordAlert(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[result]++
}

func (m *fakeMetrics) SetStoreRows(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = n
}

func (m *fakeMetrics) RecordPersistError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistErrors++
}

func (m *fakeMetrics) RecordBroadcast(string, error) {}

func (m *fakeMetrics) RecordProviderError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providerErrors[op]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}
