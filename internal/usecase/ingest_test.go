package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type erroringGuard struct{}

func (erroringGuard) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

type fakeJournal struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (j *fakeJournal) Record(_ context.Context, ev models.AlertEvent, _ time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *fakeJournal) Close() error { return nil }

type ingestFixture struct {
	ingestor *AlertIngestor
	docs     *fakeDocs
	bc       *fakeBroadcaster
	metrics  *fakeMetrics
	journal  *fakeJournal
}

func newIngestFixture(guard domrepo.ReplayGuard) *ingestFixture {
	f := &ingestFixture{docs: &fakeDocs{}, bc: &fakeBroadcaster{}, journal: &fakeJournal{}}
	store, m := newTestStore(f.docs, f.bc, 0)
	f.metrics = m
	f.ingestor = NewAlertIngestor(newTestNormalizer(), guard, store, f.journal, m, applogger.NewNop())
	return f
}

const nvdaBuy = `{"ticker":"NVDA","timeframe":"AI_5m","alert":"buy","time":"2024-03-01T09:31:00Z"}`

func TestIngestAcceptsThenDedupes(t *testing.T) {
	f := newIngestFixture(NewMemoryReplayGuard(5*time.Second, 0))
	ctx := context.Background()

	first, err := f.ingestor.Ingest(ctx, []byte(nvdaBuy))
	require.NoError(t, err)
	assert.False(t, first.Deduped)

	second, err := f.ingestor.Ingest(ctx, []byte(nvdaBuy))
	require.NoError(t, err)
	assert.True(t, second.Deduped)

	assert.Equal(t, 1, f.docs.saveCount())
	assert.Equal(t, 1, f.bc.count(models.EventAlertsUpdate))
	assert.Len(t, f.journal.events, 1)
	assert.Equal(t, 1, f.metrics.alerts[domrepo.AlertAccepted])
	assert.Equal(t, 1, f.metrics.alerts[domrepo.AlertDeduped])
}

func TestIngestRejectsInvalidWithoutSideEffects(t *testing.T) {
	f := newIngestFixture(NewMemoryReplayGuard(5*time.Second, 0))

	_, err := f.ingestor.Ingest(context.Background(), []byte(`{"timeframe":"AI_5m"}`))

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, f.docs.saveCount())
	assert.Equal(t, 0, f.bc.count(models.EventAlertsUpdate))
	assert.Equal(t, 1, f.metrics.alerts[domrepo.AlertInvalid])
}

func TestIngestFailsOpenWhenGuardErrors(t *testing.T) {
	f := newIngestFixture(erroringGuard{})
	ctx := context.Background()

	res, err := f.ingestor.Ingest(ctx, []byte(nvdaBuy))
	require.NoError(t, err)
	assert.False(t, res.Deduped)

	res, err = f.ingestor.Ingest(ctx, []byte(nvdaBuy))
	require.NoError(t, err)
	assert.False(t, res.Deduped)
	assert.Equal(t, 2, f.docs.saveCount())
}

func TestIngestDifferentDirectionIsNotAReplay(t *testing.T) {
	f := newIngestFixture(NewMemoryReplayGuard(5*time.Second, 0))
	ctx := context.Background()

	_, err := f.ingestor.Ingest(ctx, []byte(nvdaBuy))
	require.NoError(t, err)
	res, err := f.ingestor.Ingest(ctx, []byte(`{"ticker":"NVDA","timeframe":"AI_5m","alert":"sell","time":"2024-03-01T09:36:00Z"}`))
	require.NoError(t, err)

	assert.False(t, res.Deduped)
	rows := f.ingestor.store.Rows(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ZoneRed, rows[0].Zone)
	assert.Equal(t, "09:36", rows[0].Time)
}
