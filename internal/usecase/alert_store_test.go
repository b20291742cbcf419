package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"SignalDesk/internal/domain/models"
	applogger "SignalDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(docs *fakeDocs, bc *fakeBroadcaster, maxRows int) (*AlertStore, *fakeMetrics) {
	m := newFakeMetrics()
	return NewAlertStore(docs, bc, m, applogger.NewNop(), defaultTimeframes(), maxRows, 0), m
}

func event(ticker, tf string, dir models.Direction, at string) models.AlertEvent {
	return models.AlertEvent{Ticker: ticker, Timeframe: tf, Direction: dir, Time: at, Zone: dir.Zone()}
}

func tickers(rows []models.TickerRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Ticker
	}
	return out
}

func TestMergeFiveMinuteThenFifteenMinute(t *testing.T) {
	docs, bc := &fakeDocs{}, &fakeBroadcaster{}
	s, _ := newTestStore(docs, bc, 0)
	ctx := context.Background()

	s.Merge(ctx, event("NVDA", "AI_5m", models.DirectionBuy, "09:31"))
	rows := s.Merge(ctx, event("NVDA", "AI_15m", models.DirectionSell, "09:45"))

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, models.ZoneGreen, row.Zone, "15m never overrides a set zone")
	assert.Equal(t, models.DirectionBuy, row.Signal("AI_5m"))
	assert.Equal(t, models.DirectionSell, row.Signal("AI_15m"))
	assert.Equal(t, "09:31", row.Time, "only the 5m timeframe sets time")
}

func TestMergeNewNonPrimaryRow(t *testing.T) {
	s, _ := newTestStore(&fakeDocs{}, &fakeBroadcaster{}, 0)
	rows := s.Merge(context.Background(), event("AAPL", "AI_1h", models.DirectionSell, "10:00"))

	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Time)
	assert.Equal(t, models.ZoneRed, rows[0].Zone)
	assert.Equal(t, models.DirectionSell, rows[0].Signal("AI_1h"))
	assert.Equal(t, models.Direction(""), rows[0].Signal("AI_5m"))
}

func TestMergePrimaryOverwritesZoneAndTime(t *testing.T) {
	s, _ := newTestStore(&fakeDocs{}, &fakeBroadcaster{}, 0)
	ctx := context.Background()

	s.Merge(ctx, event("AMD", "AI_1h", models.DirectionBuy, "10:00"))
	s.Merge(ctx, event("AMD", "AI_5m", models.DirectionSell, "10:05"))
	rows := s.Merge(ctx, event("AMD", "AI_15m", models.DirectionBuy, "10:10"))

	require.Len(t, rows, 1)
	assert.Equal(t, models.ZoneRed, rows[0].Zone)
	assert.Equal(t, "10:05", rows[0].Time)
	assert.Equal(t, models.DirectionBuy, rows[0].Signal("AI_15m"))
}

func TestMergeNonPrimarySetsZoneOnlyWhenEmpty(t *testing.T) {
	docs := &fakeDocs{initial: []models.TickerRow{{Ticker: "MSFT"}}}
	s, _ := newTestStore(docs, &fakeBroadcaster{}, 0)

	rows := s.Merge(context.Background(), event("MSFT", "AI_15m", models.DirectionSell, "11:00"))
	assert.Equal(t, models.ZoneRed, rows[0].Zone)
}

func TestMergeMovesRowToHead(t *testing.T) {
	s, _ := newTestStore(&fakeDocs{}, &fakeBroadcaster{}, 0)
	ctx := context.Background()

	s.Merge(ctx, event("A", "AI_5m", models.DirectionBuy, "09:30"))
	s.Merge(ctx, event("B", "AI_5m", models.DirectionBuy, "09:30"))
	s.Merge(ctx, event("C", "AI_5m", models.DirectionBuy, "09:30"))
	assert.Equal(t, []string{"C", "B", "A"}, tickers(s.Rows(ctx)))

	rows := s.Merge(ctx, event("A", "AI_1h", models.DirectionSell, "09:35"))
	assert.Equal(t, []string{"A", "C", "B"}, tickers(rows))
}

func TestMergeTrimsToCapacity(t *testing.T) {
	s, m := newTestStore(&fakeDocs{}, &fakeBroadcaster{}, 0)
	ctx := context.Background()

	var rows []models.TickerRow
	for i := 0; i < DefaultMaxRows+25; i++ {
		rows = s.Merge(ctx, event(fmt.Sprintf("T%03d", i), "AI_5m", models.DirectionBuy, "09:30"))
	}

	assert.Len(t, rows, DefaultMaxRows)
	assert.Equal(t, fmt.Sprintf("T%03d", DefaultMaxRows+24), rows[0].Ticker)
	assert.Equal(t, "T025", rows[len(rows)-1].Ticker, "oldest rows are dropped from the tail")
	assert.Equal(t, DefaultMaxRows, m.rows)
}

func TestMergePersistsAndBroadcastsEveryMutation(t *testing.T) {
	docs, bc := &fakeDocs{}, &fakeBroadcaster{}
	s, _ := newTestStore(docs, bc, 0)
	ctx := context.Background()

	s.Merge(ctx, event("NVDA", "AI_5m", models.DirectionBuy, "09:31"))
	s.Merge(ctx, event("AAPL", "AI_5m", models.DirectionBuy, "09:32"))

	assert.Equal(t, 2, docs.saveCount())
	assert.Equal(t, 2, bc.count(models.EventAlertsUpdate))

	last, ok := bc.last(models.EventAlertsUpdate).([]models.TickerRow)
	require.True(t, ok)
	assert.Equal(t, []string{"AAPL", "NVDA"}, tickers(last))
	assert.Equal(t, docs.saves[1], last)
}

func TestMergeSwallowsPersistenceFailure(t *testing.T) {
	docs := &fakeDocs{saveErr: errors.New("disk full")}
	bc := &fakeBroadcaster{}
	s, m := newTestStore(docs, bc, 0)

	rows := s.Merge(context.Background(), event("NVDA", "AI_5m", models.DirectionBuy, "09:31"))

	assert.Len(t, rows, 1)
	assert.Equal(t, 1, m.persistErrors)
	assert.Equal(t, 1, bc.count(models.EventAlertsUpdate), "broadcast still happens")
}

func TestLazyLoadOnce(t *testing.T) {
	docs := &fakeDocs{initial: []models.TickerRow{
		{Ticker: "nvda", Zone: models.ZoneGreen},
		{Ticker: "NVDA", Zone: models.ZoneRed},
		{Ticker: ""},
		{Ticker: "AAPL"},
	}}
	s, _ := newTestStore(docs, &fakeBroadcaster{}, 0)
	ctx := context.Background()

	rows := s.Rows(ctx)
	_ = s.Rows(ctx)

	assert.Equal(t, 1, docs.loads)
	assert.Equal(t, []string{"NVDA", "AAPL"}, tickers(rows))
	assert.Equal(t, models.ZoneGreen, rows[0].Zone, "first occurrence wins")
	assert.Equal(t, []string{"NVDA", "AAPL"}, s.Tickers(ctx))
}

func TestLoadFailureRetriesAndKeepsPersistedRows(t *testing.T) {
	docs := &fakeDocs{
		initial: []models.TickerRow{{Ticker: "AAPL"}, {Ticker: "MSFT"}, {Ticker: "TSLA"}},
		loadErr: errors.New("i/o timeout"),
	}
	s, m := newTestStore(docs, &fakeBroadcaster{}, 0)
	ctx := context.Background()

	rows := s.Merge(ctx, event("AMD", "AI_5m", models.DirectionBuy, "09:31"))
	assert.Equal(t, []string{"AMD"}, tickers(rows))
	assert.Equal(t, 0, docs.saveCount(), "an unread document is never overwritten")

	docs.setLoadErr(nil)
	rows = s.Merge(ctx, event("NVDA", "AI_5m", models.DirectionSell, "09:32"))

	assert.Equal(t, 2, docs.loadCount())
	assert.Equal(t, []string{"NVDA", "AMD", "AAPL", "MSFT", "TSLA"}, tickers(rows))
	require.Equal(t, 1, docs.saveCount())
	assert.Equal(t, tickers(rows), tickers(docs.saves[0]))
	assert.Equal(t, 2, m.persistErrors, "failed load and skipped save")

	_ = s.Rows(ctx)
	assert.Equal(t, 2, docs.loadCount(), "no reload after success")
}

func TestLoadAfterFailureRespectsCapacity(t *testing.T) {
	docs := &fakeDocs{
		initial: []models.TickerRow{{Ticker: "AAPL"}, {Ticker: "MSFT"}, {Ticker: "AMD"}},
		loadErr: errors.New("i/o timeout"),
	}
	s, _ := newTestStore(docs, &fakeBroadcaster{}, 2)
	ctx := context.Background()

	s.Merge(ctx, event("AMD", "AI_1h", models.DirectionBuy, "09:31"))
	docs.setLoadErr(nil)

	assert.Equal(t, []string{"AMD", "AAPL"}, tickers(s.Rows(ctx)), "in-memory row wins over its persisted copy")
}

func TestMergeSavesDespiteCanceledRequest(t *testing.T) {
	docs, bc := &fakeDocs{}, &fakeBroadcaster{}
	s, m := newTestStore(docs, bc, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Merge(ctx, event("NVDA", "AI_5m", models.DirectionBuy, "09:31"))

	require.Equal(t, 1, docs.saveCount())
	assert.NoError(t, docs.saveCtxErrs[0])
	assert.True(t, docs.deadlines[0], "store I/O is bounded")
	assert.Equal(t, []string{"NVDA"}, tickers(docs.saves[0]))
	assert.Equal(t, 0, m.persistErrors)
	assert.Equal(t, 1, bc.count(models.EventAlertsUpdate))
}

func TestRowsReturnsCopies(t *testing.T) {
	s, _ := newTestStore(&fakeDocs{}, &fakeBroadcaster{}, 0)
	ctx := context.Background()
	s.Merge(ctx, event("NVDA", "AI_5m", models.DirectionBuy, "09:31"))

	rows := s.Rows(ctx)
	rows[0].SetSignal("AI_5m", models.DirectionSell)

	assert.Equal(t, models.DirectionBuy, s.Rows(ctx)[0].Signal("AI_5m"))
}

func TestConcurrentMergesKeepOneRowPerTicker(t *testing.T) {
	docs := &fakeDocs{}
	s, _ := newTestStore(docs, &fakeBroadcaster{}, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tf := []string{"AI_5m", "AI_15m", "AI_1h"}[i%3]
			s.Merge(ctx, event(fmt.Sprintf("T%d", i%5), tf, models.DirectionBuy, "09:30"))
		}(i)
	}
	wg.Wait()

	rows := s.Rows(ctx)
	assert.Len(t, rows, 5)
	assert.Equal(t, 50, docs.saveCount())
}
