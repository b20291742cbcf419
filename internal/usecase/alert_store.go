package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

const (
	DefaultMaxRows   = 500
	DefaultIOTimeout = 5 * time.Second
)

// AlertStore holds one row per ticker, most recently mutated first. A merge
// mutates, trims, persists and broadcasts under a single lock, so concurrent
// webhook calls are applied one at a time and each broadcast reflects the
// persisted state. Document I/O is detached from the caller's context and
// bounded by ioTimeout. Nothing is saved until the document has been read.
type AlertStore struct {
	mu sync.Mutex

	docs        domrepo.AlertDocumentStore
	broadcaster domrepo.Broadcaster
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	timeframes  domrepo.Timeframes
	maxRows     int
	ioTimeout   time.Duration

	rows   []*models.TickerRow
	loaded bool
}

func NewAlertStore(
	docs domrepo.AlertDocumentStore,
	broadcaster domrepo.Broadcaster,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	timeframes domrepo.Timeframes,
	maxRows int,
	ioTimeout time.Duration,
) *AlertStore {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if ioTimeout <= 0 {
		ioTimeout = DefaultIOTimeout
	}
	return &AlertStore{
		docs:        docs,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger.Component("alert_store"),
		timeframes:  timeframes,
		maxRows:     maxRows,
		ioTimeout:   ioTimeout,
	}
}

// Merge applies ev and returns the resulting ordered rows.
func (s *AlertStore) Merge(ctx context.Context, ev models.AlertEvent) []models.TickerRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)

	primary := s.timeframes.IsPrimary(ev.Timeframe)
	idx := s.indexOf(ev.Ticker)
	if idx < 0 {
		row := &models.TickerRow{Ticker: ev.Ticker, Zone: ev.Zone}
		row.SetSignal(ev.Timeframe, ev.Direction)
		if primary {
			row.Time = ev.Time
		}
		s.rows = append([]*models.TickerRow{row}, s.rows...)
	} else {
		row := s.rows[idx]
		row.SetSignal(ev.Timeframe, ev.Direction)
		if primary {
			row.Time = ev.Time
			row.Zone = ev.Zone
		} else if row.Zone == "" {
			row.Zone = ev.Zone
		}
		s.moveToFront(idx)
	}

	if len(s.rows) > s.maxRows {
		s.rows = s.rows[:s.maxRows]
	}

	snapshot := s.snapshot()
	s.metrics.SetStoreRows(len(snapshot))
	s.persist(ctx, snapshot)
	s.broadcast(context.WithoutCancel(ctx), snapshot)
	return snapshot
}

// Rows returns a copy of the ordered rows, loading them on first use.
func (s *AlertStore) Rows(ctx context.Context) []models.TickerRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return s.snapshot()
}

// Tickers returns every ticker currently held, uppercased and de-duplicated.
func (s *AlertStore) Tickers(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	out := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.Ticker)
	}
	return util.NormalizeSymbols(out)
}

// ensureLoaded reads the document until one read succeeds. Rows merged
// while it was unreadable are newer and stay ahead of the persisted ones.
func (s *AlertStore) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}

	ioCtx, cancel := s.ioContext(ctx)
	defer cancel()
	rows, err := s.docs.Load(ioCtx)
	if err != nil {
		s.metrics.RecordPersistError()
		s.logger.Error("load alert document failed, will retry",
			applogger.Error(&models.PersistenceError{Op: "load", Err: err}),
			applogger.Int("rows_in_memory", len(s.rows)),
		)
		return
	}
	s.loaded = true

	seen := make(map[string]struct{}, len(s.rows)+len(rows))
	for _, r := range s.rows {
		seen[r.Ticker] = struct{}{}
	}
	for i := range rows {
		if len(s.rows) >= s.maxRows {
			break
		}
		r := rows[i].Clone()
		r.Ticker = strings.ToUpper(strings.TrimSpace(r.Ticker))
		if r.Ticker == "" {
			continue
		}
		if _, dup := seen[r.Ticker]; dup {
			continue
		}
		seen[r.Ticker] = struct{}{}
		s.rows = append(s.rows, &r)
	}
	s.metrics.SetStoreRows(len(s.rows))
	s.logger.Info("alert document loaded", applogger.Int("rows", len(s.rows)))
}

func (s *AlertStore) ioContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.ioTimeout)
}

func (s *AlertStore) indexOf(ticker string) int {
	for i, r := range s.rows {
		if r.Ticker == ticker {
			return i
		}
	}
	return -1
}

func (s *AlertStore) moveToFront(idx int) {
	if idx == 0 {
		return
	}
	row := s.rows[idx]
	copy(s.rows[1:idx+1], s.rows[:idx])
	s.rows[0] = row
}

func (s *AlertStore) snapshot() []models.TickerRow {
	out := make([]models.TickerRow, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Clone()
	}
	return out
}

func (s *AlertStore) persist(ctx context.Context, rows []models.TickerRow) {
	if !s.loaded {
		// saving now would replace a document that may still hold rows
		s.metrics.RecordPersistError()
		s.logger.Warn("alert document not loaded, save skipped", applogger.Int("rows", len(rows)))
		return
	}

	ioCtx, cancel := s.ioContext(ctx)
	defer cancel()
	start := time.Now()
	err := s.docs.Save(ioCtx, rows)
	s.metrics.RecordLatency("alerts_persist", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordPersistError()
		s.logger.Error("persist alert document failed",
			applogger.Error(&models.PersistenceError{Op: "save", Err: err}),
			applogger.Int("rows", len(rows)),
		)
	}
}

func (s *AlertStore) broadcast(ctx context.Context, rows []models.TickerRow) {
	if s.broadcaster == nil {
		return
	}
	err := s.broadcaster.Broadcast(ctx, models.EventAlertsUpdate, rows)
	s.metrics.RecordBroadcast(models.EventAlertsUpdate, err)
	if err != nil {
		s.logger.Warn("broadcast alerts failed", applogger.Error(err))
	}
}
