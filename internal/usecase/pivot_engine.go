package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/internal/services/pivot"
	applogger "SignalDesk/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// PivotEngineConfig tunes one engine.
type PivotEngineConfig struct {
	Concurrency  int
	FetchTimeout time.Duration
	// MA20Enabled feeds a 5-minute SMA(20) into the trend classifier.
	MA20Enabled bool
}

// PivotEngine recomputes one PivotSnapshot per tracked ticker on every tick.
// A failure for one ticker only degrades that ticker's snapshot.
type PivotEngine struct {
	md          domrepo.MarketData
	broadcaster domrepo.Broadcaster
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	cfg         PivotEngineConfig
	now         func() time.Time

	mu      sync.RWMutex
	tickers []string
	latest  []models.PivotSnapshot
}

func NewPivotEngine(
	md domrepo.MarketData,
	broadcaster domrepo.Broadcaster,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	cfg PivotEngineConfig,
) *PivotEngine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	return &PivotEngine{
		md:          md,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger.Component("pivot_engine"),
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetTickers replaces the tracked set.
func (e *PivotEngine) SetTickers(tickers []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickers = append([]string(nil), tickers...)
}

// Tickers returns the tracked set.
func (e *PivotEngine) Tickers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.tickers...)
}

// Latest returns the snapshots of the most recently finished tick.
func (e *PivotEngine) Latest() []models.PivotSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.PivotSnapshot(nil), e.latest...)
}

// Tick computes and broadcasts snapshots for all tracked tickers. It never
// fails; provider errors and panics are logged per ticker.
func (e *PivotEngine) Tick(ctx context.Context) []models.PivotSnapshot {
	start := time.Now()
	tickers := e.Tickers()
	snapshots := make([]models.PivotSnapshot, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			snapshots[i] = e.safeSnapshot(gctx, ticker)
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	e.latest = snapshots
	e.mu.Unlock()

	e.metrics.RecordLatency("pivot_tick", time.Since(start).Seconds())

	if e.broadcaster != nil {
		err := e.broadcaster.Broadcast(ctx, models.EventPivotUpdate, snapshots)
		e.metrics.RecordBroadcast(models.EventPivotUpdate, err)
		if err != nil {
			e.logger.Warn("broadcast pivots failed", applogger.Error(err))
		}
	}
	e.logger.Debug("pivot tick done", applogger.Int("tickers", len(tickers)), applogger.Duration("duration_ms", time.Since(start)))
	return snapshots
}

func (e *PivotEngine) safeSnapshot(ctx context.Context, ticker string) (snap models.PivotSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("pivot snapshot panic", applogger.String("ticker", ticker), applogger.Any("panic", fmt.Sprint(r)))
			snap = unknownSnapshot(e.now(), ticker)
		}
	}()
	return e.snapshot(ctx, ticker)
}

func (e *PivotEngine) snapshot(ctx context.Context, ticker string) models.PivotSnapshot {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		bars    []models.Bar
		barsErr error
		quote   models.Quote
		qErr    error
		ma20    = math.NaN()
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer recoverInto(&barsErr)
		bars, barsErr = e.md.DailyBars(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		defer recoverInto(&qErr)
		quote, qErr = e.md.LiveQuote(ctx, ticker)
	}()
	if e.cfg.MA20Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			defer recoverInto(&err)
			ma20 = e.intradayMA20(ctx, ticker)
		}()
	}
	wg.Wait()

	high, low, closePrice := math.NaN(), math.NaN(), math.NaN()
	if barsErr != nil {
		e.providerFailed("daily_bars", ticker, barsErr)
	} else if prev, ok := pivot.PreviousSession(bars); ok {
		high, low, closePrice = prev.High, prev.Low, prev.Close
	} else {
		e.logger.Warn("not enough daily bars", applogger.String("ticker", ticker), applogger.Int("bars", len(bars)))
	}

	price := math.NaN()
	var open *float64
	if qErr != nil {
		e.providerFailed("live_quote", ticker, qErr)
	} else {
		price = quote.Price
		open = quote.Open
	}

	levels, ok := pivot.Levels(high, low, closePrice)
	snap := models.PivotSnapshot{
		Timestamp:    e.now(),
		Ticker:       ticker,
		Relationship: pivot.Relationship(price, levels, ok),
		Trend:        pivot.Trend(price, ma20, levels, ok),
		MidPoint:     pivot.MidPoint(high, low),
		OpenPrice:    open,
	}
	if !math.IsNaN(price) {
		p := price
		snap.Price = &p
	}
	if ok {
		lv := levels
		snap.Levels = &lv
	}
	return snap
}

func (e *PivotEngine) intradayMA20(ctx context.Context, ticker string) float64 {
	bars, err := e.md.IntradayBars(ctx, ticker)
	if err != nil {
		e.providerFailed("intraday_bars", ticker, err)
		return math.NaN()
	}
	ma, err := pivot.SMA(pivot.Closes(bars), pivot.MAPeriod)
	if err != nil {
		return math.NaN()
	}
	return ma
}

func (e *PivotEngine) providerFailed(op, ticker string, err error) {
	e.metrics.RecordProviderError(op)
	e.logger.Warn("market data unavailable",
		applogger.Error(&models.ProviderError{Ticker: ticker, Op: op, Err: err}),
		applogger.String("ticker", ticker),
	)
}

// recoverInto turns a panic in a fetch goroutine into an error for that fetch.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}

func unknownSnapshot(at time.Time, ticker string) models.PivotSnapshot {
	return models.PivotSnapshot{
		Timestamp:    at,
		Ticker:       ticker,
		Relationship: models.RelationshipUnknown,
		Trend:        models.TrendUnknown,
	}
}

// FilterSnapshots keeps snapshots for ticker (case-insensitive); an empty
// ticker keeps all.
func FilterSnapshots(in []models.PivotSnapshot, ticker string) []models.PivotSnapshot {
	if ticker == "" {
		return in
	}
	out := make([]models.PivotSnapshot, 0, 1)
	for _, s := range in {
		if strings.EqualFold(s.Ticker, ticker) {
			out = append(out, s)
		}
	}
	return out
}
