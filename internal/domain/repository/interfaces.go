package repository

import (
	"context"
	"time"

	"SignalDesk/internal/domain/models"
)

// AlertDocumentStore persists the ordered ticker rows as one document.
type AlertDocumentStore interface {
	// Load returns nil rows and no error when nothing was saved yet.
	Load(ctx context.Context) ([]models.TickerRow, error)
	Save(ctx context.Context, rows []models.TickerRow) error
}

// ReplayGuard suppresses repeats of the same key within a window.
type ReplayGuard interface {
	// Allow reports whether key has not been accepted within the window and
	// records it as accepted when it returns true.
	Allow(ctx context.Context, key string) (bool, error)
}

// AlertJournal appends accepted alerts to an audit log.
type AlertJournal interface {
	Record(ctx context.Context, ev models.AlertEvent, receivedAt time.Time) error
	Close() error
}

// Broadcaster pushes a named event to live subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, payload any) error
}

// MarketData retrieves bars and quotes for a ticker.
type MarketData interface {
	DailyBars(ctx context.Context, ticker string) ([]models.Bar, error)
	LiveQuote(ctx context.Context, ticker string) (models.Quote, error)
	IntradayBars(ctx context.Context, ticker string) ([]models.Bar, error)
}

type Metrics interface {
	RecordAlert(result string)
	SetStoreRows(n int)
	RecordPersistError()
	RecordBroadcast(event string, err error)
	RecordProviderError(op string)
	RecordLatency(op string, seconds float64)
}

// Alert outcomes recorded by Metrics.RecordAlert.
const (
	AlertAccepted = "accepted"
	AlertDeduped  = "deduped"
	AlertInvalid  = "invalid"
	AlertFailed   = "failed"
)
