package usecase

import (
	"context"
	"errors"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
)

// IngestResult describes the outcome of one accepted call.
type IngestResult struct {
	Event   *models.AlertEvent
	Deduped bool
}

// AlertIngestor runs normalize, replay suppression and merge for one payload.
type AlertIngestor struct {
	normalizer *Normalizer
	guard      domrepo.ReplayGuard
	store      *AlertStore
	journal    domrepo.AlertJournal
	metrics    domrepo.Metrics
	logger     *applogger.Logger
	now        func() time.Time
}

// NewAlertIngestor wires the pipeline. journal may be nil.
func NewAlertIngestor(
	normalizer *Normalizer,
	guard domrepo.ReplayGuard,
	store *AlertStore,
	journal domrepo.AlertJournal,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *AlertIngestor {
	return &AlertIngestor{
		normalizer: normalizer,
		guard:      guard,
		store:      store,
		journal:    journal,
		metrics:    metrics,
		logger:     logger.Component("ingest"),
		now:        time.Now,
	}
}

// Ingest returns *models.ValidationError for payloads that do not normalize.
// Replays inside the window succeed with Deduped set and change nothing.
func (i *AlertIngestor) Ingest(ctx context.Context, body []byte) (*IngestResult, error) {
	start := i.now()
	defer func() { i.metrics.RecordLatency("alert_ingest", time.Since(start).Seconds()) }()

	ev, err := i.normalizer.Normalize(body)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			i.metrics.RecordAlert(domrepo.AlertInvalid)
		} else {
			i.metrics.RecordAlert(domrepo.AlertFailed)
		}
		return nil, err
	}

	allowed, err := i.guard.Allow(ctx, ev.ReplayKey())
	if err != nil {
		// fail open: a broken guard must not drop alerts
		i.logger.Warn("replay guard unavailable", applogger.Error(err), applogger.String("key", ev.ReplayKey()))
		allowed = true
	}
	if !allowed {
		i.metrics.RecordAlert(domrepo.AlertDeduped)
		i.logger.Debug("alert deduped", applogger.String("key", ev.ReplayKey()))
		return &IngestResult{Event: ev, Deduped: true}, nil
	}

	i.store.Merge(ctx, *ev)
	i.metrics.RecordAlert(domrepo.AlertAccepted)
	i.logger.Info("alert accepted",
		applogger.String("ticker", ev.Ticker),
		applogger.String("timeframe", ev.Timeframe),
		applogger.String("direction", string(ev.Direction)),
		applogger.String("time", ev.Time),
	)

	if i.journal != nil {
		if err := i.journal.Record(ctx, *ev, start); err != nil {
			i.logger.Warn("journal alert failed", applogger.Error(err), applogger.String("ticker", ev.Ticker))
		}
	}
	return &IngestResult{Event: ev}, nil
}
