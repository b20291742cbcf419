package usecase

import (
	"context"
	"errors"

	"SignalDesk/internal/domain/models"
	applogger "SignalDesk/pkg/logger"
)

// AlertTopicHandler feeds raw alert payloads read from a Kafka topic into the
// same pipeline as the webhook. Invalid payloads are logged and skipped so
// they are committed instead of retried.
type AlertTopicHandler struct {
	topic    string
	ingestor *AlertIngestor
	logger   *applogger.Logger
}

func NewAlertTopicHandler(topic string, ingestor *AlertIngestor, logger *applogger.Logger) *AlertTopicHandler {
	return &AlertTopicHandler{
		topic:    topic,
		ingestor: ingestor,
		logger:   logger.Component("alert_topic"),
	}
}

func (h *AlertTopicHandler) Topic() string { return h.topic }

func (h *AlertTopicHandler) Handle(ctx context.Context, value []byte) error {
	res, err := h.ingestor.Ingest(ctx, value)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.logger.Warn("invalid alert on topic skipped", applogger.Error(err), applogger.String("topic", h.topic))
			return nil
		}
		return err
	}
	if res.Deduped {
		h.logger.Debug("alert on topic deduped", applogger.String("ticker", res.Event.Ticker))
	}
	return nil
}
