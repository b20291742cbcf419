package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/http/middleware"
	xlogger "SignalDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

const defaultMaxBodyBytes = 1 << 20

// AlertIngestor runs one raw alert body through the pipeline.
type AlertIngestor interface {
	Ingest(ctx context.Context, body []byte) (*usecase.IngestResult, error)
}

// WebhookHandler receives TradingView alerts.
type WebhookHandler struct {
	logger   *xlogger.Logger
	ingestor AlertIngestor
	secret   string
	limiter  middleware.Allower
	maxBody  int64
}

// NewWebhookHandler builds the handler. An empty secret accepts every caller
// and a nil limiter disables throttling.
func NewWebhookHandler(logger *xlogger.Logger, ingestor AlertIngestor, secret string, limiter middleware.Allower, maxBody int64) *WebhookHandler {
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &WebhookHandler{
		logger:   logger.Component("webhook"),
		ingestor: ingestor,
		secret:   secret,
		limiter:  limiter,
		maxBody:  maxBody,
	}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	// the secret is checked first so a bad key never spends a token
	mws := []echo.MiddlewareFunc{middleware.SharedSecret(h.secret)}
	if h.limiter != nil {
		mws = append(mws, middleware.RateLimit(h.limiter))
	}
	e.POST("/tv-webhook", h.Receive, mws...)
}

// Receive accepts any content type; the body is handed to the normalizer as is.
func (h *WebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxBody+1))
	if err != nil {
		h.logger.Warn("read webhook body failed", xlogger.Error(err))
		return c.JSON(http.StatusBadRequest, xhttp.WebhookResponse{Error: "unreadable body"})
	}
	if int64(len(body)) > h.maxBody {
		return c.JSON(http.StatusBadRequest, xhttp.WebhookResponse{Error: "body too large"})
	}

	res, err := h.ingestor.Ingest(c.Request().Context(), body)
	if err != nil {
		appErr := ingestError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("ingest alert failed", xlogger.Error(err))
		}
		resp := xhttp.WebhookResponse{Error: appErr.Message}
		if fields, ok := appErr.Params["fields"].([]string); ok {
			resp.Fields = fields
		}
		return c.JSON(appErr.Status, resp)
	}

	if res.Deduped {
		return c.JSON(http.StatusOK, xhttp.WebhookResponse{OK: true, Deduped: true})
	}
	return c.JSON(http.StatusOK, xhttp.WebhookResponse{OK: true, Accepted: 1})
}

// ingestError maps pipeline errors to HTTP errors. Internal detail stays in
// the wrapped error and is never sent to the caller.
func ingestError(err error) *xhttp.AppError {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return xhttp.BadRequestError("missing or invalid fields").WithParam("fields", verr.Fields)
	}
	return xhttp.InternalError("internal error").WithError(err)
}
