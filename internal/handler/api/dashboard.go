package api

import (
	"context"
	"net/http"
	"strings"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	xlogger "SignalDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AlertReader exposes the ordered ticker rows.
type AlertReader interface {
	Rows(ctx context.Context) []models.TickerRow
}

// PivotReader exposes the most recent pivot snapshots.
type PivotReader interface {
	Latest() []models.PivotSnapshot
}

// DashboardHandler serves the initial dashboard state and the live socket.
type DashboardHandler struct {
	logger *xlogger.Logger
	alerts AlertReader
	pivots PivotReader
	live   http.Handler
}

// NewDashboardHandler builds the handler. live may be nil to disable /ws.
func NewDashboardHandler(logger *xlogger.Logger, alerts AlertReader, pivots PivotReader, live http.Handler) *DashboardHandler {
	return &DashboardHandler{logger: logger.Component("dashboard"), alerts: alerts, pivots: pivots, live: live}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/alerts", h.Alerts)
	g.GET("/pivots", h.Pivots)
	if h.live != nil {
		e.GET("/ws", echo.WrapHandler(h.live))
	}
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func (h *DashboardHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows := h.alerts.Rows(c.Request().Context())
	if req.Ticker != "" {
		filtered := rows[:0]
		for _, r := range rows {
			if strings.EqualFold(r.Ticker, req.Ticker) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	total := int64(len(rows))
	if len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}
	return xhttp.ListResponse(c, rows, total)
}

func (h *DashboardHandler) Pivots(c echo.Context) error {
	req := &models.PivotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snaps := usecase.FilterSnapshots(h.pivots.Latest(), req.Ticker)
	if snaps == nil {
		snaps = []models.PivotSnapshot{}
	}
	return xhttp.SuccessResponse(c, snaps)
}
