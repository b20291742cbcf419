package models

// AlertsRequest is the query of GET /api/alerts.
type AlertsRequest struct {
	Limit  int    `query:"limit" default:"500" validate:"gte=1,lte=500"`
	Ticker string `query:"ticker" validate:"omitempty,max=32"`
}

// PivotsRequest is the query of GET /api/pivots.
type PivotsRequest struct {
	Ticker string `query:"ticker" validate:"omitempty,max=32"`
}
