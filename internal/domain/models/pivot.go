package models

import "time"

// Bar is one OHLC candle.
type Bar struct {
	Time  time.Time `json:"t"`
	Open  float64   `json:"o"`
	High  float64   `json:"h"`
	Low   float64   `json:"l"`
	Close float64   `json:"c"`
}

// Quote is the live price of a ticker. Open is nil when the session open is
// not known yet.
type Quote struct {
	Price float64
	Open  *float64
}

// PivotLevels are the floor pivot and central pivot range.
type PivotLevels struct {
	P  float64 `json:"P"`
	BC float64 `json:"BC"`
	TC float64 `json:"TC"`
}

const (
	RelationshipNear    = "Near Pivot"
	RelationshipAbove   = "Above Pivot"
	RelationshipBelow   = "Below Pivot"
	RelationshipUnknown = "Unknown"

	TrendAtMA20     = "At MA20"
	TrendAboveMA20  = "Up (Above MA20)"
	TrendBelowMA20  = "Down (Below MA20)"
	TrendAbovePivot = "Up (>= Pivot)"
	TrendBelowPivot = "Down (< Pivot)"
	TrendUnknown    = "Unknown"
)

// PivotSnapshot is the latest computed view of one ticker.
type PivotSnapshot struct {
	Timestamp    time.Time    `json:"timestamp"`
	Ticker       string       `json:"ticker"`
	Relationship string       `json:"relationship"`
	Trend        string       `json:"trend"`
	MidPoint     *float64     `json:"midPoint"`
	OpenPrice    *float64     `json:"openPrice"`
	Price        *float64     `json:"price,omitempty"`
	Levels       *PivotLevels `json:"levels,omitempty"`
}

// Broadcast event names.
const (
	EventAlertsUpdate = "alertsUpdate"
	EventPivotUpdate  = "pivotUpdate"
)
