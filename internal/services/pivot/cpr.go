// Package pivot holds the floor pivot and central pivot range math used by the
// pivot engine. Every function is pure; a missing input is passed as NaN.
package pivot

import (
	"errors"
	"math"

	"SignalDesk/internal/domain/models"
)

const (
	// RelationshipTolerance is the absolute band around P reported as "Near Pivot".
	RelationshipTolerance = 0.5
	// MATolerance is the absolute band around MA20 reported as "At MA20".
	MATolerance = 0.05
	// MAPeriod is the moving-average length for the trend branch.
	MAPeriod = 20
)

// Levels computes P, BC and TC from a prior session's high, low and close.
// ok is false unless all three inputs are finite.
func Levels(high, low, closePrice float64) (models.PivotLevels, bool) {
	if !finite(high) || !finite(low) || !finite(closePrice) {
		return models.PivotLevels{}, false
	}
	p := (high + low + closePrice) / 3
	bc := (high + low) / 2
	return models.PivotLevels{P: p, BC: bc, TC: 2*p - bc}, true
}

// Relationship classifies price against P with an inclusive tolerance band.
func Relationship(price float64, lv models.PivotLevels, ok bool) string {
	if !ok || !finite(price) {
		return models.RelationshipUnknown
	}
	diff := price - lv.P
	switch {
	case math.Abs(diff) <= RelationshipTolerance:
		return models.RelationshipNear
	case diff > 0:
		return models.RelationshipAbove
	default:
		return models.RelationshipBelow
	}
}

// Trend prefers the MA20 comparison when ma20 is finite and falls back to the
// pivot comparison otherwise.
func Trend(price, ma20 float64, lv models.PivotLevels, ok bool) string {
	if !finite(price) {
		return models.TrendUnknown
	}
	if finite(ma20) {
		diff := price - ma20
		switch {
		case math.Abs(diff) <= MATolerance:
			return models.TrendAtMA20
		case diff > 0:
			return models.TrendAboveMA20
		default:
			return models.TrendBelowMA20
		}
	}
	if !ok {
		return models.TrendUnknown
	}
	if price >= lv.P {
		return models.TrendAbovePivot
	}
	return models.TrendBelowPivot
}

// MidPoint returns (high+low)/2 rounded to cents, or nil if either is missing.
func MidPoint(high, low float64) *float64 {
	if !finite(high) || !finite(low) {
		return nil
	}
	m := Round2((high + low) / 2)
	return &m
}

// PreviousSession returns the second-to-last bar, which is the last completed
// session while the current one is still forming.
func PreviousSession(bars []models.Bar) (models.Bar, bool) {
	if len(bars) < 2 {
		return models.Bar{}, false
	}
	return bars[len(bars)-2], true
}

// SMA computes the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// Closes extracts close prices from bars.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
