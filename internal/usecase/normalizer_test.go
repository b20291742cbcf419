package usecase

import (
	"errors"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTimeframes() domrepo.Timeframes {
	return domrepo.NewTimeframes([]string{"AI_5m", "AI_15m", "AI_1h"}, "AI_5m")
}

func newTestNormalizer() *Normalizer {
	n := NewNormalizer(defaultTimeframes(), time.UTC)
	n.now = func() time.Time { return time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC) }
	return n
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.AlertEvent
	}{
		{
			name: "plain object",
			body: `{"ticker":"nvda","timeframe":"AI_5m","alert":"Buy signal","time":"2024-03-01T09:31:00Z"}`,
			want: models.AlertEvent{Ticker: "NVDA", Timeframe: "AI_5m", Direction: models.DirectionBuy, Time: "09:31", Zone: models.ZoneGreen},
		},
		{
			name: "json encoded string",
			body: `"{\"ticker\":\"msft\",\"timeframe\":\"AI_1h\",\"alert\":\"sell now\",\"time\":\"2024-03-01T10:00:00Z\"}"`,
			want: models.AlertEvent{Ticker: "MSFT", Timeframe: "AI_1h", Direction: models.DirectionSell, Time: "10:00", Zone: models.ZoneRed},
		},
		{
			name: "message wrapper with capitalized keys",
			body: `{"message":"{\"Ticker\":\"aapl\",\"timeframe\":\"AI_15m\",\"Alert\":\"STRONG SELL\",\"time\":\"1709285460000\"}"}`,
			want: models.AlertEvent{Ticker: "AAPL", Timeframe: "AI_15m", Direction: models.DirectionSell, Time: "09:31", Zone: models.ZoneRed},
		},
		{
			name: "message that is not json keeps wrapper",
			body: `{"message":"hello","ticker":"tsla","timeframe":"AI_5m","time":"2024-03-01 11:45"}`,
			want: models.AlertEvent{Ticker: "TSLA", Timeframe: "AI_5m", Direction: models.DirectionBuy, Time: "11:45", Zone: models.ZoneGreen},
		},
		{
			name: "numeric epoch millis",
			body: `{"ticker":"amd","timeframe":"AI_5m","time":1709285460000}`,
			want: models.AlertEvent{Ticker: "AMD", Timeframe: "AI_5m", Direction: models.DirectionBuy, Time: "09:31", Zone: models.ZoneGreen},
		},
		{
			name: "unparseable time passes through",
			body: `{"ticker":"amd","timeframe":"AI_5m","time":"next bar"}`,
			want: models.AlertEvent{Ticker: "AMD", Timeframe: "AI_5m", Direction: models.DirectionBuy, Time: "next bar", Zone: models.ZoneGreen},
		},
		{
			name: "missing time uses now",
			body: `{"ticker":"amd","timeframe":"AI_5m"}`,
			want: models.AlertEvent{Ticker: "AMD", Timeframe: "AI_5m", Direction: models.DirectionBuy, Time: "14:05", Zone: models.ZoneGreen},
		},
		{
			name: "empty time falls back to timenow",
			body: `{"ticker":"amd","timeframe":"AI_5m","time":"","timenow":"2024-03-01T12:00:00Z"}`,
			want: models.AlertEvent{Ticker: "AMD", Timeframe: "AI_5m", Direction: models.DirectionBuy, Time: "12:00", Zone: models.ZoneGreen},
		},
		{
			name: "non-string alert defaults to buy",
			body: `{"ticker":"amd","timeframe":"AI_5m","alert":42,"time":"2024-03-01T12:00:00Z"}`,
			want: models.AlertEvent{Ticker: "AMD", Timeframe: "AI_5m", Direction: models.DirectionBuy, Time: "12:00", Zone: models.ZoneGreen},
		},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNormalizeValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{name: "missing ticker", body: `{"timeframe":"AI_5m"}`, wantFields: []string{"ticker"}},
		{name: "unknown timeframe", body: `{"ticker":"nvda","timeframe":"AI_4h"}`, wantFields: []string{"timeframe"}},
		{name: "empty object", body: `{}`, wantFields: []string{"ticker", "timeframe"}},
		{name: "not json", body: `buy NVDA`, wantFields: []string{"ticker", "timeframe"}},
		{name: "json array", body: `[1,2]`, wantFields: []string{"ticker", "timeframe"}},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize([]byte(tt.body))
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
			assert.Equal(t, tt.wantFields, verr.Fields)
		})
	}
}

func TestNormalizeUnknownTimeframeWhenOpen(t *testing.T) {
	n := NewNormalizer(defaultTimeframes(), time.UTC, WithUnknownTimeframes())

	ev, err := n.Normalize([]byte(`{"Ticker":"nvda","Timeframe":"AI_30m","alert":"buy","time":"2024-03-01T09:31:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "AI_30m", ev.Timeframe)
	assert.Equal(t, "NVDA", ev.Ticker)

	_, err = n.Normalize([]byte(`{"ticker":"nvda","timeframe":"zone"}`))
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr), "row field names stay rejected")
	assert.Equal(t, []string{"timeframe"}, verr.Fields)
}
