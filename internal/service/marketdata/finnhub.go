package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkghttp "SignalDesk/pkg/http"
)

const DefaultFinnhubBaseURL = "https://finnhub.io/api/v1"

// Finnhub reads the REST quote and candle endpoints.
type Finnhub struct {
	client  *pkghttp.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func NewFinnhub(baseURL, apiKey string, timeout time.Duration) domrepo.MarketData {
	if baseURL == "" {
		baseURL = DefaultFinnhubBaseURL
	}
	return &Finnhub{
		client:  pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		now:     time.Now,
	}
}

type finnhubQuote struct {
	Current float64 `json:"c"`
	Open    float64 `json:"o"`
	Time    int64   `json:"t"`
}

type finnhubCandles struct {
	Status string    `json:"s"`
	Time   []int64   `json:"t"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
}

// LiveQuote treats a zero timestamp as an unknown symbol.
func (f *Finnhub) LiveQuote(ctx context.Context, ticker string) (models.Quote, error) {
	var q finnhubQuote
	if err := f.get(ctx, "/quote", map[string][]string{"symbol": {ticker}}, &q); err != nil {
		return models.Quote{}, err
	}
	if q.Time == 0 {
		return models.Quote{}, fmt.Errorf("finnhub: no quote for %s", ticker)
	}
	out := models.Quote{Price: q.Current}
	if q.Open != 0 {
		open := q.Open
		out.Open = &open
	}
	return out, nil
}

func (f *Finnhub) DailyBars(ctx context.Context, ticker string) ([]models.Bar, error) {
	now := f.now()
	return f.candles(ctx, ticker, "D", now.AddDate(0, 0, -31), now)
}

func (f *Finnhub) IntradayBars(ctx context.Context, ticker string) ([]models.Bar, error) {
	now := f.now()
	return f.candles(ctx, ticker, "5", now.Add(-24*time.Hour), now)
}

func (f *Finnhub) candles(ctx context.Context, ticker, resolution string, from, to time.Time) ([]models.Bar, error) {
	var c finnhubCandles
	err := f.get(ctx, "/stock/candle", map[string][]string{
		"symbol":     {ticker},
		"resolution": {resolution},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}, &c)
	if err != nil {
		return nil, err
	}
	if c.Status != "ok" {
		return nil, fmt.Errorf("finnhub: candles for %s: status %q", ticker, c.Status)
	}
	n := min(len(c.Time), len(c.Open), len(c.High), len(c.Low), len(c.Close))
	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = models.Bar{
			Time:  time.Unix(c.Time[i], 0).UTC(),
			Open:  c.Open[i],
			High:  c.High[i],
			Low:   c.Low[i],
			Close: c.Close[i],
		}
	}
	return bars, nil
}

func (f *Finnhub) get(ctx context.Context, path string, params map[string][]string, dest any) error {
	if f.apiKey == "" {
		return errors.New("finnhub: api key is not configured")
	}
	err := f.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		URL:         f.baseURL + path,
		Headers:     map[string]string{"X-Finnhub-Token": f.apiKey},
		QueryParams: params,
	}, dest)
	if err != nil {
		return fmt.Errorf("finnhub %s: %w", path, err)
	}
	return nil
}
