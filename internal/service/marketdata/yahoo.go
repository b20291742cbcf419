// Package marketdata implements domain.repository.MarketData over public
// quote APIs.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkghttp "SignalDesk/pkg/http"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	yahooUserAgent      = "Mozilla/5.0 (compatible; SignalDesk/1.0)"
)

// Yahoo reads the v8 chart endpoint.
type Yahoo struct {
	client  *pkghttp.Client
	baseURL string
	// symbols maps dashboard tickers to Yahoo symbols, e.g. SPX to ^GSPC.
	symbols map[string]string
}

func NewYahoo(baseURL string, timeout time.Duration) domrepo.MarketData {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	return &Yahoo{
		client: pkghttp.NewClient(
			pkghttp.WithTimeout(timeout),
			pkghttp.WithUserAgent(yahooUserAgent),
		),
		baseURL: strings.TrimRight(baseURL, "/"),
		symbols: map[string]string{
			"SPX":    "^GSPC",
			"SPX500": "^GSPC",
			"NDX":    "^NDX",
			"DJI":    "^DJI",
			"VIX":    "^VIX",
			"RUT":    "^RUT",
		},
	}
}

type yahooChart struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooResult struct {
	Meta struct {
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		RegularMarketOpen  *float64 `json:"regularMarketOpen"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			High  []*float64 `json:"high"`
			Low   []*float64 `json:"low"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// DailyBars returns about a month of daily bars, oldest first.
func (y *Yahoo) DailyBars(ctx context.Context, ticker string) ([]models.Bar, error) {
	res, err := y.chart(ctx, ticker, "1d", "1mo")
	if err != nil {
		return nil, err
	}
	return res.bars(), nil
}

// IntradayBars returns today's 5-minute bars, oldest first.
func (y *Yahoo) IntradayBars(ctx context.Context, ticker string) ([]models.Bar, error) {
	res, err := y.chart(ctx, ticker, "5m", "1d")
	if err != nil {
		return nil, err
	}
	return res.bars(), nil
}

// LiveQuote uses the chart meta price; the open comes from the meta when
// present, otherwise from the session's first bar.
func (y *Yahoo) LiveQuote(ctx context.Context, ticker string) (models.Quote, error) {
	res, err := y.chart(ctx, ticker, "1d", "1d")
	if err != nil {
		return models.Quote{}, err
	}
	if res.Meta.RegularMarketPrice == nil {
		return models.Quote{}, errors.New("yahoo: quote has no price")
	}
	q := models.Quote{Price: *res.Meta.RegularMarketPrice}
	if res.Meta.RegularMarketOpen != nil {
		open := *res.Meta.RegularMarketOpen
		q.Open = &open
	} else if bars := res.bars(); len(bars) > 0 {
		open := bars[len(bars)-1].Open
		q.Open = &open
	}
	return q, nil
}

func (y *Yahoo) chart(ctx context.Context, ticker, interval, rng string) (*yahooResult, error) {
	var chart yahooChart
	err := y.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		URL: fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, url.PathEscape(y.symbol(ticker))),
		QueryParams: map[string][]string{
			"interval": {interval},
			"range":    {rng},
		},
	}, &chart)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data for %s", ticker)
	}
	return &chart.Chart.Result[0], nil
}

func (y *Yahoo) symbol(ticker string) string {
	if s, ok := y.symbols[strings.ToUpper(ticker)]; ok {
		return s
	}
	return ticker
}

// bars skips entries with any null OHLC value (halts, holidays).
func (r *yahooResult) bars() []models.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	out := make([]models.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		out = append(out, models.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  *q.Open[i],
			High:  *q.High[i],
			Low:   *q.Low[i],
			Close: *q.Close[i],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
