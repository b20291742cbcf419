package marketdata

import (
	"context"
	"errors"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
	applogger "SignalDesk/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// Cached decorates a provider. Daily bars change once per session, so they
// are cached for ttl; concurrent fetches for one ticker are coalesced.
// Quotes and intraday bars always go to the provider.
type Cached struct {
	next   domrepo.MarketData
	cache  cache.Service
	ttl    time.Duration
	group  singleflight.Group
	logger *applogger.Logger
}

func NewCached(next domrepo.MarketData, c cache.Service, ttl time.Duration, logger *applogger.Logger) domrepo.MarketData {
	return &Cached{next: next, cache: c, ttl: ttl, logger: logger.Component("marketdata_cache")}
}

func (c *Cached) DailyBars(ctx context.Context, ticker string) ([]models.Bar, error) {
	key := cache.Key("bars:daily", ticker)
	if bars, err := cache.GetJSON[[]models.Bar](ctx, c.cache, key); err == nil {
		return bars, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("daily bars cache read failed", applogger.String("ticker", ticker), applogger.Error(err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		bars, err := c.next.DailyBars(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(ctx, c.cache, key, bars, c.ttl); err != nil {
			c.logger.Warn("daily bars cache write failed", applogger.String("ticker", ticker), applogger.Error(err))
		}
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Bar), nil
}

func (c *Cached) LiveQuote(ctx context.Context, ticker string) (models.Quote, error) {
	return c.next.LiveQuote(ctx, ticker)
}

func (c *Cached) IntradayBars(ctx context.Context, ticker string) ([]models.Bar, error) {
	return c.next.IntradayBars(ctx, ticker)
}
