package server

import (
	"context"
	"time"

	"SignalDesk/internal/scheduler"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

type closer struct {
	name  string
	close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	resolver   *usecase.TickerResolver
	engine     *usecase.PivotEngine
	scheduler  *scheduler.Scheduler
	limiter    *ratelimit.Limiter
	consumer   *pkgkafka.Consumer
	httpServer *xhttp.Server
	closers    []closer
}

// New creates a new App instance. consumer may be nil.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	resolver *usecase.TickerResolver,
	engine *usecase.PivotEngine,
	sched *scheduler.Scheduler,
	limiter *ratelimit.Limiter,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger.Component("app"),
		resolver:   resolver,
		engine:     engine,
		scheduler:  sched,
		limiter:    limiter,
		consumer:   consumer,
		httpServer: httpServer,
	}
}

// AddCloser registers a resource released at shutdown, in registration order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Run starts every component and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	tickers, source := a.resolver.Resolve(ctx)
	a.engine.SetTickers(tickers)
	a.logger.Info("pivot tickers resolved", applogger.String("source", source), applogger.Strings("tickers", tickers))

	if err := a.schedule(); err != nil {
		return err
	}
	a.scheduler.Start(ctx)

	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			a.logger.Error("kafka consumer start failed", applogger.Error(err))
			return a.shutdown(ctx, err)
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start failed", applogger.Error(err))
		return a.shutdown(ctx, err)
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx, nil)
}

func (a *App) schedule() error {
	if a.cfg.Pivot.Enabled {
		err := a.scheduler.Every("pivot_tick", a.cfg.Pivot.Interval, func(ctx context.Context) {
			a.engine.Tick(ctx)
		})
		if err != nil {
			return err
		}
	}
	if idle := a.cfg.Webhook.RateLimit.IdleTTL; a.limiter.Enabled() && idle > 0 {
		err := a.scheduler.Every("ratelimit_prune", idle, func(context.Context) {
			if n := a.limiter.Prune(idle); n > 0 {
				a.logger.Debug("rate limit buckets pruned", applogger.Int("pruned", n))
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// shutdown stops intake first, then background work, then shared clients.
func (a *App) shutdown(ctx context.Context, cause error) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := a.httpServer.Stop(stopCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop error", applogger.Error(err))
	}
	for _, c := range a.closers {
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return cause
}
