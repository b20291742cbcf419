package di

import (
	"context"
	"fmt"
	"time"

	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/handler/api"
	internalrepo "SignalDesk/internal/repository"
	"SignalDesk/internal/scheduler"
	"SignalDesk/internal/service/marketdata"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/cache"
	pkgch "SignalDesk/pkg/clickhouse"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/http/middleware"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/metrics"
	"SignalDesk/pkg/server"
	"SignalDesk/pkg/ws"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const connectTimeout = 10 * time.Second

// ProvideLogger builds the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the private Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the domain metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideRedis connects to Redis when a component is configured to use it.
// It returns nil otherwise.
func ProvideRedis(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.RedisRequired() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideHub creates the websocket hub.
func ProvideHub(logger *applogger.Logger) *ws.Hub {
	return ws.NewHub(logger)
}

// ProvideKafkaProducer creates a producer when brokers are configured. It
// returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.KafkaEnabled() {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaBroadcaster queues broadcast envelopes for the producer. It
// returns nil when there is no producer.
func ProvideKafkaBroadcaster(cfg *config.Config, producer *pkgkafka.Producer, logger *applogger.Logger) *internalrepo.KafkaBroadcaster {
	if producer == nil {
		return nil
	}
	p := cfg.Kafka.Producer
	return internalrepo.NewKafkaBroadcaster(producer, cfg.Kafka.BroadcastTopic,
		p.BroadcastBuffer, p.WriteTimeout*time.Duration(max(p.MaxAttempts, 1)), logger)
}

// ProvideBroadcaster fans events out to the hub and, when configured, Kafka.
func ProvideBroadcaster(hub *ws.Hub, kb *internalrepo.KafkaBroadcaster) repository.Broadcaster {
	targets := []repository.Broadcaster{hub}
	if kb != nil {
		targets = append(targets, kb)
	}
	return internalrepo.NewMultiBroadcaster(targets...)
}

// ProvideTimeframes builds the recognized timeframe set.
func ProvideTimeframes(cfg *config.Config) repository.Timeframes {
	return repository.NewTimeframes(cfg.Alerts.Timeframes, cfg.Alerts.PrimaryTimeframe)
}

// ProvideDocumentStore selects where the alert document lives.
func ProvideDocumentStore(cfg *config.Config, rc *cache.RedisCache) repository.AlertDocumentStore {
	if cfg.Alerts.Backend == "redis" {
		return internalrepo.NewRedisDocumentStore(rc)
	}
	return internalrepo.NewFileDocumentStore(cfg.Alerts.DataDir, cfg.Alerts.FileName)
}

// ProvideReplayGuard selects the in-process or Redis replay guard.
func ProvideReplayGuard(cfg *config.Config, rc *cache.RedisCache) repository.ReplayGuard {
	if cfg.Webhook.Replay == "redis" {
		return internalrepo.NewRedisReplayGuard(rc, cfg.Webhook.DedupeWindow)
	}
	return usecase.NewMemoryReplayGuard(cfg.Webhook.DedupeWindow, 0)
}

// ProvideAlertJournal opens the ClickHouse journal when enabled. It returns
// nil otherwise.
func ProvideAlertJournal(cfg *config.Config) (repository.AlertJournal, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	journal, err := internalrepo.NewCHAlertJournal(ctx, client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return journal, nil
}

// ProvideNormalizer builds the payload normalizer in the configured zone.
func ProvideNormalizer(cfg *config.Config, tfs repository.Timeframes) (*usecase.Normalizer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("alerts timezone: %w", err)
	}
	var opts []usecase.NormalizerOption
	if cfg.Alerts.AcceptUnknownTimeframes {
		opts = append(opts, usecase.WithUnknownTimeframes())
	}
	return usecase.NewNormalizer(tfs, loc, opts...), nil
}

// ProvideAlertStore creates the merge store.
func ProvideAlertStore(
	cfg *config.Config,
	docs repository.AlertDocumentStore,
	broadcaster repository.Broadcaster,
	m repository.Metrics,
	logger *applogger.Logger,
	tfs repository.Timeframes,
) *usecase.AlertStore {
	return usecase.NewAlertStore(docs, broadcaster, m, logger, tfs, cfg.Alerts.MaxRows, cfg.Alerts.StoreTimeout)
}

// ProvideAlertIngestor wires normalize, replay suppression and merge.
func ProvideAlertIngestor(
	normalizer *usecase.Normalizer,
	guard repository.ReplayGuard,
	store *usecase.AlertStore,
	journal repository.AlertJournal,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.AlertIngestor {
	return usecase.NewAlertIngestor(normalizer, guard, store, journal, m, logger)
}

// ProvideMarketData selects the provider and wraps it in the daily-bar cache.
func ProvideMarketData(cfg *config.Config, rc *cache.RedisCache, logger *applogger.Logger) repository.MarketData {
	var md repository.MarketData
	switch cfg.MarketData.Provider {
	case "finnhub":
		md = marketdata.NewFinnhub(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.Timeout)
	default:
		md = marketdata.NewYahoo(cfg.MarketData.BaseURL, cfg.MarketData.Timeout)
	}

	var c cache.Service
	switch cfg.MarketData.Cache {
	case "none":
		return md
	case "redis":
		c = rc
	case "layered":
		c = cache.NewLayeredCache(rc, cache.NewMemoryCache(), time.Minute)
	default:
		c = cache.NewMemoryCache()
	}
	return marketdata.NewCached(md, c, cfg.MarketData.DailyBarsTTL, logger)
}

// ProvidePivotEngine creates the pivot engine.
func ProvidePivotEngine(
	cfg *config.Config,
	md repository.MarketData,
	broadcaster repository.Broadcaster,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.PivotEngine {
	return usecase.NewPivotEngine(md, broadcaster, m, logger, usecase.PivotEngineConfig{
		Concurrency:  cfg.Pivot.Concurrency,
		FetchTimeout: cfg.Pivot.FetchTimeout,
		MA20Enabled:  cfg.Pivot.MA20Enabled,
	})
}

// ProvideTickerResolver resolves tickers from the flag, config, file or store.
func ProvideTickerResolver(
	cfg *config.Config,
	explicit usecase.ExplicitTickers,
	store *usecase.AlertStore,
	logger *applogger.Logger,
) *usecase.TickerResolver {
	return usecase.NewTickerResolver(explicit, cfg.Pivot.Tickers, cfg.Pivot.TickersFile, store, logger)
}

// ProvideLimiter creates the webhook rate limiter. Capacity 0 disables it.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Webhook.RateLimit.Capacity, cfg.Webhook.RateLimit.RefillPerSec)
}

// ProvideScheduler creates the job scheduler.
func ProvideScheduler(logger *applogger.Logger) *scheduler.Scheduler {
	return scheduler.New(logger)
}

// ProvideAlertTopicHandler returns nil unless an alerts topic is configured.
func ProvideAlertTopicHandler(cfg *config.Config, ingestor *usecase.AlertIngestor, logger *applogger.Logger) *usecase.AlertTopicHandler {
	if cfg.Kafka.AlertsTopic == "" {
		return nil
	}
	return usecase.NewAlertTopicHandler(cfg.Kafka.AlertsTopic, ingestor, logger)
}

// ProvideKafkaConsumer creates a consumer for the alerts topic. It returns nil
// when no topic is configured.
func ProvideKafkaConsumer(
	cfg *config.Config,
	reg *prometheus.Registry,
	logger *applogger.Logger,
	handler *usecase.AlertTopicHandler,
) (*pkgkafka.Consumer, error) {
	if handler == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(handler)
	return consumer, nil
}

// ProvideHTTPServer registers the webhook and dashboard routes.
func ProvideHTTPServer(
	cfg *config.Config,
	reg *prometheus.Registry,
	logger *applogger.Logger,
	ingestor *usecase.AlertIngestor,
	store *usecase.AlertStore,
	engine *usecase.PivotEngine,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
) *xhttp.Server {
	var allower middleware.Allower
	if limiter.Enabled() {
		allower = limiter
	}
	handlers := xhttp.Handlers{
		api.NewWebhookHandler(logger, ingestor, cfg.Webhook.Secret, allower, cfg.Webhook.MaxBodyBytes),
		api.NewDashboardHandler(logger, store, engine, hub),
	}
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithRegistry(reg),
		xhttp.WithLogger(logger),
	)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	resolver *usecase.TickerResolver,
	engine *usecase.PivotEngine,
	sched *scheduler.Scheduler,
	limiter *ratelimit.Limiter,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	kb *internalrepo.KafkaBroadcaster,
	producer *pkgkafka.Producer,
	journal repository.AlertJournal,
	rc *cache.RedisCache,
) *server.App {
	app := server.New(cfg, logger, resolver, engine, sched, limiter, consumer, httpServer)
	app.AddCloser("ws_hub", hub.Close)
	if kb != nil {
		app.AddCloser("kafka_broadcast", kb.Close)
	}
	if producer != nil {
		app.AddCloser("kafka_producer", producer.Close)
	}
	if journal != nil {
		app.AddCloser("alert_journal", journal.Close)
	}
	if rc != nil {
		app.AddCloser("redis", rc.Close)
	}
	return app
}
