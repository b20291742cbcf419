//go:build wireinject
// +build wireinject

package di

import (
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/config"
	"SignalDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config, explicit usecase.ExplicitTickers) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedis,
		ProvideKafkaProducer,
		ProvideAlertJournal,
		ProvideHub,

		// Repositories
		ProvideKafkaBroadcaster,
		ProvideBroadcaster,
		ProvideTimeframes,
		ProvideDocumentStore,
		ProvideReplayGuard,
		ProvideMarketData,

		// Use cases
		ProvideNormalizer,
		ProvideAlertStore,
		ProvideAlertIngestor,
		ProvidePivotEngine,
		ProvideTickerResolver,
		ProvideAlertTopicHandler,

		// Runtime
		ProvideLimiter,
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
