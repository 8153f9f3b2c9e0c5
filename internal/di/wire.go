//go:build wireinject
// +build wireinject

package di

import (
	"BarPulse/pkg/config"
	"BarPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideBarStore,
		ProvideBarPublisher,
		ProvideCache,

		// Streaming pipeline
		ProvideIngestFilter,
		ProvideAggregator,
		ProvideOrchestrator,

		// Signal engine and API
		ProvideSignalEngine,
		ProvideInstrumentsCatalog,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
