package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"BarPulse/internal/domain/repository"
	"BarPulse/internal/usecase"
	"BarPulse/pkg/cache"
	"BarPulse/pkg/config"
	xhttp "BarPulse/pkg/http"
	"BarPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: stream orchestration,
// the HTTP API and infrastructure teardown.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	orch       *usecase.Orchestrator
	httpServer *xhttp.Server
	store      repository.BarStore
	publisher  repository.BarPublisher
	cache      cache.Service
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *logger.Logger,
	orch *usecase.Orchestrator,
	httpServer *xhttp.Server,
	store repository.BarStore,
	publisher repository.BarPublisher,
	c cache.Service,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		orch:       orch,
		httpServer: httpServer,
		store:      store,
		publisher:  publisher,
		cache:      c,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.orch.Start(ctx); err != nil {
		return err
	}
	a.log.Info("stream orchestrator started",
		logger.String("binance_transport", a.orch.ActiveBinanceTransport()),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}
	a.log.Info("http server started", logger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if err := a.orch.Stop(); err != nil {
		a.log.Warn("orchestrator stop error", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}

	if err := a.publisher.Close(); err != nil {
		a.log.Warn("publisher close error", logger.Error(err))
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", logger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close error", logger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
