package di

import (
	"context"
	"fmt"
	"time"

	"BarPulse/internal/domain/repository"
	"BarPulse/internal/handler/api"
	mid "BarPulse/internal/middleware"
	internalrepo "BarPulse/internal/repository"
	"BarPulse/internal/service/binance"
	"BarPulse/internal/service/oanda"
	"BarPulse/internal/usecase"
	"BarPulse/pkg/cache"
	pkgch "BarPulse/pkg/clickhouse"
	"BarPulse/pkg/config"
	xhttp "BarPulse/pkg/http"
	pkgkafka "BarPulse/pkg/kafka"
	"BarPulse/pkg/logger"
	"BarPulse/pkg/metrics"
	"BarPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBarStore creates the configured bar store backend.
func ProvideBarStore(cfg *config.Config) (repository.BarStore, error) {
	if cfg.Storage.Backend == "memory" {
		return internalrepo.NewMemoryBarStore(), nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := internalrepo.NewClickHouseBarStore(ctx, client.DB(), cfg.ClickHouse.Database+".bars", client.Close)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse bar store: %w", err)
	}
	return store, nil
}

// ProvideBarPublisher creates a Kafka bar publisher when fan-out is enabled,
// otherwise a no-op.
func ProvideBarPublisher(cfg *config.Config) (repository.BarPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopBarPublisher{}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideCache creates the signal response cache, nil when disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	if cfg.Cache.Backend == "redis" {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideIngestFilter creates the bar validation filter.
func ProvideIngestFilter(log *logger.Logger, m repository.Metrics) *mid.IngestFilter {
	return mid.NewIngestFilter(log, m)
}

// ProvideAggregator creates the rolling-window bar aggregator.
func ProvideAggregator(
	store repository.BarStore,
	publisher repository.BarPublisher,
	m repository.Metrics,
	filter *mid.IngestFilter,
	log *logger.Logger,
	cfg *config.Config,
) (*usecase.BarAggregator, error) {
	return usecase.NewBarAggregator(store, publisher, m, filter, log, cfg.Streaming.Intervals)
}

// ProvideOrchestrator wires the enabled bar streams into the aggregator.
func ProvideOrchestrator(
	agg *usecase.BarAggregator,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.Orchestrator {
	opts := []usecase.OrchestratorOption{
		usecase.WithBufferSize(cfg.Streaming.BufferSize),
		usecase.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}

	if cfg.Streaming.Binance.Enabled {
		mode := cfg.Streaming.Binance.Transport
		ws := binance.NewWSStream(
			cfg.Streaming.Binance.WebSocketURL,
			cfg.Streaming.Binance.Symbols,
			log, m,
			binance.WithFailFast(mode == usecase.TransportAuto),
		)
		rest := binance.NewRESTStream(
			cfg.Streaming.Binance.RESTURL,
			cfg.Streaming.Binance.Symbols,
			cfg.Streaming.Binance.RESTPollInterval,
			log, m,
		)
		opts = append(opts, usecase.WithBinanceStreams(ws, rest, mode))
	}

	if cfg.Streaming.Oanda.Enabled {
		stream := oanda.NewTickStream(
			cfg.Streaming.Oanda.Environment,
			cfg.Streaming.Oanda.APIKey,
			cfg.Streaming.Oanda.AccountID,
			cfg.Streaming.Oanda.Instruments,
			log, m,
		)
		opts = append(opts, usecase.WithOandaStream(stream))
	}

	return usecase.NewOrchestrator(agg, m, log, opts...)
}

// ProvideSignalEngine creates the signal engine with optional caching.
func ProvideSignalEngine(
	store repository.BarStore,
	m repository.Metrics,
	log *logger.Logger,
	c cache.Service,
	cfg *config.Config,
) *usecase.SignalEngine {
	opts := []usecase.EngineOption{}
	if c != nil {
		opts = append(opts, usecase.WithSignalCache(c, cfg.Cache.TTL))
	}
	return usecase.NewSignalEngine(store, m, log, opts...)
}

// ProvideInstrumentsCatalog creates the instruments readiness catalog.
func ProvideInstrumentsCatalog(store repository.BarStore) *usecase.InstrumentsCatalog {
	return usecase.NewInstrumentsCatalog(store)
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(
	log *logger.Logger,
	engine *usecase.SignalEngine,
	meta *usecase.InstrumentsCatalog,
	orch *usecase.Orchestrator,
) xhttp.Handler {
	return api.NewSignalsEchoHandler(log, engine, meta, orch)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	orch *usecase.Orchestrator,
	handler xhttp.Handler,
	store repository.BarStore,
	publisher repository.BarPublisher,
	c cache.Service,
) *server.App {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	httpServer := xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
	return server.New(cfg, log, orch, httpServer, store, publisher, c)
}
