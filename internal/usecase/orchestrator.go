package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	"BarPulse/pkg/logger"
)

// Binance transport modes.
const (
	TransportWS   = "ws"
	TransportREST = "rest"
	TransportAuto = "auto"
)

// Orchestrator supervises the enabled bar streams and feeds everything they
// emit into the aggregator. Streams are isolated: one stream ending does not
// stop its siblings. In auto mode the Binance websocket runs fail-fast and a
// transport give-up permanently switches that venue to REST polling.
type Orchestrator struct {
	agg     *BarAggregator
	metrics drepo.Metrics
	log     *logger.Logger

	binanceWS   drepo.BarStream
	binanceREST drepo.BarStream
	oanda       drepo.BarStream

	mode            string
	bufferSize      int
	shutdownTimeout time.Duration

	mu              sync.Mutex
	activeTransport string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OrchestratorOption configures Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithBinanceStreams sets the Binance websocket and REST streams together
// with the transport mode.
func WithBinanceStreams(ws, rest drepo.BarStream, mode string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.binanceWS = ws
		o.binanceREST = rest
		o.mode = mode
	}
}

// WithOandaStream sets the OANDA tick stream.
func WithOandaStream(stream drepo.BarStream) OrchestratorOption {
	return func(o *Orchestrator) {
		o.oanda = stream
	}
}

// WithBufferSize sets the per-stream bar channel capacity.
func WithBufferSize(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.bufferSize = n
	}
}

// WithShutdownTimeout bounds Stop.
func WithShutdownTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.shutdownTimeout = d
	}
}

// NewOrchestrator creates a stream orchestrator.
func NewOrchestrator(agg *BarAggregator, metrics drepo.Metrics, log *logger.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		agg:             agg,
		metrics:         metrics,
		log:             log,
		mode:            TransportAuto,
		bufferSize:      2000,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches all configured streams. It returns immediately; streams
// run until Stop.
func (o *Orchestrator) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	if o.binanceWS != nil || o.binanceREST != nil {
		if err := o.startBinance(runCtx); err != nil {
			cancel()
			return err
		}
	}

	if o.oanda != nil {
		o.runStream(runCtx, o.oanda)
	}

	return nil
}

func (o *Orchestrator) startBinance(ctx context.Context) error {
	switch o.mode {
	case TransportWS:
		o.setActiveTransport(TransportWS)
		o.runStream(ctx, o.binanceWS)
	case TransportREST:
		o.setActiveTransport(TransportREST)
		o.runStream(ctx, o.binanceREST)
	case TransportAuto:
		o.setActiveTransport(TransportWS)
		o.runAutoFailover(ctx)
	default:
		return fmt.Errorf("unknown binance transport mode: %s", o.mode)
	}
	return nil
}

// ActiveBinanceTransport reports which Binance transport currently feeds
// the pipeline.
func (o *Orchestrator) ActiveBinanceTransport() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeTransport
}

func (o *Orchestrator) setActiveTransport(transport string) {
	o.mu.Lock()
	o.activeTransport = transport
	o.mu.Unlock()
	o.metrics.RecordActiveTransport("binance", transport)
}

// runStream pumps one stream into the aggregator until ctx is cancelled.
func (o *Orchestrator) runStream(ctx context.Context, stream drepo.BarStream) {
	ch := make(chan models.Bar, o.bufferSize)

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		defer close(ch)
		if err := stream.StreamBars(ctx, ch); err != nil && !errors.Is(err, context.Canceled) {
			o.log.Error("stream terminated",
				logger.String("stream", stream.Name()),
				logger.Error(err),
			)
		}
	}()
	go func() {
		defer o.wg.Done()
		o.consume(ctx, stream.Name(), ch)
	}()
}

// runAutoFailover runs the websocket until it gives up on the transport,
// then switches the venue to REST polling for the life of the process.
func (o *Orchestrator) runAutoFailover(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ch := make(chan models.Bar, o.bufferSize)
		done := make(chan error, 1)
		go func() {
			defer close(ch)
			done <- o.binanceWS.StreamBars(ctx, ch)
		}()

		consumeDone := make(chan struct{})
		go func() {
			defer close(consumeDone)
			o.consume(ctx, o.binanceWS.Name(), ch)
		}()

		err := <-done
		<-consumeDone
		if ctx.Err() != nil {
			return
		}
		if !errors.Is(err, drepo.ErrTransportUnavailable) {
			o.log.Error("binance websocket terminated", logger.Error(err))
			return
		}

		o.log.Warn("binance websocket unavailable, switching venue to rest polling")
		o.setActiveTransport(TransportREST)

		restCh := make(chan models.Bar, o.bufferSize)
		go func() {
			defer close(restCh)
			if err := o.binanceREST.StreamBars(ctx, restCh); err != nil && !errors.Is(err, context.Canceled) {
				o.log.Error("binance rest stream terminated", logger.Error(err))
			}
		}()
		o.consume(ctx, o.binanceREST.Name(), restCh)
	}()
}

func (o *Orchestrator) consume(ctx context.Context, provider string, ch <-chan models.Bar) {
	for b := range ch {
		o.metrics.RecordBarIngested(provider, b.Symbol)
		if err := o.agg.Ingest(ctx, b); err != nil {
			o.log.Error("bar ingest failed",
				logger.String("provider", provider),
				logger.String("symbol", b.Symbol),
				logger.Error(err),
			)
		}
	}
}

// Stop cancels all streams and waits for them, bounded by the shutdown
// timeout.
func (o *Orchestrator) Stop() error {
	if o.cancel != nil {
		o.cancel()
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(o.shutdownTimeout):
		return fmt.Errorf("orchestrator shutdown timed out after %s", o.shutdownTimeout)
	}
}
