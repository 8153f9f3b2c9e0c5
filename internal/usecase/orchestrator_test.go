package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	"BarPulse/internal/repository"
	"BarPulse/pkg/logger"
)

// fakeStream emits a fixed set of bars, then either blocks until cancel or
// returns a terminal error.
type fakeStream struct {
	name string
	bars []models.Bar
	err  error
}

func (s *fakeStream) Name() string { return s.name }

func (s *fakeStream) StreamBars(ctx context.Context, out chan<- models.Bar) error {
	for _, b := range s.bars {
		select {
		case out <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func storedCount(store *repository.MemoryBarStore, symbol string) int {
	bars, _ := store.FetchBars(context.Background(), symbol, "1m", 0)
	return len(bars)
}

func TestOrchestratorWSMode(t *testing.T) {
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m"})

	ws := &fakeStream{name: "binance_ws", bars: []models.Bar{
		minuteBar(1700000100, 100, 105, 99, 104, 20),
		minuteBar(1700000160, 104, 110, 103, 109, 20),
	}}

	o := NewOrchestrator(agg, nopMetrics{}, logger.Nop(),
		WithBinanceStreams(ws, nil, TransportWS),
		WithShutdownTimeout(2*time.Second),
	)
	require.NoError(t, o.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return storedCount(store, "BTCUSDT") == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, TransportWS, o.ActiveBinanceTransport())
	require.NoError(t, o.Stop())
}

func TestOrchestratorAutoFailsOverToRest(t *testing.T) {
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m"})

	ws := &fakeStream{name: "binance_ws", err: drepo.ErrTransportUnavailable}
	rest := &fakeStream{name: "binance_rest", bars: []models.Bar{
		minuteBar(1700000100, 100, 105, 99, 104, 20),
	}}

	o := NewOrchestrator(agg, nopMetrics{}, logger.Nop(),
		WithBinanceStreams(ws, rest, TransportAuto),
		WithShutdownTimeout(2*time.Second),
	)
	require.NoError(t, o.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return o.ActiveBinanceTransport() == TransportREST &&
			storedCount(store, "BTCUSDT") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, o.Stop())
}

func TestOrchestratorAutoStaysOnWSWhileHealthy(t *testing.T) {
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m"})

	ws := &fakeStream{name: "binance_ws", bars: []models.Bar{
		minuteBar(1700000100, 100, 105, 99, 104, 20),
	}}
	rest := &fakeStream{name: "binance_rest"}

	o := NewOrchestrator(agg, nopMetrics{}, logger.Nop(),
		WithBinanceStreams(ws, rest, TransportAuto),
		WithShutdownTimeout(2*time.Second),
	)
	require.NoError(t, o.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return storedCount(store, "BTCUSDT") == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, TransportWS, o.ActiveBinanceTransport())

	require.NoError(t, o.Stop())
}

func TestOrchestratorRunsOandaAlongsideBinance(t *testing.T) {
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m"})

	ws := &fakeStream{name: "binance_ws", bars: []models.Bar{
		minuteBar(1700000100, 100, 105, 99, 104, 20),
	}}
	oanda := &fakeStream{name: "oanda", bars: []models.Bar{
		{Symbol: "EUR_USD", Interval: "1m", Ts: 1700000100, Open: 1.05, High: 1.06, Low: 1.04, Close: 1.055, Volume: 0},
	}}

	o := NewOrchestrator(agg, nopMetrics{}, logger.Nop(),
		WithBinanceStreams(ws, nil, TransportWS),
		WithOandaStream(oanda),
		WithShutdownTimeout(2*time.Second),
	)
	require.NoError(t, o.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return storedCount(store, "BTCUSDT") == 1 && storedCount(store, "EUR_USD") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, o.Stop())
}

func TestOrchestratorUnknownModeFails(t *testing.T) {
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m"})

	o := NewOrchestrator(agg, nopMetrics{}, logger.Nop(),
		WithBinanceStreams(&fakeStream{name: "ws"}, nil, "carrier-pigeon"),
	)
	assert.Error(t, o.Start(context.Background()))
}
