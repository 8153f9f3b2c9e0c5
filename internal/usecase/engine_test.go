package usecase

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarPulse/internal/domain/models"
	"BarPulse/internal/repository"
	"BarPulse/pkg/cache"
	"BarPulse/pkg/logger"
)

// countingStore wraps the memory store to observe fetch traffic.
type countingStore struct {
	*repository.MemoryBarStore
	fetches int64
}

func (s *countingStore) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	atomic.AddInt64(&s.fetches, 1)
	return s.MemoryBarStore.FetchBars(ctx, symbol, interval, limit)
}

func seedUptrend(t *testing.T, store *repository.MemoryBarStore, symbol, interval string, n int) {
	t.Helper()
	bars := make([]models.Bar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		bars[i] = models.Bar{
			Symbol:   symbol,
			Interval: interval,
			Ts:       1700000100 + int64(i)*60,
			Open:     price,
			High:     price + 1,
			Low:      price - 1,
			Close:    price,
			Volume:   10,
		}
		price *= 1.01
	}
	_, err := store.UpsertBars(context.Background(), bars)
	require.NoError(t, err)
}

func TestGenerateSignalUptrend(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	seedUptrend(t, store, "BTCUSDT", "1m", 60)

	asOf := time.Unix(1700010000, 0)
	engine := NewSignalEngine(store, nopMetrics{}, logger.Nop(), WithEngineClock(func() time.Time { return asOf }))

	resp, err := engine.GenerateSignal(ctx, "BTCUSDT", []string{"1m"}, 100, false)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", resp.Symbol)
	assert.Equal(t, models.StateStrongBuy, resp.State)
	assert.Greater(t, resp.Confidence, 0.5)
	assert.Equal(t, int64(1700010000), resp.AsOfTs)
	assert.Equal(t, SignalVersion, resp.Version)
	require.Len(t, resp.HorizonDetails, 1)
	assert.Equal(t, "1m", resp.HorizonDetails[0].Horizon)

	require.NotNil(t, resp.TradePlan.EntryPrice)
	assert.Less(t, resp.TradePlan.InvalidationPrice, *resp.TradePlan.EntryPrice)
	assert.Greater(t, resp.TradePlan.ValidUntilTs, resp.AsOfTs)
	assert.Nil(t, resp.Explanation)
}

func TestGenerateSignalEmptyStoreIsNeutral(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	engine := NewSignalEngine(store, nopMetrics{}, logger.Nop())

	resp, err := engine.GenerateSignal(ctx, "BTCUSDT", nil, 0, false)
	require.NoError(t, err)

	assert.Equal(t, models.StateNeutral, resp.State)
	assert.Zero(t, resp.Confidence)
	assert.Empty(t, resp.HorizonDetails)
	assert.Contains(t, resp.Consensus.Rationale, "no_data")
	assert.Contains(t, resp.TradePlan.Rationale, "no_data")
	assert.Nil(t, resp.TradePlan.EntryPrice)
}

func TestGenerateSignalSkipsFailedHorizons(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	seedUptrend(t, store, "BTCUSDT", "1m", 30)

	engine := NewSignalEngine(store, nopMetrics{}, logger.Nop())

	// 1h holds no data and must simply be absent from the details.
	resp, err := engine.GenerateSignal(ctx, "BTCUSDT", []string{"1m", "1h"}, 100, false)
	require.NoError(t, err)
	require.Len(t, resp.HorizonDetails, 1)
	assert.Equal(t, "1m", resp.HorizonDetails[0].Horizon)
}

func TestGenerateSignalExplainMode(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	seedUptrend(t, store, "BTCUSDT", "1m", 60)

	engine := NewSignalEngine(store, nopMetrics{}, logger.Nop())

	resp, err := engine.GenerateSignal(ctx, "BTCUSDT", []string{"1m"}, 100, true)
	require.NoError(t, err)
	require.NotNil(t, resp.Explanation)
	assert.NotEmpty(t, resp.Explanation.Drivers)
	assert.False(t, math.IsNaN(resp.Explanation.ConfidenceBreakdown.Total))
}

func TestGenerateSignalCacheHit(t *testing.T) {
	ctx := context.Background()
	inner := repository.NewMemoryBarStore()
	seedUptrend(t, inner, "BTCUSDT", "1m", 60)
	store := &countingStore{MemoryBarStore: inner}

	c := cache.NewMemoryCache()
	engine := NewSignalEngine(store, nopMetrics{}, logger.Nop(),
		WithSignalCache(c, time.Minute),
	)

	first, err := engine.GenerateSignal(ctx, "BTCUSDT", []string{"1m"}, 100, false)
	require.NoError(t, err)
	fetchesAfterFirst := atomic.LoadInt64(&store.fetches)
	require.Greater(t, fetchesAfterFirst, int64(0))

	second, err := engine.GenerateSignal(ctx, "BTCUSDT", []string{"1m"}, 100, false)
	require.NoError(t, err)
	assert.Equal(t, fetchesAfterFirst, atomic.LoadInt64(&store.fetches))
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Confidence, second.Confidence)

	// A different request shape misses the cache.
	_, err = engine.GenerateSignal(ctx, "BTCUSDT", []string{"1m"}, 50, false)
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt64(&store.fetches), fetchesAfterFirst)
}
