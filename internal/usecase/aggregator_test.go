package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarPulse/internal/domain/models"
	"BarPulse/internal/repository"
)

func minuteBar(ts int64, o, h, l, c, v float64) models.Bar {
	return models.Bar{
		Symbol:   "BTCUSDT",
		Interval: "1m",
		Ts:       ts,
		Open:     o,
		High:     h,
		Low:      l,
		Close:    c,
		Volume:   v,
	}
}

func TestAggregatorDerivesFiveMinuteBucket(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m", "5m"})

	// 1700000100 is divisible by 300, so all five minutes land in one bucket.
	ts0 := int64(1700000100)
	input := []models.Bar{
		minuteBar(ts0, 100, 105, 99, 104, 20),
		minuteBar(ts0+60, 104, 110, 103, 109, 20),
		minuteBar(ts0+120, 109, 115, 108, 110, 20),
		minuteBar(ts0+180, 110, 112, 105, 106, 20),
		minuteBar(ts0+240, 106, 114, 104, 114, 20),
	}
	for _, b := range input {
		require.NoError(t, agg.Ingest(ctx, b))
	}

	minutes, err := store.FetchBars(ctx, "BTCUSDT", "1m", 0)
	require.NoError(t, err)
	assert.Len(t, minutes, 5)

	fives, err := store.FetchBars(ctx, "BTCUSDT", "5m", 0)
	require.NoError(t, err)
	require.Len(t, fives, 1)

	agg5 := fives[0]
	assert.Equal(t, ts0, agg5.Ts)
	assert.Equal(t, "5m", agg5.Interval)
	assert.Equal(t, 100.0, agg5.Open)
	assert.Equal(t, 115.0, agg5.High)
	assert.Equal(t, 99.0, agg5.Low)
	assert.Equal(t, 114.0, agg5.Close)
	assert.Equal(t, 100.0, agg5.Volume)
}

func TestAggregatorLateBarKeepsBucketOrder(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m", "5m"})

	// The middle minute arrives last; open and close must still come from
	// the first and last minute of the bucket.
	ts0 := int64(1700000100)
	require.NoError(t, agg.Ingest(ctx, minuteBar(ts0, 100, 105, 99, 104, 20)))
	require.NoError(t, agg.Ingest(ctx, minuteBar(ts0+120, 109, 115, 108, 114, 20)))
	require.NoError(t, agg.Ingest(ctx, minuteBar(ts0+60, 104, 110, 103, 109, 20)))

	fives, err := store.FetchBars(ctx, "BTCUSDT", "5m", 0)
	require.NoError(t, err)
	require.Len(t, fives, 1)

	agg5 := fives[0]
	assert.Equal(t, 100.0, agg5.Open)
	assert.Equal(t, 114.0, agg5.Close)
	assert.Equal(t, 115.0, agg5.High)
	assert.Equal(t, 99.0, agg5.Low)
	assert.Equal(t, 60.0, agg5.Volume)
}

func TestAggregatorRedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m", "5m"})

	ts0 := int64(1700000100)
	b1 := minuteBar(ts0, 100, 105, 99, 104, 20)
	b2 := minuteBar(ts0+60, 104, 110, 103, 109, 20)

	require.NoError(t, agg.Ingest(ctx, b1))
	require.NoError(t, agg.Ingest(ctx, b2))
	// Replay of the same minute must replace, not double-count.
	require.NoError(t, agg.Ingest(ctx, b2))

	assert.Equal(t, 2, agg.BufferedCount("BTCUSDT"))

	fives, err := store.FetchBars(ctx, "BTCUSDT", "5m", 0)
	require.NoError(t, err)
	require.Len(t, fives, 1)
	assert.Equal(t, 40.0, fives[0].Volume)
	assert.Equal(t, 109.0, fives[0].Close)
}

func TestAggregatorBucketBoundary(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m", "5m"})

	ts0 := int64(1700000100)
	require.NoError(t, agg.Ingest(ctx, minuteBar(ts0+240, 106, 114, 104, 114, 20)))
	// Next minute opens a new bucket.
	require.NoError(t, agg.Ingest(ctx, minuteBar(ts0+300, 114, 116, 113, 115, 5)))

	fives, err := store.FetchBars(ctx, "BTCUSDT", "5m", 0)
	require.NoError(t, err)
	require.Len(t, fives, 2)
	assert.Equal(t, ts0, fives[0].Ts)
	assert.Equal(t, ts0+300, fives[1].Ts)
	assert.Equal(t, 114.0, fives[1].Open)
	assert.Equal(t, 5.0, fives[1].Volume)
}

func TestAggregatorNonMinuteBarBypassesAggregation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m", "5m"})

	b := models.Bar{
		Symbol: "EURUSD", Interval: "1h", Ts: 1700000000,
		Open: 1.05, High: 1.06, Low: 1.04, Close: 1.055, Volume: 0,
	}
	require.NoError(t, agg.Ingest(ctx, b))

	assert.Equal(t, 0, agg.BufferedCount("EURUSD"))

	hours, err := store.FetchBars(ctx, "EURUSD", "1h", 0)
	require.NoError(t, err)
	require.Len(t, hours, 1)
	assert.Equal(t, b, hours[0])
}

func TestAggregatorDropsInvalidBar(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()
	agg := newTestAggregator(t, store, []string{"1m", "5m"})

	bad := minuteBar(1700000100, 100, 90, 99, 104, 20) // high below low
	require.NoError(t, agg.Ingest(ctx, bad))

	assert.Equal(t, 0, agg.BufferedCount("BTCUSDT"))
	bars, err := store.FetchBars(ctx, "BTCUSDT", "1m", 0)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestNewBarAggregatorRejectsUnknownInterval(t *testing.T) {
	store := repository.NewMemoryBarStore()

	_, err := NewBarAggregator(store, repository.NopBarPublisher{}, nopMetrics{}, nil, nil, []string{"7x"})
	assert.Error(t, err)
}
