package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarPulse/internal/repository"
)

func TestInstrumentsCatalogFiltersByMinBars(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBarStore()

	seedUptrend(t, store, "BTCUSDT", "1m", 30)
	seedUptrend(t, store, "BTCUSDT", "5m", 6)
	seedUptrend(t, store, "ETHUSDT", "1m", 3)

	cat := NewInstrumentsCatalog(store)
	resp, err := cat.List(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT"}, resp.Symbols)
	assert.Equal(t, []string{"1m", "5m"}, resp.Intervals)
	assert.Equal(t, 30, resp.Counts["BTCUSDT"]["1m"])
	assert.Equal(t, 6, resp.Counts["BTCUSDT"]["5m"])
	_, hasEth := resp.Counts["ETHUSDT"]
	assert.False(t, hasEth)
}

func TestInstrumentsCatalogEmptyStore(t *testing.T) {
	ctx := context.Background()
	cat := NewInstrumentsCatalog(repository.NewMemoryBarStore())

	resp, err := cat.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, resp.Symbols)
	assert.Empty(t, resp.Intervals)
	assert.Empty(t, resp.Counts)
}
