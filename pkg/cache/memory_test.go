package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPayload struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
}

func TestMemoryCacheTypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	in := cachedPayload{Symbol: "BTCUSDT", Close: 100.5}
	require.NoError(t, c.Set(ctx, "k1", in, time.Minute))

	var out cachedPayload
	require.NoError(t, c.Get(ctx, "k1", &out))
	assert.Equal(t, in, out)
}

func TestMemoryCacheStringRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k1", "hello", time.Minute))

	var out string
	require.NoError(t, c.Get(ctx, "k1", &out))
	assert.Equal(t, "hello", out)
}

func TestMemoryCacheMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	var out cachedPayload
	assert.ErrorIs(t, c.Get(ctx, "absent", &out), ErrCacheMiss)
}

func TestMemoryCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k1", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var out string
	assert.ErrorIs(t, c.Get(ctx, "k1", &out), ErrCacheMiss)
}

func TestMemoryCacheDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k1", "v", time.Minute))

	ok, err := c.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k1"))

	ok, err = c.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(WithMemoryMaxSize(2))
	defer c.Close()

	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "c", "3", time.Minute))

	var out string
	assert.ErrorIs(t, c.Get(ctx, "a", &out), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, "c", &out))
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, GenerateKey("signal", "BTCUSDT"), GenerateKey("signal", "BTCUSDT"))
	assert.NotEqual(t, GenerateKey("signal", "BTCUSDT"), GenerateKey("signal", "ETHUSDT"))

	k1 := GenerateKeyWithParams("signal", "BTCUSDT", "1m,5m", 100, false)
	k2 := GenerateKeyWithParams("signal", "BTCUSDT", "1m,5m", 100, true)
	assert.NotEqual(t, k1, k2)
}
