package binance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	"BarPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordBarIngested(string, string)     {}
func (nopMetrics) RecordError(string)                   {}
func (nopMetrics) RecordLastClose(string, float64)      {}
func (nopMetrics) RecordLatency(string, float64)        {}
func (nopMetrics) RecordActiveTransport(string, string) {}

func newTestWS(t *testing.T, opts ...WSOption) *WSStream {
	t.Helper()
	return NewWSStream("wss://example.test", []string{"BTCUSDT", "ETHUSDT"}, logger.Nop(), nopMetrics{}, opts...)
}

func TestCombinedStreamURL(t *testing.T) {
	s := newTestWS(t)
	assert.Equal(t,
		"wss://example.test/stream?streams=btcusdt@kline_1m/ethusdt@kline_1m",
		s.combinedStreamURL(),
	)
}

func TestParseKlineFinal(t *testing.T) {
	s := newTestWS(t)
	raw := []byte(`{
		"stream": "btcusdt@kline_1m",
		"data": {
			"e": "kline",
			"s": "btcusdt",
			"k": {"t": 1700000100000, "o": "100.5", "h": "101", "l": "99.5", "c": "100.9", "v": "12.34", "x": true}
		}
	}`)

	bar, ok := s.parseKline(raw)
	require.True(t, ok)
	assert.Equal(t, models.Bar{
		Symbol:   "BTCUSDT",
		Interval: "1m",
		Ts:       1700000100,
		Open:     100.5,
		High:     101,
		Low:      99.5,
		Close:    100.9,
		Volume:   12.34,
	}, bar)
}

func TestParseKlineSkipsUnfinished(t *testing.T) {
	s := newTestWS(t)
	raw := []byte(`{"stream":"btcusdt@kline_1m","data":{"e":"kline","s":"BTCUSDT","k":{"t":1700000100000,"o":"1","h":"1","l":"1","c":"1","v":"1","x":false}}}`)

	_, ok := s.parseKline(raw)
	assert.False(t, ok)
}

func TestParseKlineSkipsOtherEvents(t *testing.T) {
	s := newTestWS(t)
	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","s":"BTCUSDT"}}`)

	_, ok := s.parseKline(raw)
	assert.False(t, ok)
}

func TestParseKlineMalformed(t *testing.T) {
	s := newTestWS(t)

	_, ok := s.parseKline([]byte(`{not json`))
	assert.False(t, ok)

	_, ok = s.parseKline([]byte(`{"stream":"x","data":{"e":"kline","s":"BTCUSDT","k":{"t":1,"o":"oops","h":"1","l":"1","c":"1","v":"1","x":true}}}`))
	assert.False(t, ok)
}

func TestStreamBarsFailFastGivesUpAfterConsecutiveDialFailures(t *testing.T) {
	dials := 0
	s := newTestWS(t,
		WithFailFast(true),
		WithDialer(func(ctx context.Context, url string) (*websocket.Conn, error) {
			dials++
			return nil, errors.New("connection refused")
		}),
		WithSleep(func(ctx context.Context, d time.Duration) {}),
	)

	err := s.StreamBars(context.Background(), make(chan models.Bar, 1))
	assert.ErrorIs(t, err, drepo.ErrTransportUnavailable)
	assert.Equal(t, handshakeFailureLimit, dials)
}

func TestStreamBarsWithoutFailFastRetriesUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dials := 0
	s := newTestWS(t,
		WithDialer(func(ctx context.Context, url string) (*websocket.Conn, error) {
			dials++
			if dials > handshakeFailureLimit+2 {
				cancel()
			}
			return nil, errors.New("connection refused")
		}),
		WithSleep(func(ctx context.Context, d time.Duration) {}),
	)

	err := s.StreamBars(ctx, make(chan models.Bar, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Greater(t, dials, handshakeFailureLimit)
}

func TestBackoffCapped(t *testing.T) {
	assert.LessOrEqual(t, backoff(30), maxBackoff)
	assert.GreaterOrEqual(t, backoff(0), time.Second)
}
