package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarPulse/internal/domain/models"
	"BarPulse/pkg/logger"
)

const klinesBody = `[
	[1700000100000, "100.5", "101", "99.5", "100.9", "12.34", 1700000159999],
	[1700000160000, "100.9", "102", "100.1", "101.5", "3.2", 1700000219999]
]`

func TestParseKlineRow(t *testing.T) {
	var rows [][]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(klinesBody), &rows))

	bar, err := parseKlineRow("btcusdt", rows[0])
	require.NoError(t, err)
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

func TestParseKlineRowShort(t *testing.T) {
	var rows [][]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[[1700000100000, "1", "1"]]`), &rows))

	_, err := parseKlineRow("BTCUSDT", rows[0])
	assert.ErrorIs(t, err, errShortKline)
}

func TestRESTStreamEmitsClosedBarOnce(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewRESTStream(srv.URL, []string{"BTCUSDT"}, time.Second, logger.Nop(), nopMetrics{},
		WithRESTSleep(func(ctx context.Context, d time.Duration) {
			// Stop after the second poll cycle so dedup is exercised.
			if atomic.LoadInt64(&requests) >= 2 {
				cancel()
			}
		}),
	)

	out := make(chan models.Bar, 4)
	err := s.StreamBars(ctx, out)
	assert.ErrorIs(t, err, context.Canceled)
	close(out)

	var bars []models.Bar
	for b := range out {
		bars = append(bars, b)
	}
	// Same closed bar served twice yields exactly one emission.
	require.Len(t, bars, 1)
	assert.Equal(t, int64(1700000100), bars[0].Ts)
	assert.Equal(t, 100.9, bars[0].Close)
}

func TestRESTStreamSkipsSingleRowResponse(t *testing.T) {
	// A one-row response holds only the still-open candle and must not be
	// emitted as a closed bar.
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[1700000160000, "100.9", "102", "100.1", "101.5", "3.2", 1700000219999]]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewRESTStream(srv.URL, []string{"BTCUSDT"}, time.Second, logger.Nop(), nopMetrics{},
		WithRESTSleep(func(ctx context.Context, d time.Duration) {
			if atomic.LoadInt64(&requests) >= 1 {
				cancel()
			}
		}),
	)

	out := make(chan models.Bar, 4)
	err := s.StreamBars(ctx, out)
	assert.ErrorIs(t, err, context.Canceled)
	close(out)

	var bars []models.Bar
	for b := range out {
		bars = append(bars, b)
	}
	assert.Empty(t, bars)
}

func TestRESTStreamSurvivesServerErrors(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&requests, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewRESTStream(srv.URL, []string{"BTCUSDT"}, time.Second, logger.Nop(), nopMetrics{},
		WithRESTSleep(func(ctx context.Context, d time.Duration) {
			if atomic.LoadInt64(&requests) >= 2 {
				cancel()
			}
		}),
	)

	out := make(chan models.Bar, 4)
	err := s.StreamBars(ctx, out)
	assert.ErrorIs(t, err, context.Canceled)
	close(out)

	var bars []models.Bar
	for b := range out {
		bars = append(bars, b)
	}
	require.Len(t, bars, 1)
	assert.Equal(t, int64(1700000100), bars[0].Ts)
}

func TestNewRESTStreamEnforcesMinimumPoll(t *testing.T) {
	s := NewRESTStream("http://example.test", nil, 10*time.Millisecond, logger.Nop(), nopMetrics{})
	assert.Equal(t, minPollInterval, s.pollInterval)
}
