package oanda

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarPulse/internal/domain/models"
	"BarPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordBarIngested(string, string)     {}
func (nopMetrics) RecordError(string)                   {}
func (nopMetrics) RecordLastClose(string, float64)      {}
func (nopMetrics) RecordLatency(string, float64)        {}
func (nopMetrics) RecordActiveTransport(string, string) {}

func newTestStream(t *testing.T, opts ...StreamOption) *TickStream {
	t.Helper()
	return NewTickStream("practice", "key", "acct-123", []string{"EUR_USD"}, logger.Nop(), nopMetrics{}, opts...)
}

func priceLine(instrument, ts string, bid, ask float64) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"PRICE","time":%q,"instrument":%q,"bids":[{"price":"%f"}],"asks":[{"price":"%f"}]}`,
		ts, instrument, bid, ask,
	))
}

func TestProcessLineSkipsHeartbeat(t *testing.T) {
	s := newTestStream(t)

	_, ok := s.processLine([]byte(`{"type":"HEARTBEAT","time":"1700000110.123"}`))
	assert.False(t, ok)
}

func TestProcessLineSkipsMalformed(t *testing.T) {
	s := newTestStream(t)

	_, ok := s.processLine([]byte(`{not json`))
	assert.False(t, ok)

	_, ok = s.processLine([]byte(`{"type":"PRICE","time":"soon","instrument":"EUR_USD","bids":[{"price":"1.05"}]}`))
	assert.False(t, ok)
}

func TestProcessLineBuildsMinuteBars(t *testing.T) {
	s := newTestStream(t)

	_, ok := s.processLine(priceLine("EUR_USD", "1700000110.5", 1.0500, 1.0502))
	assert.False(t, ok)
	_, ok = s.processLine(priceLine("EUR_USD", "1700000130.5", 1.0520, 1.0522))
	assert.False(t, ok)

	bar, ok := s.processLine(priceLine("EUR_USD", "1700000170.5", 1.0530, 1.0532))
	require.True(t, ok)
	assert.Equal(t, "EUR_USD", bar.Symbol)
	assert.Equal(t, int64(1700000100), bar.Ts)
	assert.InDelta(t, 1.0501, bar.Open, 1e-9)
	assert.InDelta(t, 1.0521, bar.Close, 1e-9)
}

func TestProcessLineOneSidedQuote(t *testing.T) {
	s := newTestStream(t)

	_, ok := s.processLine([]byte(`{"type":"PRICE","time":"1700000110","instrument":"EUR_USD","bids":[{"price":"1.05"}]}`))
	assert.False(t, ok)

	bar, ok := s.processLine([]byte(`{"type":"PRICE","time":"1700000170","instrument":"EUR_USD","asks":[{"price":"1.06"}]}`))
	require.True(t, ok)
	assert.Equal(t, 1.05, bar.Open)
}

func TestStreamOnceAuthAndParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "UNIX", r.Header.Get("Accept-Datetime-Format"))
		assert.Contains(t, r.URL.Path, "/v3/accounts/acct-123/pricing/stream")

		w.Header().Set("Content-Type", "application/octet-stream")
		lines := [][]byte{
			[]byte(`{"type":"HEARTBEAT","time":"1700000105"}`),
			priceLine("EUR_USD", "1700000110", 1.0500, 1.0502),
			priceLine("EUR_USD", "1700000170", 1.0510, 1.0512),
		}
		for _, line := range lines {
			_, _ = w.Write(append(line, '\n'))
		}
	}))
	defer srv.Close()

	s := newTestStream(t, WithHost(srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := make(chan models.Bar, 4)
	err := s.streamOnce(ctx, out)
	// The fixture body ends, which a live pricing stream never does.
	require.Error(t, err)
	close(out)

	var bars []models.Bar
	for b := range out {
		bars = append(bars, b)
	}
	require.Len(t, bars, 1)
	assert.Equal(t, int64(1700000100), bars[0].Ts)
	assert.InDelta(t, 1.0501, bars[0].Close, 1e-9)
}

func TestStreamOnceRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := newTestStream(t, WithHost(srv.URL))

	err := s.streamOnce(context.Background(), make(chan models.Bar, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
