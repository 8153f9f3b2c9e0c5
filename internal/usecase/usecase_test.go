package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	mid "BarPulse/internal/middleware"
	"BarPulse/internal/repository"
	"BarPulse/pkg/logger"
)

// nopMetrics satisfies the metrics contract without touching the global
// prometheus registry, which only tolerates one registration per process.
type nopMetrics struct{}

func (nopMetrics) RecordBarIngested(string, string)     {}
func (nopMetrics) RecordError(string)                   {}
func (nopMetrics) RecordLastClose(string, float64)      {}
func (nopMetrics) RecordLatency(string, float64)        {}
func (nopMetrics) RecordActiveTransport(string, string) {}

func newTestAggregator(t *testing.T, store *repository.MemoryBarStore, intervals []string) *BarAggregator {
	t.Helper()
	log := logger.Nop()
	filter := mid.NewIngestFilter(log, nopMetrics{})
	agg, err := NewBarAggregator(store, repository.NopBarPublisher{}, nopMetrics{}, filter, log, intervals)
	require.NoError(t, err)
	return agg
}
