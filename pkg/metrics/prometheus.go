package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsIngested    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastClose       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	activeTransport *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barpulse_bars_ingested_total",
				Help: "Total number of finalized bars ingested per provider",
			},
			[]string{"provider", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "barpulse_last_close",
				Help: "Last ingested close price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "barpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		activeTransport: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "barpulse_active_transport",
				Help: "1 for the transport currently active on a venue, 0 otherwise",
			},
			[]string{"venue", "transport"},
		),
	}
}

// RecordBarIngested counts one finalized bar from a provider.
func (r *Recorder) RecordBarIngested(provider, symbol string) {
	r.barsIngested.WithLabelValues(provider, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastClose records the last close price for a symbol.
func (r *Recorder) RecordLastClose(symbol string, close float64) {
	r.lastClose.WithLabelValues(symbol).Set(close)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordActiveTransport marks a transport active for a venue, clearing the others.
func (r *Recorder) RecordActiveTransport(venue, transport string) {
	for _, t := range []string{"ws", "rest"} {
		v := 0.0
		if t == transport {
			v = 1.0
		}
		r.activeTransport.WithLabelValues(venue, t).Set(v)
	}
}
