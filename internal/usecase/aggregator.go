package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	mid "BarPulse/internal/middleware"
	"BarPulse/pkg/logger"
)

// maxBufferedBars bounds the per-symbol rolling window of 1m bars kept for
// higher-interval aggregation.
const maxBufferedBars = 2000

// BarAggregator maintains per-symbol rolling windows of 1m bars and derives
// higher-interval bars from them. Each ingested 1m bar is persisted together
// with all derived partial buckets in one batch, so a re-ingest of the same
// minute simply rewrites the same rows.
type BarAggregator struct {
	store     drepo.BarStore
	publisher drepo.BarPublisher
	metrics   drepo.Metrics
	filter    *mid.IngestFilter
	log       *logger.Logger

	intervals []aggInterval

	mu         sync.Mutex
	buffers    map[string][]models.Bar
	lastLogged map[string]int64
}

type aggInterval struct {
	name string
	secs int64
}

// NewBarAggregator creates an aggregator deriving the given intervals.
// "1m" entries are ignored since 1m is the input resolution.
func NewBarAggregator(
	store drepo.BarStore,
	publisher drepo.BarPublisher,
	metrics drepo.Metrics,
	filter *mid.IngestFilter,
	log *logger.Logger,
	intervals []string,
) (*BarAggregator, error) {
	a := &BarAggregator{
		store:      store,
		publisher:  publisher,
		metrics:    metrics,
		filter:     filter,
		log:        log,
		buffers:    make(map[string][]models.Bar),
		lastLogged: make(map[string]int64),
	}

	for _, iv := range intervals {
		if iv == "1m" {
			continue
		}
		secs, err := drepo.IntervalSeconds(iv)
		if err != nil {
			return nil, fmt.Errorf("aggregator interval %q: %w", iv, err)
		}
		a.intervals = append(a.intervals, aggInterval{name: iv, secs: secs})
	}

	return a, nil
}

// Ingest processes one incoming bar. Invalid bars are dropped. Non-1m bars
// bypass aggregation and are stored as-is.
func (a *BarAggregator) Ingest(ctx context.Context, b models.Bar) error {
	if err := a.filter.Check(b); err != nil {
		return nil
	}

	start := time.Now()

	if b.Interval != "1m" {
		if _, err := a.store.UpsertBars(ctx, []models.Bar{b}); err != nil {
			a.metrics.RecordError("store")
			return fmt.Errorf("store bar: %w", err)
		}
		a.publish(ctx, []models.Bar{b})
		return nil
	}

	batch := a.appendAndAggregate(b)

	if _, err := a.store.UpsertBars(ctx, batch); err != nil {
		a.metrics.RecordError("store")
		return fmt.Errorf("store bars: %w", err)
	}
	a.publish(ctx, batch)

	a.metrics.RecordLastClose(b.Symbol, b.Close)
	a.metrics.RecordLatency("aggregate", time.Since(start).Seconds())
	a.logThrottled(b)

	return nil
}

// appendAndAggregate adds the 1m bar to the rolling buffer and rebuilds the
// bucket each configured interval falls into.
func (a *BarAggregator) appendAndAggregate(b models.Bar) []models.Bar {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf := a.buffers[b.Symbol]

	// The buffer stays sorted by timestamp so bucket open/close survive late
	// bars. A redelivered minute replaces its earlier copy so derived
	// buckets do not double-count.
	idx := sort.Search(len(buf), func(i int) bool { return buf[i].Ts >= b.Ts })
	if idx < len(buf) && buf[idx].Ts == b.Ts {
		buf[idx] = b
	} else {
		buf = append(buf, models.Bar{})
		copy(buf[idx+1:], buf[idx:])
		buf[idx] = b
		if len(buf) > maxBufferedBars {
			buf = buf[len(buf)-maxBufferedBars:]
		}
	}
	a.buffers[b.Symbol] = buf

	batch := make([]models.Bar, 0, 1+len(a.intervals))
	batch = append(batch, b)
	for _, iv := range a.intervals {
		if agg, ok := aggregateBucket(buf, b.Symbol, iv.name, iv.secs, b.Ts); ok {
			batch = append(batch, agg)
		}
	}
	return batch
}

// aggregateBucket builds one interval bar from the 1m bars inside the bucket
// containing ts. The buffer is sorted, so the first match opens the bar and
// the last one closes it.
func aggregateBucket(buf []models.Bar, symbol, interval string, secs, ts int64) (models.Bar, bool) {
	bucket := drepo.BucketStart(ts, secs)
	end := bucket + secs

	var out models.Bar
	found := false
	for _, b := range buf {
		if b.Ts < bucket || b.Ts >= end {
			continue
		}
		if !found {
			out = models.Bar{
				Symbol:   symbol,
				Interval: interval,
				Ts:       bucket,
				Open:     b.Open,
				High:     b.High,
				Low:      b.Low,
				Close:    b.Close,
				Volume:   b.Volume,
			}
			found = true
			continue
		}
		if b.High > out.High {
			out.High = b.High
		}
		if b.Low < out.Low {
			out.Low = b.Low
		}
		out.Close = b.Close
		out.Volume += b.Volume
	}
	return out, found
}

func (a *BarAggregator) publish(ctx context.Context, bars []models.Bar) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishBars(ctx, bars); err != nil {
		a.metrics.RecordError("publish")
		a.log.Warn("bar publish failed", logger.Error(err))
	}
}

// logThrottled emits at most one ingest line per symbol per calendar minute.
func (a *BarAggregator) logThrottled(b models.Bar) {
	minute := b.Ts / 60

	a.mu.Lock()
	last := a.lastLogged[b.Symbol]
	if minute <= last {
		a.mu.Unlock()
		return
	}
	a.lastLogged[b.Symbol] = minute
	a.mu.Unlock()

	a.log.Info("bar ingested",
		logger.String("symbol", b.Symbol),
		logger.Int64("ts", b.Ts),
		logger.Float64("close", b.Close),
		logger.Float64("volume", b.Volume),
	)
}

// BufferedCount returns the rolling buffer length for a symbol.
func (a *BarAggregator) BufferedCount(symbol string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers[symbol])
}
