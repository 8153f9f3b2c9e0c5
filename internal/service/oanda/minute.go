package oanda

import (
	"context"
	"math"
	"math/rand"
	"time"

	"BarPulse/internal/domain/models"
)

// MinuteBarBuilder folds a tick sequence into minute-aligned OHLC bars.
// A bar is emitted when the first tick of the next minute arrives, so the
// final partial minute of a session is never emitted. Tick streams carry no
// trade sizes, so emitted bars have volume 0.
type MinuteBarBuilder struct {
	instrument string
	minute     int64
	open       float64
	high       float64
	low        float64
	close      float64
	active     bool
}

// NewMinuteBarBuilder creates a builder for one instrument.
func NewMinuteBarBuilder(instrument string) *MinuteBarBuilder {
	return &MinuteBarBuilder{instrument: instrument}
}

// AddTick folds one tick in. When the tick opens a new minute, the previous
// minute's completed bar is returned.
func (b *MinuteBarBuilder) AddTick(ts int64, price float64) (models.Bar, bool) {
	minute := ts / 60 * 60

	if !b.active {
		b.start(minute, price)
		return models.Bar{}, false
	}

	if minute == b.minute {
		if price > b.high {
			b.high = price
		}
		if price < b.low {
			b.low = price
		}
		b.close = price
		return models.Bar{}, false
	}

	done := models.Bar{
		Symbol:   b.instrument,
		Interval: "1m",
		Ts:       b.minute,
		Open:     b.open,
		High:     b.high,
		Low:      b.low,
		Close:    b.close,
		Volume:   0,
	}
	b.start(minute, price)
	return done, true
}

func (b *MinuteBarBuilder) start(minute int64, price float64) {
	b.minute = minute
	b.open = price
	b.high = price
	b.low = price
	b.close = price
	b.active = true
}

const maxBackoff = 60 * time.Second

func backoff(retry int) time.Duration {
	base := math.Pow(2, float64(retry))
	jitter := rand.Float64()
	d := time.Duration((base + jitter) * float64(time.Second))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
