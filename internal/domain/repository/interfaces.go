package repository

import (
	"context"
	"errors"

	"BarPulse/internal/domain/models"
)

// ErrTransportUnavailable is returned by a BarStream running in fail-fast
// mode once it has given up on its transport. It is consumed exclusively by
// the orchestrator's auto-failover logic and never surfaced beyond it.
var ErrTransportUnavailable = errors.New("stream transport unavailable")

// BarStream produces a live, cancellable sequence of finalized 1m bars.
//
// StreamBars blocks until ctx is cancelled, reconnecting internally on
// transient failures. It returns ctx.Err() on cancellation and
// ErrTransportUnavailable only when fail-fast gives up on the transport;
// no other error is ever propagated. A cancelled stream must not send
// further bars.
type BarStream interface {
	StreamBars(ctx context.Context, out chan<- models.Bar) error
	Name() string
}

// BarStore is the persistent bar store contract. Implementations must make
// UpsertBars an idempotent insert-or-update keyed by (symbol, interval, ts)
// and safe under concurrent writers across different symbols.
type BarStore interface {
	UpsertBars(ctx context.Context, bars []models.Bar) (int, error)
	// FetchBars returns up to limit most recent bars in ascending ts order.
	FetchBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error)
	// DistinctSymbols lists symbols present in the store; interval "" means any.
	DistinctSymbols(ctx context.Context, interval string) ([]string, error)
	DistinctIntervals(ctx context.Context) ([]string, error)
	// CountBars returns per-symbol bar counts for one interval.
	CountBars(ctx context.Context, interval string) (map[string]int, error)
	Close() error
}

// BarPublisher fans finalized bars out to downstream consumers.
type BarPublisher interface {
	PublishBars(ctx context.Context, bars []models.Bar) error
	Close() error
}

type Metrics interface {
	RecordBarIngested(provider, symbol string)
	RecordError(kind string)
	RecordLastClose(symbol string, close float64)
	RecordLatency(op string, seconds float64)
	RecordActiveTransport(venue, transport string)
}
