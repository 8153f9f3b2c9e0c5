package usecase

import (
	"context"
	"fmt"
	"sort"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
)

// InstrumentsCatalog reports which symbols hold enough stored data to be
// worth querying.
type InstrumentsCatalog struct {
	store drepo.BarStore
}

// NewInstrumentsCatalog creates an instruments catalog over store.
func NewInstrumentsCatalog(store drepo.BarStore) *InstrumentsCatalog {
	return &InstrumentsCatalog{store: store}
}

// List returns symbols with at least minBars1m stored 1m bars, the intervals
// present in the store, and per-symbol per-interval bar counts for the
// qualifying symbols.
func (cat *InstrumentsCatalog) List(ctx context.Context, minBars1m int) (*models.InstrumentsResponse, error) {
	intervals, err := cat.store.DistinctIntervals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list intervals: %w", err)
	}

	counts1m, err := cat.store.CountBars(ctx, "1m")
	if err != nil {
		return nil, fmt.Errorf("count 1m bars: %w", err)
	}

	symbols := make([]string, 0, len(counts1m))
	for sym, n := range counts1m {
		if n >= minBars1m {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)

	ready := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		ready[sym] = true
	}

	counts := make(map[string]map[string]int, len(symbols))
	for _, iv := range intervals {
		perSymbol, err := cat.store.CountBars(ctx, iv)
		if err != nil {
			return nil, fmt.Errorf("count %s bars: %w", iv, err)
		}
		for sym, n := range perSymbol {
			if !ready[sym] {
				continue
			}
			if counts[sym] == nil {
				counts[sym] = make(map[string]int)
			}
			counts[sym][iv] = n
		}
	}

	return &models.InstrumentsResponse{
		Symbols:   symbols,
		Intervals: intervals,
		Counts:    counts,
	}, nil
}
