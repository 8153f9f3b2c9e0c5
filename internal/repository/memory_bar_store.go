package repository

import (
	"context"
	"sort"
	"sync"

	"BarPulse/internal/domain/models"
	"BarPulse/internal/domain/repository"
)

type barKey struct {
	symbol   string
	interval string
}

// MemoryBarStore implements BarStore in process memory. It backs the
// storage.backend=memory configuration and is the store used in tests.
type MemoryBarStore struct {
	mu   sync.RWMutex
	data map[barKey]map[int64]models.Bar
}

// NewMemoryBarStore creates an empty in-memory bar store.
func NewMemoryBarStore() *MemoryBarStore {
	return &MemoryBarStore{
		data: make(map[barKey]map[int64]models.Bar),
	}
}

func (s *MemoryBarStore) UpsertBars(_ context.Context, bars []models.Bar) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, b := range bars {
		if b.Symbol == "" || b.Interval == "" || b.Ts == 0 {
			continue
		}
		key := barKey{symbol: b.Symbol, interval: b.Interval}
		bucket, ok := s.data[key]
		if !ok {
			bucket = make(map[int64]models.Bar)
			s.data[key] = bucket
		}
		bucket[b.Ts] = b
		written++
	}
	return written, nil
}

func (s *MemoryBarStore) FetchBars(_ context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.data[barKey{symbol: symbol, interval: interval}]
	if !ok {
		return nil, nil
	}

	bars := make([]models.Bar, 0, len(bucket))
	for _, b := range bucket {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Ts < bars[j].Ts })

	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

func (s *MemoryBarStore) DistinctSymbols(_ context.Context, interval string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for key, bucket := range s.data {
		if len(bucket) == 0 {
			continue
		}
		if interval != "" && key.interval != interval {
			continue
		}
		seen[key.symbol] = struct{}{}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *MemoryBarStore) DistinctIntervals(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for key, bucket := range s.data {
		if len(bucket) == 0 {
			continue
		}
		seen[key.interval] = struct{}{}
	}

	intervals := make([]string, 0, len(seen))
	for iv := range seen {
		intervals = append(intervals, iv)
	}
	sort.Strings(intervals)
	return intervals, nil
}

func (s *MemoryBarStore) CountBars(_ context.Context, interval string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for key, bucket := range s.data {
		if key.interval != interval || len(bucket) == 0 {
			continue
		}
		counts[key.symbol] = len(bucket)
	}
	return counts, nil
}

func (s *MemoryBarStore) Close() error {
	return nil
}

var _ repository.BarStore = (*MemoryBarStore)(nil)
