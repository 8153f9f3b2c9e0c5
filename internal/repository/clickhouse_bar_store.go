package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"BarPulse/internal/domain/models"
	"BarPulse/internal/domain/repository"
)

// barsSchema uses ReplacingMergeTree keyed by (symbol, interval, ts) so a
// partial bucket rewritten with newer values collapses to the last insert.
const barsSchema = `
CREATE TABLE IF NOT EXISTS %s (
    symbol   LowCardinality(String),
    interval LowCardinality(String),
    ts       Int64,
    open     Float64,
    high     Float64,
    low      Float64,
    close    Float64,
    volume   Float64,
    inserted_at DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(inserted_at)
ORDER BY (symbol, interval, ts)
`

// ClickHouseBarStore implements BarStore backed by ClickHouse.
type ClickHouseBarStore struct {
	db     *sql.DB
	table  string
	closer func() error
}

// NewClickHouseBarStore creates a ClickHouse-backed bar store and ensures
// the schema exists. closer, when non-nil, is invoked by Close and should
// release the underlying connection.
func NewClickHouseBarStore(ctx context.Context, db *sql.DB, table string, closer func() error) (*ClickHouseBarStore, error) {
	s := &ClickHouseBarStore{db: db, table: table, closer: closer}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(barsSchema, table)); err != nil {
		return nil, fmt.Errorf("init bars schema: %w", err)
	}
	return s, nil
}

func (s *ClickHouseBarStore) UpsertBars(ctx context.Context, bars []models.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	// Multi-row VALUES insert to reduce round-trips. Chunked to keep
	// statements bounded.
	const chunkSize = 2000
	written := 0
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, b := range bars[start:end] {
			if b.Symbol == "" || b.Interval == "" || b.Ts == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				b.Symbol,
				b.Interval,
				b.Ts,
				b.Open,
				b.High,
				b.Low,
				b.Close,
				b.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (symbol, interval, ts, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","),
		)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return written, fmt.Errorf("insert bars: %w", err)
		}
		written += len(values)
	}
	return written, nil
}

func (s *ClickHouseBarStore) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	// FINAL collapses replaced rows so a rewritten bucket reads back once.
	q := fmt.Sprintf(
		"SELECT symbol, interval, ts, open, high, low, close, volume FROM %s FINAL WHERE symbol = ? AND interval = ? ORDER BY ts DESC LIMIT ?",
		s.table,
	)
	rows, err := s.db.QueryContext(ctx, q, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Symbol, &b.Interval, &b.Ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest-first; callers expect ascending ts.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

func (s *ClickHouseBarStore) DistinctSymbols(ctx context.Context, interval string) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT symbol FROM %s", s.table)
	args := []interface{}{}
	if interval != "" {
		q += " WHERE interval = ?"
		args = append(args, interval)
	}
	q += " ORDER BY symbol"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func (s *ClickHouseBarStore) DistinctIntervals(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT interval FROM %s ORDER BY interval", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()

	var intervals []string
	for rows.Next() {
		var iv string
		if err := rows.Scan(&iv); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

func (s *ClickHouseBarStore) CountBars(ctx context.Context, interval string) (map[string]int, error) {
	q := fmt.Sprintf("SELECT symbol, count() FROM %s FINAL WHERE interval = ? GROUP BY symbol", s.table)
	rows, err := s.db.QueryContext(ctx, q, interval)
	if err != nil {
		return nil, fmt.Errorf("count bars: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sym string
		var n uint64
		if err := rows.Scan(&sym, &n); err != nil {
			return nil, err
		}
		counts[sym] = int(n)
	}
	return counts, rows.Err()
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStore) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

var _ repository.BarStore = (*ClickHouseBarStore)(nil)
