package middleware

import (
	"fmt"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	"BarPulse/pkg/logger"
)

// IngestFilter validates bars before they reach aggregation and storage.
// A rejected bar is logged and counted, never propagated.
type IngestFilter struct {
	log     *logger.Logger
	metrics drepo.Metrics
}

// NewIngestFilter creates an ingest validation filter.
func NewIngestFilter(log *logger.Logger, metrics drepo.Metrics) *IngestFilter {
	return &IngestFilter{log: log, metrics: metrics}
}

// Check returns an error when the bar is not safe to ingest.
func (f *IngestFilter) Check(b models.Bar) error {
	if err := validateBar(b); err != nil {
		f.metrics.RecordError("ingest_validate")
		f.log.Warn("dropping invalid bar",
			logger.String("symbol", b.Symbol),
			logger.String("interval", b.Interval),
			logger.Int64("ts", b.Ts),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func validateBar(b models.Bar) error {
	if b.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if b.Interval == "" {
		return fmt.Errorf("empty interval")
	}
	if b.Ts <= 0 {
		return fmt.Errorf("non-positive timestamp")
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("non-positive price")
	}
	if b.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	if b.High < b.Low {
		return fmt.Errorf("high below low")
	}
	if b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("high below open/close")
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("low above open/close")
	}
	return nil
}
