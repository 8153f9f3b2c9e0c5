package models

// Requests for the signal HTTP endpoints. Defined in domain for consistency and reuse.

type SignalRequest struct {
	Symbol   string   `query:"symbol" json:"symbol" validate:"required"`
	Horizons []string `query:"horizons" json:"horizons" validate:"omitempty,dive,oneof=1m 5m 15m 1h 4h 1d 1w"`
	BarLimit int      `query:"bar_limit" json:"bar_limit" default:"100" validate:"gte=20,lte=500"`
	Explain  bool     `query:"explain" json:"explain"`
}

type InstrumentsRequest struct {
	MinBars1m int `query:"min_bars_1m" json:"min_bars_1m" default:"50" validate:"gte=0"`
}

// InstrumentsResponse reports data readiness per symbol.
type InstrumentsResponse struct {
	Symbols   []string                  `json:"symbols"`
	Intervals []string                  `json:"intervals"`
	Counts    map[string]map[string]int `json:"counts"`
}
