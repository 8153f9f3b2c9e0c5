package models

// Bar is the canonical OHLCV unit shared by every component.
// Ts is the period start in unix seconds, floor-aligned to the interval
// length. A bar is unique per (Symbol, Interval, Ts) and immutable once
// finalized; storage upserts are idempotent overwrites.
type Bar struct {
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	Ts       int64   `json:"ts"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}
