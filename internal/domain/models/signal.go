package models

// SignalState is the terminal five-level classification of a consensus
// direction. There are no transitions; every request maps fresh.
type SignalState string

const (
	StateStrongBuy  SignalState = "STRONG_BUY"
	StateBuy        SignalState = "BUY"
	StateNeutral    SignalState = "NEUTRAL"
	StateSell       SignalState = "SELL"
	StateStrongSell SignalState = "STRONG_SELL"
)

// FeatureSet holds per-horizon derived metrics. Recomputed on every signal
// request, never persisted.
type FeatureSet struct {
	Horizon        string  `json:"horizon"`
	NBars          int     `json:"n_bars"`
	Momentum       float64 `json:"momentum"`        // [-1, 1]
	Volatility     float64 `json:"volatility"`      // >= 0
	TrendDirection float64 `json:"trend_direction"` // -1, 0, +1
	Stability      float64 `json:"stability"`       // [0, 1]
	LastClose      float64 `json:"last_close"`
	FirstClose     float64 `json:"first_close"`
	AvgRange       float64 `json:"avg_range"`
}

// HorizonSignal is the per-horizon direction/strength/confidence signal.
type HorizonSignal struct {
	Horizon        string     `json:"horizon"`
	DirectionScore float64    `json:"direction_score"` // [-1, 1]
	Strength       float64    `json:"strength"`        // [0, 1]
	Confidence     float64    `json:"confidence"`      // [0, 1]
	Features       FeatureSet `json:"features"`
	Rationale      []string   `json:"rationale"`
}

// ConsensusSignal is the weighted, agreement-adjusted blend of all analyzed
// horizons.
type ConsensusSignal struct {
	ConsensusDirection  float64         `json:"consensus_direction"`  // [-1, 1]
	ConsensusConfidence float64         `json:"consensus_confidence"` // [0, 1]
	AgreementScore      float64         `json:"agreement_score"`      // [0, 1]
	HorizonSignals      []HorizonSignal `json:"horizon_signals"`
	Rationale           []string        `json:"rationale"`
}

// TradePlan turns state + consensus + recent price action into an advisory
// entry/stop/validity/size. EntryPrice is nil iff State is NEUTRAL.
type TradePlan struct {
	State             SignalState `json:"state"`
	Confidence        float64     `json:"confidence"`
	EntryPrice        *float64    `json:"entry_price"`
	InvalidationPrice float64     `json:"invalidation_price"`
	ValidUntilTs      int64       `json:"valid_until_ts"`
	SizeSuggestionPct float64     `json:"size_suggestion_pct"`
	Rationale         []string    `json:"rationale"`
	Symbol            string      `json:"symbol"`
	AsOfTs            int64       `json:"as_of_ts"`
	HorizonsAnalyzed  []string    `json:"horizons_analyzed"`
}

// SignalResponse is the full result of one signal-generation request.
type SignalResponse struct {
	Symbol         string          `json:"symbol"`
	State          SignalState     `json:"state"`
	Confidence     float64         `json:"confidence"`
	TradePlan      TradePlan       `json:"trade_plan"`
	Consensus      ConsensusSignal `json:"consensus"`
	HorizonDetails []HorizonSignal `json:"horizon_details"`
	AsOfTs         int64           `json:"as_of_ts"`
	Version        string          `json:"version"`

	// Explanation is attached only when the caller asked for it.
	Explanation *Explanation `json:"explanation,omitempty"`
}

// Explanation groups rationale tags into human-readable drivers, risks, and
// notes plus a confidence breakdown.
type Explanation struct {
	Drivers             []string            `json:"drivers"`
	Risks               []string            `json:"risks"`
	Notes               []string            `json:"notes"`
	ConfidenceBreakdown ConfidenceBreakdown `json:"confidence_breakdown"`
}

// ConfidenceBreakdown exposes the components behind the final confidence.
// It does not change the calculation, only surfaces it.
type ConfidenceBreakdown struct {
	Total       float64 `json:"total"`
	DataQuality float64 `json:"data_quality"` // mean horizon confidence
	Agreement   float64 `json:"agreement"`    // agreement score
}
