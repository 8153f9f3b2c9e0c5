package signals

// Horizon identifiers accepted by the engine, shortest first.
var AllHorizons = []string{"1m", "5m", "15m", "1h", "4h", "1d", "1w"}

// DefaultHorizons are analyzed when a request does not name any.
var DefaultHorizons = []string{"1m", "5m", "15m", "1h", "4h", "1d"}

// DefaultBarLimit is the per-horizon window size fetched from the store.
const DefaultBarLimit = 100

// minBarsForConfidence is the window size below which data confidence
// collapses to its floor.
const minBarsForConfidence = 10

// expectedBars is the per-horizon window size considered "full" when
// scoring data sufficiency.
var expectedBars = map[string]int{
	"1m":  60,
	"5m":  60,
	"15m": 60,
	"1h":  48,
	"4h":  42,
	"1d":  30,
	"1w":  26,
}

const defaultExpectedBars = 60

// horizonWeights bias consensus toward longer horizons.
var horizonWeights = map[string]float64{
	"1m":  0.5,
	"5m":  0.7,
	"15m": 1.0,
	"1h":  1.5,
	"4h":  2.0,
	"1d":  2.5,
	"1w":  3.0,
}

const defaultHorizonWeight = 1.0

// validityWindowSecs maps the dominant horizon to how long a plan stays
// actionable.
var validityWindowSecs = map[string]int64{
	"1m":  1800,
	"5m":  7200,
	"15m": 14400,
	"1h":  28800,
	"4h":  86400,
	"1d":  432000,
	"1w":  1209600,
}

const defaultValidityHorizon = "1h"

// invalidationBufferPct pads the invalidation level beyond the swing
// structure by 2%.
const invalidationBufferPct = 0.02

// shortHorizons and longHorizons partition the set for divergence checks.
var shortHorizons = map[string]bool{"1m": true, "5m": true, "15m": true}
var longHorizons = map[string]bool{"1h": true, "4h": true, "1d": true, "1w": true}
