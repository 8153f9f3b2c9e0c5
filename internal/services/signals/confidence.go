package signals

import (
	"math"

	"BarPulse/internal/domain/models"
)

// Confidence scores how much a horizon's signal can be trusted, combining
// data sufficiency, series continuity and volatility into a single [0, 1]
// value via a geometric mean.
func Confidence(horizon string, bars []models.Bar, fs models.FeatureSet) float64 {
	data := dataScore(horizon, len(bars))
	cont := math.Max(0.1, continuityScore(bars))
	vol := volatilityScore(fs.Volatility)

	conf := math.Cbrt(data * cont * vol)
	return clamp(conf, 0, 1)
}

// dataScore follows a logistic curve centered on a full window. Below the
// minimum usable window it pins to the floor.
func dataScore(horizon string, n int) float64 {
	if n < minBarsForConfidence {
		return 0.01
	}

	expected, ok := expectedBars[horizon]
	if !ok {
		expected = defaultExpectedBars
	}

	x := float64(n-minBarsForConfidence) / float64(expected-minBarsForConfidence)
	score := 1.0 / (1.0 + math.Exp(-3.0*(x-1.0)))
	return clamp(score, 0.01, 1)
}

// continuityScore penalizes gaps in the timestamp series. The expected
// spacing comes from the first pair of bars.
func continuityScore(bars []models.Bar) float64 {
	if len(bars) < 2 {
		return 1.0
	}

	for i := 1; i < len(bars); i++ {
		if bars[i].Ts <= bars[i-1].Ts {
			return 0.5
		}
	}

	expected := bars[1].Ts - bars[0].Ts
	if expected <= 0 {
		return 0.3
	}

	gaps := 0
	for i := 1; i < len(bars); i++ {
		actual := bars[i].Ts - bars[i-1].Ts
		if float64(actual) > 1.5*float64(expected) {
			gaps++
		}
	}

	return math.Max(0, 1.0-float64(gaps)*0.05)
}

// volatilityScore discounts confidence in turbulent regimes.
func volatilityScore(vol float64) float64 {
	switch {
	case vol < 0.01:
		return 1.0
	case vol > 0.05:
		return math.Max(0.5, 1.0-math.Min(0.5, (vol-0.05)*10.0))
	default:
		return 1.0 - ((vol-0.01)/0.04)*0.3
	}
}
