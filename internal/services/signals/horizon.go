package signals

import (
	"math"

	"BarPulse/internal/domain/models"
)

// BuildHorizonSignal turns one horizon's bar window into a directional
// signal with confidence and human-readable rationale tags.
func BuildHorizonSignal(horizon string, bars []models.Bar) models.HorizonSignal {
	fs := ComputeFeatures(horizon, bars)
	conf := Confidence(horizon, bars, fs)

	direction := clamp(fs.Momentum*fs.Stability, -1, 1)
	strength := clamp(math.Abs(fs.Momentum)*fs.Stability, 0, 1)

	return models.HorizonSignal{
		Horizon:        horizon,
		DirectionScore: direction,
		Strength:       strength,
		Confidence:     conf,
		Features:       fs,
		Rationale:      horizonRationale(horizon, direction, fs.Volatility, conf),
	}
}

func horizonRationale(horizon string, direction, vol, conf float64) []string {
	tags := make([]string, 0, 3)

	switch {
	case direction > 0.5:
		tags = append(tags, horizon+"_strong_bullish")
	case direction > 0.1:
		tags = append(tags, horizon+"_weak_bullish")
	case direction < -0.5:
		tags = append(tags, horizon+"_strong_bearish")
	case direction < -0.1:
		tags = append(tags, horizon+"_weak_bearish")
	default:
		tags = append(tags, horizon+"_neutral")
	}

	if vol > 0.05 {
		tags = append(tags, horizon+"_high_volatility")
	} else if vol < 0.01 {
		tags = append(tags, horizon+"_low_volatility")
	}

	if conf > 0.7 {
		tags = append(tags, horizon+"_high_confidence")
	} else if conf < 0.3 {
		tags = append(tags, horizon+"_low_confidence")
	}

	return tags
}
