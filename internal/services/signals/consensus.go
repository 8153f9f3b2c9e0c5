package signals

import (
	"math"

	"BarPulse/internal/domain/models"
)

// BuildConsensus blends per-horizon signals into a single weighted view.
// Horizons vote with weight scaled by their own confidence, so a
// low-confidence long horizon cannot dominate a clean short one.
func BuildConsensus(horizonSignals []models.HorizonSignal) models.ConsensusSignal {
	if len(horizonSignals) == 0 {
		return models.ConsensusSignal{
			HorizonSignals: []models.HorizonSignal{},
			Rationale:      []string{"no_data"},
		}
	}

	var weightSum, dirSum, confSum float64
	for _, hs := range horizonSignals {
		weight, ok := horizonWeights[hs.Horizon]
		if !ok {
			weight = defaultHorizonWeight
		}
		effective := weight * hs.Confidence
		weightSum += effective
		dirSum += hs.DirectionScore * effective
		confSum += hs.Confidence
	}

	var direction float64
	if weightSum > 0 {
		direction = dirSum / weightSum
	}

	meanConf := confSum / float64(len(horizonSignals))

	var devSum float64
	for _, hs := range horizonSignals {
		devSum += math.Abs(hs.DirectionScore - direction)
	}
	meanDev := devSum / float64(len(horizonSignals))
	agreement := clamp(1.0-meanDev/2.0, 0, 1)

	return models.ConsensusSignal{
		ConsensusDirection:  direction,
		ConsensusConfidence: meanConf * agreement,
		AgreementScore:      agreement,
		HorizonSignals:      horizonSignals,
		Rationale:           consensusRationale(horizonSignals, agreement, meanConf),
	}
}

func consensusRationale(horizonSignals []models.HorizonSignal, agreement, meanConf float64) []string {
	tags := make([]string, 0, 4)

	switch {
	case agreement > 0.8:
		tags = append(tags, "strong_agreement")
	case agreement > 0.6:
		tags = append(tags, "moderate_agreement")
	case agreement < 0.4:
		tags = append(tags, "weak_agreement", "conflicting_signals")
	}

	bullish, bearish := 0, 0
	for _, hs := range horizonSignals {
		if hs.DirectionScore > 0.1 {
			bullish++
		} else if hs.DirectionScore < -0.1 {
			bearish++
		}
	}
	if bullish > 2*bearish && bullish > 0 {
		tags = append(tags, "majority_bullish")
	} else if bearish > 2*bullish && bearish > 0 {
		tags = append(tags, "majority_bearish")
	} else if bullish > 0 && bearish > 0 {
		tags = append(tags, "mixed_directions")
	}

	var shortSum, longSum float64
	var shortN, longN int
	for _, hs := range horizonSignals {
		if shortHorizons[hs.Horizon] {
			shortSum += hs.DirectionScore
			shortN++
		} else if longHorizons[hs.Horizon] {
			longSum += hs.DirectionScore
			longN++
		}
	}
	if shortN > 0 && longN > 0 {
		shortAvg := shortSum / float64(shortN)
		longAvg := longSum / float64(longN)
		if shortAvg > 0.2 && longAvg < -0.2 {
			tags = append(tags, "short_term_bullish_long_term_bearish")
		} else if shortAvg < -0.2 && longAvg > 0.2 {
			tags = append(tags, "short_term_bearish_long_term_bullish")
		}
	}

	if meanConf > 0.7 {
		tags = append(tags, "high_data_quality")
	} else if meanConf < 0.3 {
		tags = append(tags, "low_data_quality")
	}

	return tags
}
