package signals

import (
	"fmt"
	"sort"

	"BarPulse/internal/domain/models"
)

// BuildExplanation produces the optional human-readable breakdown returned
// when a caller asks for explain=true.
func BuildExplanation(consensus models.ConsensusSignal, state models.SignalState, plan models.TradePlan) *models.Explanation {
	ex := &models.Explanation{
		Drivers: make([]string, 0, 4),
		Risks:   make([]string, 0, 4),
		Notes:   make([]string, 0, 2),
		ConfidenceBreakdown: models.ConfidenceBreakdown{
			Total:       consensus.ConsensusConfidence,
			DataQuality: meanConfidence(consensus.HorizonSignals),
			Agreement:   consensus.AgreementScore,
		},
	}

	// Strongest horizons by weighted contribution drive the call.
	sorted := append([]models.HorizonSignal{}, consensus.HorizonSignals...)
	sort.Slice(sorted, func(i, j int) bool {
		wi := horizonWeight(sorted[i].Horizon) * sorted[i].Confidence
		wj := horizonWeight(sorted[j].Horizon) * sorted[j].Confidence
		return wi > wj
	})
	for i, hs := range sorted {
		if i >= 3 {
			break
		}
		ex.Drivers = append(ex.Drivers, fmt.Sprintf(
			"%s direction %.2f at confidence %.2f", hs.Horizon, hs.DirectionScore, hs.Confidence,
		))
	}

	for _, tag := range consensus.Rationale {
		switch tag {
		case "conflicting_signals", "weak_agreement", "low_data_quality",
			"short_term_bullish_long_term_bearish", "short_term_bearish_long_term_bullish":
			ex.Risks = append(ex.Risks, tag)
		}
	}
	for _, hs := range consensus.HorizonSignals {
		if hs.Features.Volatility > 0.05 {
			ex.Risks = append(ex.Risks, fmt.Sprintf("%s_elevated_volatility", hs.Horizon))
		}
	}

	if state == models.StateNeutral {
		ex.Notes = append(ex.Notes, "no directional edge, stand aside")
	} else if plan.InvalidationPrice > 0 {
		ex.Notes = append(ex.Notes, fmt.Sprintf("plan invalidates beyond %.6g", plan.InvalidationPrice))
	}

	return ex
}

func meanConfidence(horizonSignals []models.HorizonSignal) float64 {
	if len(horizonSignals) == 0 {
		return 0
	}
	var sum float64
	for _, hs := range horizonSignals {
		sum += hs.Confidence
	}
	return sum / float64(len(horizonSignals))
}

func horizonWeight(horizon string) float64 {
	if w, ok := horizonWeights[horizon]; ok {
		return w
	}
	return defaultHorizonWeight
}
