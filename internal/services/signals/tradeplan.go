package signals

import (
	"BarPulse/internal/domain/models"
)

// BuildTradePlan turns a mapped state into actionable levels. Entry comes
// from the freshest horizon available, invalidation from recent swing
// structure, validity from the most trusted horizon and size from a banded
// confidence schedule.
func BuildTradePlan(
	symbol string,
	state models.SignalState,
	stateTags []string,
	consensus models.ConsensusSignal,
	barsByHorizon map[string][]models.Bar,
	horizons []string,
	asOf int64,
) models.TradePlan {
	plan := models.TradePlan{
		State:      state,
		Confidence: consensus.ConsensusConfidence,
		Symbol:     symbol,
		AsOfTs:     asOf,
		Rationale:  append([]string{}, stateTags...),
	}

	for _, hs := range consensus.HorizonSignals {
		plan.HorizonsAnalyzed = append(plan.HorizonsAnalyzed, hs.Horizon)
	}

	refBars := referenceBars(barsByHorizon, horizons)
	var entry float64
	haveEntry := false
	if len(refBars) > 0 {
		entry = refBars[len(refBars)-1].Close
		haveEntry = true
	}

	switch state {
	case models.StateBuy, models.StateStrongBuy:
		if haveEntry {
			plan.EntryPrice = &entry
			inval := swingLow(refBars) * (1 - invalidationBufferPct)
			if inval >= entry {
				inval = entry * (1 - invalidationBufferPct)
			}
			plan.InvalidationPrice = inval
		}
		plan.Rationale = append(plan.Rationale, "long_position")
	case models.StateSell, models.StateStrongSell:
		if haveEntry {
			plan.EntryPrice = &entry
			inval := swingHigh(refBars) * (1 + invalidationBufferPct)
			if inval <= entry {
				inval = entry * (1 + invalidationBufferPct)
			}
			plan.InvalidationPrice = inval
		}
		plan.Rationale = append(plan.Rationale, "short_position")
	default:
		// Neutral carries no entry, just a reference level.
		if haveEntry {
			plan.InvalidationPrice = entry
		}
		plan.Rationale = append(plan.Rationale, "no_position_neutral")
	}

	validityHorizon := bestConfidenceHorizon(consensus.HorizonSignals)
	window, ok := validityWindowSecs[validityHorizon]
	if !ok {
		window = validityWindowSecs[defaultValidityHorizon]
	}
	plan.ValidUntilTs = asOf + window

	plan.SizeSuggestionPct = sizeForConfidence(consensus.ConsensusConfidence)
	if plan.SizeSuggestionPct <= 0.5 {
		plan.Rationale = append(plan.Rationale, "conservative_sizing")
	} else if plan.SizeSuggestionPct >= 1.5 {
		plan.Rationale = append(plan.Rationale, "aggressive_sizing")
	}

	return plan
}

// referenceBars prefers the 1m window for entry and swing levels, then the
// first requested horizon that has data.
func referenceBars(barsByHorizon map[string][]models.Bar, horizons []string) []models.Bar {
	if bars, ok := barsByHorizon["1m"]; ok && len(bars) > 0 {
		return bars
	}
	for _, h := range horizons {
		if bars, ok := barsByHorizon[h]; ok && len(bars) > 0 {
			return bars
		}
	}
	return nil
}

func swingLow(bars []models.Bar) float64 {
	lookback := 20
	if len(bars) < lookback {
		lookback = len(bars)
	}
	window := bars[len(bars)-lookback:]
	low := window[0].Low
	for _, b := range window[1:] {
		if b.Low < low {
			low = b.Low
		}
	}
	return low
}

func swingHigh(bars []models.Bar) float64 {
	lookback := 20
	if len(bars) < lookback {
		lookback = len(bars)
	}
	window := bars[len(bars)-lookback:]
	high := window[0].High
	for _, b := range window[1:] {
		if b.High > high {
			high = b.High
		}
	}
	return high
}

func bestConfidenceHorizon(horizonSignals []models.HorizonSignal) string {
	best := defaultValidityHorizon
	bestConf := -1.0
	for _, hs := range horizonSignals {
		if hs.Confidence > bestConf {
			bestConf = hs.Confidence
			best = hs.Horizon
		}
	}
	return best
}

// sizeForConfidence maps confidence bands to position size percent. The top
// band closes at 1.0 inclusive.
func sizeForConfidence(conf float64) float64 {
	switch {
	case conf < 0.3:
		return 0.25
	case conf < 0.5:
		return 0.5
	case conf < 0.7:
		return 1.0
	case conf < 0.85:
		return 1.5
	default:
		return 2.0
	}
}
