package signals

import "BarPulse/internal/domain/models"

// MapState projects consensus direction onto the five-level trading state.
// Thresholds split the [-1, 1] direction axis into contiguous bands. The
// returned tags carry the consensus rationale forward with the state tags
// appended.
func MapState(consensus models.ConsensusSignal) (models.SignalState, []string) {
	dir := consensus.ConsensusDirection

	var state models.SignalState
	tags := make([]string, 0, len(consensus.Rationale)+3)
	tags = append(tags, consensus.Rationale...)

	switch {
	case dir >= 0.65:
		state = models.StateStrongBuy
		tags = append(tags, "signal_strong_buy")
	case dir >= 0.20:
		state = models.StateBuy
		tags = append(tags, "signal_buy")
	case dir <= -0.65:
		state = models.StateStrongSell
		tags = append(tags, "signal_strong_sell")
	case dir <= -0.20:
		state = models.StateSell
		tags = append(tags, "signal_sell")
	default:
		state = models.StateNeutral
		tags = append(tags, "signal_neutral")
	}

	if consensus.ConsensusConfidence > 0.7 {
		tags = append(tags, "high_confidence_signal")
	} else if consensus.ConsensusConfidence < 0.3 {
		tags = append(tags, "low_confidence_signal")
	}

	if consensus.AgreementScore < 0.5 {
		tags = append(tags, "low_agreement_warning")
	}

	return state, tags
}
