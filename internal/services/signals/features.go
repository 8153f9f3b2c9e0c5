package signals

import (
	"math"

	"BarPulse/internal/domain/models"
)

// ComputeFeatures summarizes one horizon's bar window into the per-horizon
// feature set. An empty window yields the zero value with NBars 0.
func ComputeFeatures(horizon string, bars []models.Bar) models.FeatureSet {
	fs := models.FeatureSet{Horizon: horizon, NBars: len(bars)}
	if len(bars) == 0 {
		return fs
	}

	n := len(bars)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	fs.LastClose = closes[n-1]
	fs.FirstClose = closes[0]
	fs.Momentum = momentum(closes)
	fs.Volatility = volatility(closes)
	fs.Stability = 1.0 / (1.0 + 20.0*fs.Volatility)

	switch {
	case fs.Momentum > 0.1:
		fs.TrendDirection = 1
	case fs.Momentum < -0.1:
		fs.TrendDirection = -1
	default:
		fs.TrendDirection = 0
	}

	var rangeSum float64
	for _, b := range bars {
		rangeSum += b.High - b.Low
	}
	fs.AvgRange = rangeSum / float64(n)

	return fs
}

// momentum is the normalized close change over a short lookback, squashed
// through tanh so it lives in (-1, 1).
func momentum(closes []float64) float64 {
	n := len(closes)
	lookback := 10
	if n < lookback {
		lookback = n
	}
	if lookback <= 1 {
		return 0
	}

	ref := closes[n-lookback]
	change := (closes[n-1] - ref) / math.Max(1e-9, ref)
	return math.Tanh(10.0 * change)
}

// volatility is the sample standard deviation of simple returns over a
// 20-step lookback.
func volatility(closes []float64) float64 {
	n := len(closes)
	lookback := 20
	if n-1 < lookback {
		lookback = n - 1
	}
	if lookback <= 1 {
		return 0
	}

	window := closes[n-lookback-1:]
	returns := make([]float64, 0, lookback)
	for i := 1; i < len(window); i++ {
		prev := window[i-1]
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (window[i]-prev)/prev)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(returns)-1))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
