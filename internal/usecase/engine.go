package usecase

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	"BarPulse/internal/services/signals"
	"BarPulse/pkg/cache"
	"BarPulse/pkg/logger"
)

// SignalVersion tags every response so consumers can detect scoring changes.
const SignalVersion = "1"

// SignalEngine derives multi-horizon trading signals from stored bars.
// Horizons that fail to load or hold no bars are excluded from consensus;
// with nothing usable the engine returns a zero-confidence neutral response
// rather than an error.
type SignalEngine struct {
	store    drepo.BarStore
	cache    cache.Service
	cacheTTL time.Duration
	metrics  drepo.Metrics
	log      *logger.Logger
	now      func() time.Time
}

// EngineOption configures SignalEngine.
type EngineOption func(*SignalEngine)

// WithSignalCache enables response caching.
func WithSignalCache(c cache.Service, ttl time.Duration) EngineOption {
	return func(e *SignalEngine) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithEngineClock overrides the engine clock.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *SignalEngine) {
		e.now = now
	}
}

// NewSignalEngine creates a signal engine reading from store.
func NewSignalEngine(store drepo.BarStore, metrics drepo.Metrics, log *logger.Logger, opts ...EngineOption) *SignalEngine {
	e := &SignalEngine{
		store:   store,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateSignal analyzes the requested horizons for one symbol.
func (e *SignalEngine) GenerateSignal(ctx context.Context, symbol string, horizons []string, barLimit int, explain bool) (*models.SignalResponse, error) {
	if len(horizons) == 0 {
		horizons = signals.DefaultHorizons
	}
	if barLimit <= 0 {
		barLimit = signals.DefaultBarLimit
	}

	key := signalCacheKey(symbol, horizons, barLimit, explain)
	if e.cache != nil {
		var cached models.SignalResponse
		if err := e.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	start := time.Now()
	barsByHorizon := e.fetchAll(ctx, symbol, horizons, barLimit)

	horizonSignals := make([]models.HorizonSignal, 0, len(horizons))
	for _, h := range horizons {
		bars := barsByHorizon[h]
		if len(bars) == 0 {
			continue
		}
		horizonSignals = append(horizonSignals, signals.BuildHorizonSignal(h, bars))
	}

	consensus := signals.BuildConsensus(horizonSignals)
	state, stateTags := signals.MapState(consensus)
	asOf := e.now().Unix()
	plan := signals.BuildTradePlan(symbol, state, stateTags, consensus, barsByHorizon, horizons, asOf)

	resp := &models.SignalResponse{
		Symbol:         symbol,
		State:          state,
		Confidence:     consensus.ConsensusConfidence,
		TradePlan:      plan,
		Consensus:      consensus,
		HorizonDetails: horizonSignals,
		AsOfTs:         asOf,
		Version:        SignalVersion,
	}
	if explain {
		resp.Explanation = signals.BuildExplanation(consensus, state, plan)
	}
	roundScores(resp)

	e.metrics.RecordLatency("generate_signal", time.Since(start).Seconds())
	e.log.Debug("signal generated",
		logger.String("symbol", symbol),
		logger.String("state", string(state)),
		logger.Float64("confidence", resp.Confidence),
		logger.Int("horizons", len(horizonSignals)),
	)

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, resp, e.cacheTTL); err != nil {
			e.log.Warn("signal cache set failed", logger.Error(err))
		}
	}

	return resp, nil
}

// fetchAll loads each horizon's window concurrently. A failed horizon is
// logged and simply absent from the result.
func (e *SignalEngine) fetchAll(ctx context.Context, symbol string, horizons []string, barLimit int) map[string][]models.Bar {
	var mu sync.Mutex
	var wg sync.WaitGroup
	out := make(map[string][]models.Bar, len(horizons))

	for _, h := range horizons {
		wg.Add(1)
		go func(horizon string) {
			defer wg.Done()
			bars, err := e.store.FetchBars(ctx, symbol, horizon, barLimit)
			if err != nil {
				e.metrics.RecordError("fetch_bars")
				e.log.Warn("horizon fetch failed",
					logger.String("symbol", symbol),
					logger.String("horizon", horizon),
					logger.Error(err),
				)
				return
			}
			if len(bars) == 0 {
				return
			}
			mu.Lock()
			out[horizon] = bars
			mu.Unlock()
		}(h)
	}

	wg.Wait()
	return out
}

func signalCacheKey(symbol string, horizons []string, barLimit int, explain bool) string {
	return cache.GenerateKeyWithParams("signal", symbol, strings.Join(horizons, ","), barLimit, explain)
}

// roundScores trims unit-interval scores to four decimals for transport.
// Price and timestamp fields keep full precision.
func roundScores(resp *models.SignalResponse) {
	resp.Confidence = round4(resp.Confidence)
	resp.Consensus.ConsensusDirection = round4(resp.Consensus.ConsensusDirection)
	resp.Consensus.ConsensusConfidence = round4(resp.Consensus.ConsensusConfidence)
	resp.Consensus.AgreementScore = round4(resp.Consensus.AgreementScore)
	resp.TradePlan.Confidence = round4(resp.TradePlan.Confidence)

	// HorizonDetails and Consensus.HorizonSignals share one backing slice.
	sigs := resp.HorizonDetails
	for i := range sigs {
		sigs[i].DirectionScore = round4(sigs[i].DirectionScore)
		sigs[i].Strength = round4(sigs[i].Strength)
		sigs[i].Confidence = round4(sigs[i].Confidence)
		sigs[i].Features.Momentum = round4(sigs[i].Features.Momentum)
		sigs[i].Features.Volatility = round4(sigs[i].Features.Volatility)
		sigs[i].Features.Stability = round4(sigs[i].Features.Stability)
	}

	if resp.Explanation != nil {
		resp.Explanation.ConfidenceBreakdown.Total = round4(resp.Explanation.ConfidenceBreakdown.Total)
		resp.Explanation.ConfidenceBreakdown.DataQuality = round4(resp.Explanation.ConfidenceBreakdown.DataQuality)
		resp.Explanation.ConfidenceBreakdown.Agreement = round4(resp.Explanation.ConfidenceBreakdown.Agreement)
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
