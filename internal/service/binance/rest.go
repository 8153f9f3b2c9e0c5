package binance

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	pkghttp "BarPulse/pkg/http"
	"BarPulse/pkg/logger"
)

// minPollInterval is the floor on the kline poll cadence.
const minPollInterval = time.Second

// RESTStream polls the Binance klines endpoint and emits the most recently
// closed 1m bar per symbol. It is the fallback transport when the websocket
// is unreachable.
type RESTStream struct {
	client       *pkghttp.Client
	url          string
	symbols      []string
	pollInterval time.Duration
	log          *logger.Logger
	metrics      drepo.Metrics
	sleep        func(ctx context.Context, d time.Duration)

	mu          sync.Mutex
	lastEmitted map[string]int64
}

// RESTOption configures RESTStream.
type RESTOption func(*RESTStream)

// WithRESTSleep overrides the poll sleep function.
func WithRESTSleep(sleep func(ctx context.Context, d time.Duration)) RESTOption {
	return func(s *RESTStream) {
		s.sleep = sleep
	}
}

// WithRESTClient overrides the HTTP client.
func WithRESTClient(client *pkghttp.Client) RESTOption {
	return func(s *RESTStream) {
		s.client = client
	}
}

// NewRESTStream creates a Binance REST polling bar stream.
func NewRESTStream(url string, symbols []string, pollInterval time.Duration, log *logger.Logger, metrics drepo.Metrics, opts ...RESTOption) *RESTStream {
	if pollInterval < minPollInterval {
		pollInterval = minPollInterval
	}
	s := &RESTStream{
		client:       pkghttp.NewClient(pkghttp.WithTimeout(10 * time.Second)),
		url:          url,
		symbols:      symbols,
		pollInterval: pollInterval,
		log:          log,
		metrics:      metrics,
		sleep:        sleepCtx,
		lastEmitted:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RESTStream) Name() string { return "binance_rest" }

// StreamBars polls every configured symbol on a fixed cadence until ctx is
// cancelled. Poll errors are logged and retried on the next tick.
func (s *RESTStream) StreamBars(ctx context.Context, out chan<- models.Bar) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for _, sym := range s.symbols {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			bar, ok, err := s.pollSymbol(ctx, sym)
			if err != nil {
				s.metrics.RecordError("binance_rest_poll")
				s.log.Warn("binance rest poll failed",
					logger.String("symbol", sym),
					logger.Error(err),
				)
				continue
			}
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- bar:
			}
		}

		s.sleep(ctx, s.pollInterval)
	}
}

// pollSymbol fetches the two most recent klines and emits the second-to-last
// one, which is the last fully closed minute. Duplicate timestamps are
// suppressed per symbol.
func (s *RESTStream) pollSymbol(ctx context.Context, symbol string) (models.Bar, bool, error) {
	var klines [][]json.RawMessage
	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    s.url,
		QueryParams: map[string][]string{
			"symbol":   {strings.ToUpper(symbol)},
			"interval": {"1m"},
			"limit":    {"2"},
		},
	}, &klines)
	if err != nil {
		return models.Bar{}, false, err
	}
	// The last row is the still-open candle; with fewer than two rows there
	// is no closed one to emit yet.
	if len(klines) < 2 {
		return models.Bar{}, false, nil
	}

	bar, err := parseKlineRow(symbol, klines[len(klines)-2])
	if err != nil {
		return models.Bar{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if bar.Ts <= s.lastEmitted[bar.Symbol] {
		return models.Bar{}, false, nil
	}
	s.lastEmitted[bar.Symbol] = bar.Ts
	return bar, true, nil
}

// parseKlineRow decodes one row of the klines array response:
// [openTimeMs, open, high, low, close, volume, ...] with prices as strings.
func parseKlineRow(symbol string, row []json.RawMessage) (models.Bar, error) {
	if len(row) < 6 {
		return models.Bar{}, errShortKline
	}

	var openTimeMs int64
	if err := json.Unmarshal(row[0], &openTimeMs); err != nil {
		return models.Bar{}, err
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		var raw string
		if err := json.Unmarshal(row[i+1], &raw); err != nil {
			return models.Bar{}, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Bar{}, err
		}
		fields[i] = v
	}

	return models.Bar{
		Symbol:   strings.ToUpper(symbol),
		Interval: "1m",
		Ts:       openTimeMs / 1000,
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

var errShortKline = errors.New("kline row too short")

var _ drepo.BarStream = (*RESTStream)(nil)
