package oanda

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	"BarPulse/pkg/logger"
)

const (
	practiceStreamHost = "https://stream-fxpractice.oanda.com"
	liveStreamHost     = "https://stream-fxtrade.oanda.com"
)

// TickStream consumes the OANDA v3 pricing stream and folds mid-price ticks
// into 1m bars via a per-instrument minute builder. The pricing stream is
// newline-delimited JSON over a long-lived HTTP response, so it uses a plain
// http.Client with a line scanner rather than the JSON request helper.
type TickStream struct {
	host        string
	apiKey      string
	accountID   string
	instruments []string
	log         *logger.Logger
	metrics     drepo.Metrics

	client *http.Client
	sleep  func(ctx context.Context, d time.Duration)

	builders map[string]*MinuteBarBuilder
}

// StreamOption configures TickStream.
type StreamOption func(*TickStream)

// WithHTTPClient overrides the streaming HTTP client.
func WithHTTPClient(client *http.Client) StreamOption {
	return func(s *TickStream) {
		s.client = client
	}
}

// WithSleep overrides the reconnect sleep function.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) StreamOption {
	return func(s *TickStream) {
		s.sleep = sleep
	}
}

// WithHost overrides the stream host. Used in tests.
func WithHost(host string) StreamOption {
	return func(s *TickStream) {
		s.host = host
	}
}

// NewTickStream creates an OANDA pricing stream for the given environment
// ("practice" or "live").
func NewTickStream(environment, apiKey, accountID string, instruments []string, log *logger.Logger, metrics drepo.Metrics, opts ...StreamOption) *TickStream {
	host := practiceStreamHost
	if environment == "live" {
		host = liveStreamHost
	}

	s := &TickStream{
		host:        host,
		apiKey:      apiKey,
		accountID:   accountID,
		instruments: instruments,
		log:         log,
		metrics:     metrics,
		// No overall timeout: the pricing response never ends by design
		// of the streaming API.
		client:   &http.Client{},
		sleep:    sleepCtx,
		builders: make(map[string]*MinuteBarBuilder),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TickStream) Name() string { return "oanda" }

// StreamBars connects to the pricing stream and emits completed minute bars
// until ctx is cancelled, reconnecting with backoff on stream errors.
func (s *TickStream) StreamBars(ctx context.Context, out chan<- models.Bar) error {
	retry := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := s.streamOnce(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.metrics.RecordError("oanda_stream")
		s.log.Warn("oanda stream disconnected", logger.Error(err))
		s.sleep(ctx, backoff(retry))
		retry++
	}
}

func (s *TickStream) streamOnce(ctx context.Context, out chan<- models.Bar) error {
	url := fmt.Sprintf("%s/v3/accounts/%s/pricing/stream?instruments=%s",
		s.host, s.accountID, strings.Join(s.instruments, "%2C"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept-Datetime-Format", "UNIX")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	s.log.Info("oanda stream connected", logger.Strings("instruments", s.instruments))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		bar, ok := s.processLine(line)
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- bar:
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return fmt.Errorf("stream closed")
}

type pricingMessage struct {
	Type       string       `json:"type"`
	Time       string       `json:"time"`
	Instrument string       `json:"instrument"`
	Bids       []priceLevel `json:"bids"`
	Asks       []priceLevel `json:"asks"`
}

type priceLevel struct {
	Price string `json:"price"`
}

// processLine parses one stream line. Heartbeats and malformed lines emit
// nothing; a PRICE tick may complete the previous minute bar.
func (s *TickStream) processLine(line []byte) (models.Bar, bool) {
	var msg pricingMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		s.metrics.RecordError("oanda_parse")
		s.log.Warn("oanda malformed line", logger.Error(err))
		return models.Bar{}, false
	}

	if msg.Type != "PRICE" {
		return models.Bar{}, false
	}

	mid, ok := midPrice(msg)
	if !ok {
		return models.Bar{}, false
	}

	ts, err := parseUnixTime(msg.Time)
	if err != nil {
		s.metrics.RecordError("oanda_parse")
		s.log.Warn("oanda bad tick time", logger.String("time", msg.Time))
		return models.Bar{}, false
	}

	builder, okB := s.builders[msg.Instrument]
	if !okB {
		builder = NewMinuteBarBuilder(msg.Instrument)
		s.builders[msg.Instrument] = builder
	}
	return builder.AddTick(ts, mid)
}

// midPrice derives the tick price from best bid and ask; with only one side
// quoted that side stands alone.
func midPrice(msg pricingMessage) (float64, bool) {
	var bid, ask float64
	var haveBid, haveAsk bool

	if len(msg.Bids) > 0 {
		if v, err := strconv.ParseFloat(msg.Bids[0].Price, 64); err == nil {
			bid, haveBid = v, true
		}
	}
	if len(msg.Asks) > 0 {
		if v, err := strconv.ParseFloat(msg.Asks[0].Price, 64); err == nil {
			ask, haveAsk = v, true
		}
	}

	switch {
	case haveBid && haveAsk:
		return (bid + ask) / 2, true
	case haveBid:
		return bid, true
	case haveAsk:
		return ask, true
	default:
		return 0, false
	}
}

// parseUnixTime handles the UNIX datetime format: epoch seconds with an
// optional fractional part.
func parseUnixTime(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

var _ drepo.BarStream = (*TickStream)(nil)
