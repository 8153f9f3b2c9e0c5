package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"BarPulse/internal/domain/models"
	drepo "BarPulse/internal/domain/repository"
	"BarPulse/pkg/logger"
)

// handshakeFailureLimit is how many consecutive dial failures a fail-fast
// stream tolerates before declaring the transport unavailable.
const handshakeFailureLimit = 3

const maxBackoff = 60 * time.Second

// WSStream streams finalized 1m kline bars from the Binance combined
// websocket endpoint. All subscribed symbols share one multiplexed
// connection.
type WSStream struct {
	url      string
	symbols  []string
	failFast bool
	log      *logger.Logger
	metrics  drepo.Metrics

	dial  func(ctx context.Context, url string) (*websocket.Conn, error)
	sleep func(ctx context.Context, d time.Duration)
}

// WSOption configures WSStream.
type WSOption func(*WSStream)

// WithFailFast makes the stream give up after repeated handshake failures
// instead of retrying forever.
func WithFailFast(enabled bool) WSOption {
	return func(s *WSStream) {
		s.failFast = enabled
	}
}

// WithDialer overrides the websocket dial function.
func WithDialer(dial func(ctx context.Context, url string) (*websocket.Conn, error)) WSOption {
	return func(s *WSStream) {
		s.dial = dial
	}
}

// WithSleep overrides the backoff sleep function.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) WSOption {
	return func(s *WSStream) {
		s.sleep = sleep
	}
}

// NewWSStream creates a Binance websocket bar stream.
func NewWSStream(baseURL string, symbols []string, log *logger.Logger, metrics drepo.Metrics, opts ...WSOption) *WSStream {
	s := &WSStream{
		url:     baseURL,
		symbols: symbols,
		log:     log,
		metrics: metrics,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
		sleep: sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WSStream) Name() string { return "binance_ws" }

// combinedStreamURL builds the multiplexed kline subscription URL.
func (s *WSStream) combinedStreamURL() string {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(sym)+"@kline_1m")
	}
	return fmt.Sprintf("%s/stream?streams=%s", s.url, strings.Join(streams, "/"))
}

// StreamBars connects and emits finalized 1m bars until ctx is cancelled.
// In fail-fast mode it returns ErrTransportUnavailable after repeated
// consecutive handshake failures.
func (s *WSStream) StreamBars(ctx context.Context, out chan<- models.Bar) error {
	url := s.combinedStreamURL()
	handshakeFailures := 0
	retry := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := s.dial(ctx, url)
		if err != nil {
			handshakeFailures++
			s.metrics.RecordError("binance_ws_dial")
			s.log.Warn("binance ws dial failed",
				logger.Error(err),
				logger.Int("consecutive_failures", handshakeFailures),
			)
			if s.failFast && handshakeFailures >= handshakeFailureLimit {
				return drepo.ErrTransportUnavailable
			}
			s.sleep(ctx, backoff(retry))
			retry++
			continue
		}

		handshakeFailures = 0
		retry = 0
		s.log.Info("binance ws connected", logger.Strings("symbols", s.symbols))

		err = s.readLoop(ctx, conn, out)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.metrics.RecordError("binance_ws_read")
		s.log.Warn("binance ws disconnected", logger.Error(err))
		s.sleep(ctx, backoff(retry))
		retry++
	}
}

func (s *WSStream) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- models.Bar) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		bar, ok := s.parseKline(raw)
		if !ok {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- bar:
		}
	}
}

type combinedMessage struct {
	Stream string       `json:"stream"`
	Data   klineMessage `json:"data"`
}

type klineMessage struct {
	EventType string  `json:"e"`
	Symbol    string  `json:"s"`
	Kline     ksPatch `json:"k"`
}

type ksPatch struct {
	OpenTimeMs int64  `json:"t"`
	Open       string `json:"o"`
	High       string `json:"h"`
	Low        string `json:"l"`
	Close      string `json:"c"`
	Volume     string `json:"v"`
	Final      bool   `json:"x"`
}

// parseKline extracts a finalized bar from one websocket frame. Malformed
// frames and unfinished klines yield ok=false.
func (s *WSStream) parseKline(raw []byte) (models.Bar, bool) {
	var msg combinedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.metrics.RecordError("binance_ws_parse")
		s.log.Warn("binance ws malformed message", logger.Error(err))
		return models.Bar{}, false
	}

	k := msg.Data.Kline
	if msg.Data.EventType != "kline" || !k.Final {
		return models.Bar{}, false
	}

	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closeP, err4 := strconv.ParseFloat(k.Close, 64)
	vol, err5 := strconv.ParseFloat(k.Volume, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		s.metrics.RecordError("binance_ws_parse")
		s.log.Warn("binance ws malformed kline fields", logger.String("symbol", msg.Data.Symbol))
		return models.Bar{}, false
	}

	return models.Bar{
		Symbol:   strings.ToUpper(msg.Data.Symbol),
		Interval: "1m",
		Ts:       k.OpenTimeMs / 1000,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closeP,
		Volume:   vol,
	}, true
}

// backoff returns 2^retry seconds plus jitter, capped at maxBackoff.
func backoff(retry int) time.Duration {
	base := math.Pow(2, float64(retry))
	jitter := rand.Float64()
	d := time.Duration((base + jitter) * float64(time.Second))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ drepo.BarStream = (*WSStream)(nil)
