package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	dialTimeout        = 30 * time.Second
	baseReconnectDelay = 2 * time.Second
	maxReconnectDelay  = time.Minute
	readLimit          = 1 << 20
)

// StreamFetcher keeps a price cache fed by the Binance all-market
// mini-ticker stream. FetchPrices serves the cache and reports the time of
// the last message as the fetch time, so a silent stream shows up as stale
// data rather than an error.
type StreamFetcher struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger

	mu      sync.RWMutex
	prices  map[string]float64
	updated time.Time
}

// NewStreamFetcher creates a stream fetcher. Call Run to start it.
func NewStreamFetcher(url, proxyURL string, log zerolog.Logger) *StreamFetcher {
	return &StreamFetcher{
		url:        url,
		httpClient: newHTTPClient(proxyURL, 0),
		log:        log.With().Str("component", "price_stream").Logger(),
		prices:     make(map[string]float64),
	}
}

func (s *StreamFetcher) Name() string { return "binance-stream" }

// miniTicker is one element of the !miniTicker@arr payload.
type miniTicker struct {
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// Run connects and reads until ctx is cancelled, reconnecting with
// exponential backoff when the connection drops.
func (s *StreamFetcher) Run(ctx context.Context) error {
	var delay time.Duration
	for {
		received, err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay = nextReconnectDelay(delay, received)
		s.log.Warn().Err(err).Bool("received", received).Dur("retry_in", delay).Msg("stream disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// nextReconnectDelay restarts the backoff after a connection that delivered
// data and doubles it otherwise, capped at maxReconnectDelay.
func nextReconnectDelay(prev time.Duration, received bool) time.Duration {
	if received || prev <= 0 {
		return baseReconnectDelay
	}
	next := prev * 2
	if next > maxReconnectDelay {
		next = maxReconnectDelay
	}
	return next
}

// connectAndRead reports whether at least one message was read before the
// connection ended.
func (s *StreamFetcher) connectAndRead(ctx context.Context) (received bool, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{HTTPClient: s.httpClient})
	if err != nil {
		return false, fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(readLimit)
	s.log.Info().Str("url", s.url).Msg("stream connected")

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return received, fmt.Errorf("stream closed: %d", status)
			}
			return received, fmt.Errorf("read stream: %w", err)
		}
		received = true
		if msgType != websocket.MessageText {
			continue
		}
		if err := s.handleMessage(data, time.Now()); err != nil {
			s.log.Debug().Err(err).Msg("ignoring stream message")
		}
	}
}

func (s *StreamFetcher) handleMessage(data []byte, receivedAt time.Time) error {
	var batch []miniTicker
	if err := json.Unmarshal(data, &batch); err != nil {
		var single miniTicker
		if err2 := json.Unmarshal(data, &single); err2 != nil || single.Symbol == "" {
			return fmt.Errorf("decode mini ticker: %w", err)
		}
		batch = []miniTicker{single}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range batch {
		p, err := parseDecimal(t.Close)
		if err != nil || p <= 0 {
			continue
		}
		s.prices[t.Symbol] = p
		n++
	}
	if n > 0 {
		s.updated = receivedAt
	}
	return nil
}

// FetchPrices returns the cached prices for symbols.
func (s *StreamFetcher) FetchPrices(_ context.Context, symbols []string) (map[string]float64, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.updated.IsZero() {
		return nil, time.Time{}, fmt.Errorf("stream: %w", ErrNoData)
	}
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if p, ok := s.prices[sym]; ok {
			out[sym] = p
		}
	}
	return out, s.updated, nil
}
