package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"MomentumRotator/internal/model"
)

// Collector runs price fetches on a background goroutine so the decision
// loop never blocks on the network. Fetches are requested with Trigger and
// completed snapshots arrive on Snapshots. Failures arrive on Failures.
type Collector struct {
	fetcher Fetcher
	quote   string
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	assets []string

	trigger   chan struct{}
	snapshots chan *model.PriceSnapshot
	failures  chan error
}

// NewCollector creates a collector for the given assets.
func NewCollector(fetcher Fetcher, quote string, assets []string, timeout time.Duration, log zerolog.Logger) *Collector {
	return &Collector{
		fetcher:   fetcher,
		quote:     quote,
		timeout:   timeout,
		log:       log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
		assets:    append([]string(nil), assets...),
		trigger:   make(chan struct{}),
		snapshots: make(chan *model.PriceSnapshot, 1),
		failures:  make(chan error, 1),
	}
}

// SetAssets replaces the assets requested from the next fetch on.
func (c *Collector) SetAssets(assets []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets = append([]string(nil), assets...)
}

// Assets returns the assets currently requested.
func (c *Collector) Assets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.assets...)
}

// Trigger requests a fetch. It never blocks; a request made while a fetch
// is running is dropped and reported as false.
func (c *Collector) Trigger() bool {
	select {
	case c.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Snapshots delivers completed fetches. It has a single consumer.
func (c *Collector) Snapshots() <-chan *model.PriceSnapshot {
	return c.snapshots
}

// Failures delivers fetch errors.
func (c *Collector) Failures() <-chan error {
	return c.failures
}

// Run serves triggers until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.trigger:
			snap, err := c.Collect(ctx)
			if err != nil {
				c.log.Warn().Err(err).Msg("fetch failed")
				replace(c.failures, err)
				continue
			}
			replace(c.snapshots, snap)
		}
	}
}

// Collect performs one fetch and maps exchange symbols to assets.
func (c *Collector) Collect(ctx context.Context) (*model.PriceSnapshot, error) {
	assets := c.Assets()
	symbols := make([]string, len(assets))
	for i, a := range assets {
		symbols[i] = SymbolFor(a, c.quote)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, fetchedAt, err := c.fetcher.FetchPrices(fetchCtx, symbols)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(raw))
	for sym, p := range raw {
		if a, ok := AssetFromSymbol(sym, c.quote); ok {
			prices[a] = p
		}
	}
	if missing := len(assets) - len(prices); missing > 0 {
		c.log.Debug().Int("missing", missing).Msg("partial snapshot")
	}
	return &model.PriceSnapshot{Prices: prices, FetchedAt: fetchedAt, Source: c.fetcher.Name()}, nil
}

// replace delivers v on a size-1 channel, dropping an unread older value so
// the consumer always sees the newest one.
func replace[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
