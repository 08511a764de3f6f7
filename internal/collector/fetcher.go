package collector

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Fetcher is a price feed. Prices are keyed by exchange symbol (BTCUSDT).
// Symbols the feed does not know are simply absent from the result.
type Fetcher interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, time.Time, error)
	Name() string
}

// ErrNoData is returned when a feed has nothing to serve yet.
var ErrNoData = errors.New("no price data")

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu     sync.Mutex
	Prices map[string]float64
	Err    error
	Now    func() time.Time
	calls  int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPrices(_ context.Context, symbols []string) (map[string]float64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, time.Time{}, m.Err
	}
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if p, ok := m.Prices[s]; ok {
			out[s] = p
		}
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	return out, now, nil
}

// Set replaces the price for symbol.
func (m *MockFetcher) Set(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Prices == nil {
		m.Prices = make(map[string]float64)
	}
	m.Prices[symbol] = price
}

// Calls returns how many times FetchPrices ran.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
