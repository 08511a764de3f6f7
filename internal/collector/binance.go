package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// BinanceFetcher implements Fetcher over the Binance public REST API.
type BinanceFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewBinanceFetcher creates a REST fetcher with optional proxy support.
func NewBinanceFetcher(baseURL, proxyURL string, timeout time.Duration) *BinanceFetcher {
	return &BinanceFetcher{
		BaseURL: baseURL,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func (f *BinanceFetcher) Name() string { return "binance" }

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Ticker24h is one row of the 24h rolling statistics endpoint.
type Ticker24h struct {
	Symbol      string
	LastPrice   float64
	QuoteVolume float64
}

type rawTicker24h struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

// FetchPrices pulls the whole price table in one request and keeps the
// requested symbols.
func (f *BinanceFetcher) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, time.Time, error) {
	var rows []tickerPrice
	if err := f.getJSON(ctx, "/api/v3/ticker/price", &rows); err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch prices: %w", err)
	}
	fetchedAt := time.Now()

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	out := make(map[string]float64, len(symbols))
	for _, r := range rows {
		if !want[r.Symbol] {
			continue
		}
		p, err := parseDecimal(r.Price)
		if err != nil || p <= 0 {
			continue
		}
		out[r.Symbol] = p
	}
	return out, fetchedAt, nil
}

// Fetch24h returns 24h statistics for every listed symbol.
func (f *BinanceFetcher) Fetch24h(ctx context.Context) ([]Ticker24h, error) {
	var rows []rawTicker24h
	if err := f.getJSON(ctx, "/api/v3/ticker/24hr", &rows); err != nil {
		return nil, fmt.Errorf("fetch 24h tickers: %w", err)
	}
	out := make([]Ticker24h, 0, len(rows))
	for _, r := range rows {
		last, err := parseDecimal(r.LastPrice)
		if err != nil {
			continue
		}
		vol, err := parseDecimal(r.QuoteVolume)
		if err != nil {
			continue
		}
		out = append(out, Ticker24h{Symbol: r.Symbol, LastPrice: last, QuoteVolume: vol})
	}
	return out, nil
}

func (f *BinanceFetcher) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// parseDecimal converts an exchange decimal string such as "64012.15000000".
func parseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}
