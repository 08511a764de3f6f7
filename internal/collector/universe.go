package collector

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// StableBases are never selected as rotation targets.
var StableBases = map[string]bool{
	"USDT":  true,
	"USDC":  true,
	"BUSD":  true,
	"TUSD":  true,
	"DAI":   true,
	"FDUSD": true,
	"USDP":  true,
}

// TickerSource lists 24h statistics for every exchange symbol.
type TickerSource interface {
	Fetch24h(ctx context.Context) ([]Ticker24h, error)
}

// SelectUniverse keeps quote-denominated, non-stable symbols trading at
// least minQuoteVolume and returns the size most liquid bases in order of
// quote volume.
func SelectUniverse(tickers []Ticker24h, quote string, size int, minQuoteVolume float64) []string {
	type candidate struct {
		asset  string
		volume float64
	}
	var picked []candidate
	for _, t := range tickers {
		asset, ok := AssetFromSymbol(t.Symbol, quote)
		if !ok || StableBases[asset] || t.QuoteVolume < minQuoteVolume {
			continue
		}
		picked = append(picked, candidate{asset: asset, volume: t.QuoteVolume})
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].volume > picked[j].volume })
	if size > 0 && len(picked) > size {
		picked = picked[:size]
	}
	out := make([]string, len(picked))
	for i, c := range picked {
		out[i] = c.asset
	}
	return out
}

// Selector picks the asset universe from exchange liquidity.
type Selector struct {
	Source         TickerSource
	Quote          string
	Size           int
	MinQuoteVolume float64
	Fallback       []string
	Log            zerolog.Logger
}

// Select returns the current universe. When the exchange cannot be reached
// or nothing qualifies, the fallback list is returned.
func (s *Selector) Select(ctx context.Context) []string {
	tickers, err := s.Source.Fetch24h(ctx)
	if err != nil {
		s.Log.Warn().Err(err).Msg("universe selection failed, using fallback")
		return append([]string(nil), s.Fallback...)
	}
	assets := SelectUniverse(tickers, s.Quote, s.Size, s.MinQuoteVolume)
	if len(assets) == 0 {
		s.Log.Warn().Msg("no asset passed the universe filter, using fallback")
		return append([]string(nil), s.Fallback...)
	}
	return assets
}

// SymbolFor maps an asset to its exchange symbol (BTC -> BTCUSDT).
func SymbolFor(asset, quote string) string {
	return asset + quote
}

// AssetFromSymbol strips the quote suffix (BTCUSDT -> BTC).
func AssetFromSymbol(symbol, quote string) (string, bool) {
	if !strings.HasSuffix(symbol, quote) || len(symbol) == len(quote) {
		return "", false
	}
	return strings.TrimSuffix(symbol, quote), true
}
