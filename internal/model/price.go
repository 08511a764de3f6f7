package model

import "time"

// CashAsset is the quote asset the paper portfolio parks in.
const CashAsset = "USDT"

// PricePoint is a single observation in an asset's history.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// PriceSnapshot is one completed fetch from the price feed, keyed by asset
// (BTC, ETH, ...). Assets missing from the map had no update this cycle.
type PriceSnapshot struct {
	Prices    map[string]float64
	FetchedAt time.Time
	Source    string
}

// Price returns the price for asset and whether it was present.
// The cash asset is always priced at 1.
func (s *PriceSnapshot) Price(asset string) (float64, bool) {
	if asset == CashAsset {
		return 1, true
	}
	if s == nil {
		return 0, false
	}
	p, ok := s.Prices[asset]
	if !ok || p <= 0 {
		return 0, false
	}
	return p, true
}

// Age returns how old the snapshot is at now.
func (s *PriceSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
