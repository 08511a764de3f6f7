package broker

import (
	"errors"
	"fmt"
	"sync"

	"MomentumRotator/internal/calculator"
	"MomentumRotator/internal/model"
)

var (
	// ErrMissingPrice is returned when a leg cannot be priced.
	ErrMissingPrice = errors.New("missing price")
	// ErrNotInCash is returned by Buy when the portfolio still holds an asset.
	ErrNotInCash = errors.New("portfolio is not in cash")
)

// SwitchResult describes an executed switch or park.
type SwitchResult struct {
	From        string
	To          string
	ValueBefore float64
	ValueAfter  float64
	CostPaid    float64
	PriceUsed   float64
}

// Paper simulates a single-asset portfolio. It never holds two assets and
// never leaves a switch half executed.
type Paper struct {
	mu    sync.Mutex
	state model.BrokerState
}

// NewPaper creates a broker holding startBalance in the cash asset.
func NewPaper(startBalance float64) *Paper {
	return &Paper{state: model.BrokerState{
		Holdings:     model.Holdings{Asset: model.CashAsset, Cash: startBalance},
		StartBalance: startBalance,
		LastEquity:   startBalance,
	}}
}

// Restore creates a broker from a persisted state.
func Restore(state model.BrokerState) *Paper {
	return &Paper{state: state}
}

// State returns a copy of the broker state.
func (p *Paper) State() model.BrokerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Holdings returns a copy of the current position.
func (p *Paper) Holdings() model.Holdings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Holdings
}

// CurrentAsset returns the held asset (CashAsset when parked).
func (p *Paper) CurrentAsset() string {
	return p.Holdings().Asset
}

// Equity values the position in cash units. When the held asset has no
// price, the last known valuation is returned.
func (p *Paper) Equity(prices map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.equityLocked(prices)
}

func (p *Paper) equityLocked(prices map[string]float64) float64 {
	h := p.state.Holdings
	if h.InCash() {
		p.state.LastEquity = h.Cash
		return h.Cash
	}
	price, ok := lookup(prices, h.Asset)
	if !ok {
		return p.state.LastEquity
	}
	v := h.Quantity * price
	p.state.LastEquity = v
	return v
}

// Park sells the full position into cash, paying one leg of cost.
// It is a no-op when already in cash.
func (p *Paper) Park(prices map[string]float64, perTradeBps float64) (SwitchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.state.Holdings
	if h.InCash() {
		return SwitchResult{From: h.Asset, To: h.Asset, ValueBefore: h.Cash, ValueAfter: h.Cash}, nil
	}
	price, ok := lookup(prices, h.Asset)
	if !ok {
		return SwitchResult{}, fmt.Errorf("park %s: %w", h.Asset, ErrMissingPrice)
	}
	return p.parkLocked(price, perTradeBps), nil
}

func (p *Paper) parkLocked(price, perTradeBps float64) SwitchResult {
	h := p.state.Holdings
	gross := h.Quantity * price
	net := calculator.ApplyLeg(gross, perTradeBps)
	p.state.Holdings = model.Holdings{Asset: model.CashAsset, Cash: net}
	p.state.TotalCostPaid += gross - net
	p.state.LastEquity = net
	return SwitchResult{From: h.Asset, To: model.CashAsset, ValueBefore: gross, ValueAfter: net, CostPaid: gross - net, PriceUsed: price}
}

// Buy converts all cash into asset, paying one leg of cost.
func (p *Paper) Buy(asset string, prices map[string]float64, perTradeBps float64) (SwitchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.Holdings.InCash() {
		return SwitchResult{}, fmt.Errorf("buy %s: %w", asset, ErrNotInCash)
	}
	price, ok := lookup(prices, asset)
	if !ok {
		return SwitchResult{}, fmt.Errorf("buy %s: %w", asset, ErrMissingPrice)
	}
	return p.buyLocked(asset, price, perTradeBps), nil
}

func (p *Paper) buyLocked(asset string, price, perTradeBps float64) SwitchResult {
	cash := p.state.Holdings.Cash
	net := calculator.ApplyLeg(cash, perTradeBps)
	qty := net / price
	p.state.Holdings = model.Holdings{Asset: asset, Quantity: qty}
	p.state.TotalCostPaid += cash - net
	p.state.LastEquity = net
	return SwitchResult{From: model.CashAsset, To: asset, ValueBefore: cash, ValueAfter: net, CostPaid: cash - net, PriceUsed: price}
}

// Switch rotates the whole position into target by parking to cash and
// buying target, so cost is paid on both legs. It is a no-op when target is
// already held. Both legs are priced before anything changes; a missing
// price leaves holdings untouched.
func (p *Paper) Switch(target string, prices map[string]float64, perTradeBps float64) (SwitchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.state.Holdings
	if h.Asset == target {
		v := p.equityLocked(prices)
		return SwitchResult{From: h.Asset, To: target, ValueBefore: v, ValueAfter: v}, nil
	}

	var sellPrice float64
	if !h.InCash() {
		var ok bool
		if sellPrice, ok = lookup(prices, h.Asset); !ok {
			return SwitchResult{}, fmt.Errorf("switch %s->%s: sell leg: %w", h.Asset, target, ErrMissingPrice)
		}
	}
	buyPrice, ok := lookup(prices, target)
	if !ok {
		return SwitchResult{}, fmt.Errorf("switch %s->%s: buy leg: %w", h.Asset, target, ErrMissingPrice)
	}

	res := SwitchResult{From: h.Asset, To: target}
	if h.InCash() {
		res.ValueBefore = h.Cash
	} else {
		park := p.parkLocked(sellPrice, perTradeBps)
		res.ValueBefore = park.ValueBefore
		res.CostPaid += park.CostPaid
		res.PriceUsed = sellPrice
	}
	if target == model.CashAsset {
		res.ValueAfter = p.state.Holdings.Cash
	} else {
		buy := p.buyLocked(target, buyPrice, perTradeBps)
		res.ValueAfter = buy.ValueAfter
		res.CostPaid += buy.CostPaid
		res.PriceUsed = buyPrice
	}
	p.state.SwitchCount++
	return res, nil
}

func lookup(prices map[string]float64, asset string) (float64, bool) {
	if asset == model.CashAsset {
		return 1, true
	}
	p, ok := prices[asset]
	if !ok || p <= 0 {
		return 0, false
	}
	return p, true
}
