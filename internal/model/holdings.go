package model

import "time"

// Holdings is the simulated single-asset position.
// Either Asset is CashAsset with Quantity 0, or Asset is a coin with Cash 0.
type Holdings struct {
	Asset    string  `json:"asset"`
	Quantity float64 `json:"quantity"`
	Cash     float64 `json:"cash"`
}

// InCash reports whether the position is fully parked in the cash asset.
func (h Holdings) InCash() bool {
	return h.Asset == CashAsset
}

// BrokerState is the persisted form of the paper broker, written to the
// holdings state file so restarts resume the simulated position.
type BrokerState struct {
	Holdings      Holdings  `json:"holdings"`
	StartBalance  float64   `json:"start_balance"`
	LastEquity    float64   `json:"last_equity"`
	TotalCostPaid float64   `json:"total_cost_paid"`
	SwitchCount   int       `json:"switch_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EquityPoint is one row of the equity curve.
type EquityPoint struct {
	Time     time.Time `json:"timestamp"`
	Asset    string    `json:"asset"`
	Quantity float64   `json:"quantity"`
	Equity   float64   `json:"equity"`
}

// SwitchRecord is one executed rotation or park.
type SwitchRecord struct {
	Time        time.Time `json:"timestamp"`
	FromAsset   string    `json:"from_asset"`
	ToAsset     string    `json:"to_asset"`
	Reason      string    `json:"reason"`
	EquityAfter float64   `json:"equity_after"`
	EdgePct     *float64  `json:"edge_pct"`
	NetEdgePct  *float64  `json:"net_edge_pct"`
	ValueBefore float64   `json:"value_before"`
	ValueAfter  float64   `json:"value_after"`
	CostPaid    float64   `json:"cost_paid"`
	PriceUsed   float64   `json:"price_used"`
}

const (
	SwitchReasonRotation   = "ROTATION"
	SwitchReasonManualPark = "MANUAL_PARK"
)
