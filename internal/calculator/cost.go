package calculator

// BpsPerUnit converts a fraction to basis points.
const BpsPerUnit = 10000

// CostModel turns exchange fee, expected slippage and a spread buffer into
// the cost of rotating between two assets. All inputs are in basis points.
type CostModel struct {
	FeeBps          float64
	SlippageBps     float64
	SpreadBufferBps float64
}

// PerTradeBps is the cost of a single leg (one buy or one sell).
func (c CostModel) PerTradeBps() float64 {
	return c.FeeBps + c.SlippageBps + c.SpreadBufferBps
}

// RoundTripBps is the cost of a rotation: one sell leg and one buy leg.
func (c CostModel) RoundTripBps() float64 {
	return 2 * c.PerTradeBps()
}

// RoundTripFraction is RoundTripBps as a fraction (29 bps -> 0.0029).
func (c CostModel) RoundTripFraction() float64 {
	return c.RoundTripBps() / BpsPerUnit
}

// RoundTripPct is RoundTripBps in percent points (29 bps -> 0.29).
func (c CostModel) RoundTripPct() float64 {
	return c.RoundTripBps() / 100
}

// ApplyLeg returns value after paying one leg of cost.
func ApplyLeg(value, perTradeBps float64) float64 {
	return value * (1 - perTradeBps/BpsPerUnit)
}
