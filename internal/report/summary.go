package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"MomentumRotator/internal/calculator"
	"MomentumRotator/internal/model"
	"MomentumRotator/internal/recorder"
)

// TopReasonsLimit caps the reason histogram in a summary.
const TopReasonsLimit = 5

// ReasonCount is one entry of the block reason histogram.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Summary is the performance report of a paper run.
type Summary struct {
	GeneratedAt      time.Time     `json:"generated_at"`
	StartEquity      float64       `json:"start_equity_usdt"`
	EndEquity        float64       `json:"end_equity_usdt"`
	PnL              float64       `json:"pnl_usdt"`
	PnLPct           float64       `json:"pnl_pct"`
	Switches         int           `json:"switches_count"`
	Parks            int           `json:"parks_count"`
	TotalCostPaid    float64       `json:"total_cost_paid_usdt"`
	MaxDrawdownPct   float64       `json:"max_drawdown_pct"`
	ReturnVolatility float64       `json:"return_volatility_pct"`
	Decisions        int           `json:"decisions_count"`
	ReadyDecisions   int           `json:"ready_decisions_count"`
	AvgReadyEdgePct  float64       `json:"avg_edge_pct"`
	AvgReadyNetEdge  float64       `json:"avg_net_edge_pct"`
	TopBlockReasons  []ReasonCount `json:"top_block_reasons"`
}

// Build computes a summary from stored history. startEquity is used when the
// equity curve is empty.
func Build(startEquity float64, equity []model.EquityPoint, switches []model.SwitchRecord, decisions []recorder.DecisionRow, now time.Time) Summary {
	s := Summary{GeneratedAt: now, StartEquity: startEquity, EndEquity: startEquity}

	curve := make([]float64, len(equity))
	for i, p := range equity {
		curve[i] = p.Equity
	}
	if len(curve) > 0 {
		s.EndEquity = curve[len(curve)-1]
	}
	s.PnL = s.EndEquity - s.StartEquity
	if s.StartEquity != 0 {
		s.PnLPct = s.PnL / s.StartEquity * 100
	}
	if dd, err := calculator.MaxDrawdown(curve); err == nil {
		s.MaxDrawdownPct = calculator.FractionToPct(dd)
	}
	if rets := periodReturns(curve); len(rets) > 1 {
		s.ReturnVolatility = calculator.FractionToPct(stat.StdDev(rets, nil))
	}

	for _, sw := range switches {
		if sw.Reason == model.SwitchReasonManualPark {
			s.Parks++
		} else {
			s.Switches++
		}
		s.TotalCostPaid += sw.CostPaid
	}

	s.Decisions = len(decisions)
	var edges, nets []float64
	counts := make(map[string]int)
	for _, d := range decisions {
		switch model.DecisionState(d.State) {
		case model.StateReady, model.StateSwitching:
			s.ReadyDecisions++
			if d.EdgePct != nil {
				edges = append(edges, *d.EdgePct)
			}
			if d.NetEdgePct != nil {
				nets = append(nets, *d.NetEdgePct)
			}
		default:
			for _, r := range d.Reasons {
				counts[r]++
			}
		}
	}
	if len(edges) > 0 {
		s.AvgReadyEdgePct = stat.Mean(edges, nil)
	}
	if len(nets) > 0 {
		s.AvgReadyNetEdge = stat.Mean(nets, nil)
	}
	s.TopBlockReasons = topReasons(counts, TopReasonsLimit)
	return s
}

func periodReturns(curve []float64) []float64 {
	var out []float64
	for i := 1; i < len(curve); i++ {
		if r, err := calculator.SimpleReturn(curve[i], curve[i-1]); err == nil {
			out = append(out, r)
		}
	}
	return out
}

func topReasons(counts map[string]int, limit int) []ReasonCount {
	out := make([]ReasonCount, 0, len(counts))
	for r, n := range counts {
		out = append(out, ReasonCount{Reason: r, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
