package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"MomentumRotator/internal/model"
)

// File names written by Export.
const (
	EquityFile   = "equity_curve.csv"
	SwitchesFile = "switches.csv"
	SummaryFile  = "summary.json"
)

type equityRow struct {
	Timestamp string  `csv:"timestamp"`
	Asset     string  `csv:"asset"`
	Quantity  float64 `csv:"quantity"`
	Equity    float64 `csv:"equity_usdt"`
}

type switchRow struct {
	Timestamp   string  `csv:"timestamp"`
	From        string  `csv:"from_asset"`
	To          string  `csv:"to_asset"`
	Reason      string  `csv:"reason"`
	EquityAfter float64 `csv:"equity_after"`
	EdgePct     string  `csv:"edge_pct"`
	NetEdgePct  string  `csv:"net_edge_pct"`
	ValueBefore float64 `csv:"value_before"`
	ValueAfter  float64 `csv:"value_after"`
	CostPaid    float64 `csv:"cost_paid"`
	PriceUsed   float64 `csv:"price_used"`
}

// Export writes the equity curve, the switch log and the summary into dir.
func Export(dir string, s Summary, equity []model.EquityPoint, switches []model.SwitchRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	eq := make([]equityRow, len(equity))
	for i, p := range equity {
		eq[i] = equityRow{Timestamp: stamp(p.Time), Asset: p.Asset, Quantity: p.Quantity, Equity: p.Equity}
	}
	if err := writeCSV(filepath.Join(dir, EquityFile), &eq); err != nil {
		return err
	}

	sw := make([]switchRow, len(switches))
	for i, r := range switches {
		sw[i] = switchRow{
			Timestamp:   stamp(r.Time),
			From:        r.FromAsset,
			To:          r.ToAsset,
			Reason:      r.Reason,
			EquityAfter: r.EquityAfter,
			EdgePct:     optional(r.EdgePct),
			NetEdgePct:  optional(r.NetEdgePct),
			ValueBefore: r.ValueBefore,
			ValueAfter:  r.ValueAfter,
			CostPaid:    r.CostPaid,
			PriceUsed:   r.PriceUsed,
		}
	}
	if err := writeCSV(filepath.Join(dir, SwitchesFile), &sw); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryFile), data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *v)
}
