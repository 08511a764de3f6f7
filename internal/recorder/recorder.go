package recorder

import (
	"time"

	"MomentumRotator/internal/model"
)

// DecisionRow is the stored form of one cycle's verdict.
type DecisionRow struct {
	Time       time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	Current    string    `json:"current_asset"`
	Leader     string    `json:"leader"`
	State      string    `json:"state"`
	Reasons    []string  `json:"reasons"`
	EdgePct    *float64  `json:"edge_pct"`
	NetEdgePct *float64  `json:"net_edge_pct"`
	CostPct    float64   `json:"cost_pct"`
	ConfirmK   int       `json:"confirm_k"`
	ConfirmN   int       `json:"confirm_n"`
}

// Recorder is the append-only log of ticks, decisions, equity and switches.
// Reads return rows oldest first; a limit of zero or less means all rows.
type Recorder interface {
	RecordTick(snap *model.PriceSnapshot, dataAgeSec *float64) error
	RecordDecision(d *model.DecisionOutput) error
	RecordEquity(p model.EquityPoint) error
	RecordSwitch(s *model.SwitchRecord) error

	LatestEquity(limit int) ([]model.EquityPoint, error)
	LatestSwitches(limit int) ([]model.SwitchRecord, error)
	LatestDecisions(limit int) ([]DecisionRow, error)

	Close() error
}
