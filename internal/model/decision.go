package model

import "time"

// DecisionState is the per-cycle verdict of the decision engine.
type DecisionState string

const (
	StateSafeMode      DecisionState = "SAFE_MODE"
	StateHold          DecisionState = "HOLD"
	StateSwitchBlocked DecisionState = "SWITCH_BLOCKED"
	StateReady         DecisionState = "READY_TO_SWITCH"
	StateSwitching     DecisionState = "SWITCHING"
)

// Reason explains why a cycle did not end in a switch.
type Reason string

const (
	ReasonDataStale       Reason = "DATA_STALE"
	ReasonMaxSwitchesDay  Reason = "MAX_SWITCHES_DAY"
	ReasonMinHold         Reason = "MIN_HOLD"
	ReasonCooldown        Reason = "COOLDOWN"
	ReasonNoLeader        Reason = "NO_LEADER"
	ReasonLeaderIsCurrent Reason = "LEADER_IS_CURRENT"
	ReasonEdgeTooSmall    Reason = "EDGE_TOO_SMALL"
	ReasonNetEdgeTooSmall Reason = "NET_EDGE_TOO_SMALL"
	ReasonConfirming      Reason = "CONFIRMING"
)

// ScoreRow is one asset's momentum snapshot. Returns are fractions (0.01 = 1%).
// Score is nil unless every return window is backed by enough history.
type ScoreRow struct {
	Asset  string   `json:"asset"`
	Score  *float64 `json:"score"`
	Ret15m *float64 `json:"ret_15m"`
	Ret1h  *float64 `json:"ret_1h"`
	Ret4h  *float64 `json:"ret_4h"`
}

// Rankable reports whether the row can compete for leadership.
func (r ScoreRow) Rankable() bool {
	return r.Score != nil
}

// LeaderboardRow is a ScoreRow decorated for presentation.
type LeaderboardRow struct {
	Rank       int      `json:"rank"`
	Asset      string   `json:"asset"`
	Score      *float64 `json:"score"`
	Ret15m     *float64 `json:"ret_15m"`
	Ret1h      *float64 `json:"ret_1h"`
	Ret4h      *float64 `json:"ret_4h"`
	EdgeBps    *float64 `json:"edge_bps"`
	CostBps    float64  `json:"cost_bps"`
	NetEdgeBps *float64 `json:"net_edge_bps"`
	Confirm    string   `json:"confirm"`
	Signal     string   `json:"signal"`
	Excluded   bool     `json:"excluded"`
}

// DecisionOutput is one cycle's verdict, refreshed once per cycle and
// published read-only to presentation and storage.
type DecisionOutput struct {
	Time         time.Time        `json:"timestamp"`
	Mode         string           `json:"mode"`
	Connection   string           `json:"connection"`
	State        DecisionState    `json:"state"`
	CurrentAsset string           `json:"current_asset"`
	Leader       string           `json:"leader,omitempty"`
	EdgePct      *float64         `json:"edge_pct"`
	NetEdgePct   *float64         `json:"net_edge_pct"`
	CostBps      float64          `json:"cost_bps"`
	CostPct      float64          `json:"cost_pct"`
	ConfirmK     int              `json:"confirm_k"`
	ConfirmN     int              `json:"confirm_n"`
	Reasons      []Reason         `json:"block_reasons"`
	DataAgeSec   *float64         `json:"data_age_sec"`
	MinHoldLeft  time.Duration    `json:"min_hold_left_ns"`
	CooldownLeft time.Duration    `json:"cooldown_left_ns"`
	SwitchesDay  int              `json:"switches_today"`
	MaxSwitches  int              `json:"max_switches_per_day"`
	Equity       float64          `json:"equity"`
	NextAction   string           `json:"next_action"`
	ExecError    string           `json:"exec_error,omitempty"`
	Leaderboard  []LeaderboardRow `json:"leaderboard"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (d *DecisionOutput) Clone() *DecisionOutput {
	if d == nil {
		return nil
	}
	c := *d
	c.Reasons = append([]Reason(nil), d.Reasons...)
	c.Leaderboard = append([]LeaderboardRow(nil), d.Leaderboard...)
	return &c
}

// ReasonStrings returns the block reasons as plain strings.
func (d *DecisionOutput) ReasonStrings() []string {
	out := make([]string, len(d.Reasons))
	for i, r := range d.Reasons {
		out[i] = string(r)
	}
	return out
}

const (
	ModePaper = "PAPER"

	ConnectionOK       = "OK"
	ConnectionDegraded = "DEGRADED"

	ActionHold   = "HOLD"
	ActionSwitch = "SWITCH"
)
