package strategy

import (
	"time"

	"MomentumRotator/internal/config"
	"MomentumRotator/internal/model"
)

// Inputs are the per-cycle facts the gates look at.
type Inputs struct {
	DataAge    *time.Duration // nil when there is no snapshot
	Leader     string         // empty when no asset qualifies
	Current    string
	EdgePct    float64
	NetEdgePct float64
}

// Gate evaluates the gates in order and returns the first one that fires.
// READY_TO_SWITCH is returned with no reason. The order determines which
// reason is reported when several conditions hold at once.
func Gate(p config.Strategy, st State, in Inputs, now time.Time) (model.DecisionState, model.Reason) {
	if in.DataAge == nil || *in.DataAge > p.DataStale() {
		return model.StateSafeMode, model.ReasonDataStale
	}
	if st.SwitchesDay >= p.MaxSwitchesPerDay {
		return model.StateSwitchBlocked, model.ReasonMaxSwitchesDay
	}
	if st.MinHoldLeft(now, p.MinHold()) > 0 {
		return model.StateSwitchBlocked, model.ReasonMinHold
	}
	if st.CooldownLeft(now) > 0 {
		return model.StateSwitchBlocked, model.ReasonCooldown
	}
	if in.Leader == "" {
		return model.StateHold, model.ReasonNoLeader
	}
	if in.Leader == in.Current {
		return model.StateHold, model.ReasonLeaderIsCurrent
	}
	if in.EdgePct < p.EdgeThresholdPct {
		return model.StateSwitchBlocked, model.ReasonEdgeTooSmall
	}
	if p.NetEdgeGate() && in.NetEdgePct < p.NetEdgeMinPct {
		return model.StateSwitchBlocked, model.ReasonNetEdgeTooSmall
	}
	if st.StreakCount < p.ConfirmN {
		return model.StateSwitchBlocked, model.ReasonConfirming
	}
	return model.StateReady, ""
}
