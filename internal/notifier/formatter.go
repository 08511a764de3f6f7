package notifier

import (
	"fmt"
	"strings"
	"time"

	"MomentumRotator/internal/model"
	"MomentumRotator/internal/report"
)

const leaderboardRows = 5

// FormatDecision formats the latest cycle verdict for /status.
func FormatDecision(d *model.DecisionOutput) string {
	if d == nil {
		return "⏳ No decision yet, waiting for the first price snapshot."
	}
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>MomentumRotator</b> | %s | %s\n\n", d.Mode, d.Time.UTC().Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("State: <b>%s</b>", d.State))
	if len(d.Reasons) > 0 {
		b.WriteString(fmt.Sprintf(" (%s)", strings.Join(d.ReasonStrings(), ", ")))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Holding: %s | Equity: %.2f %s\n", d.CurrentAsset, d.Equity, model.CashAsset))
	if d.Leader != "" {
		b.WriteString(fmt.Sprintf("Leader: %s | confirm %d/%d\n", d.Leader, d.ConfirmK, d.ConfirmN))
	}
	b.WriteString(fmt.Sprintf("Edge: %s | Net: %s | Cost: %.1f bps\n", pct(d.EdgePct), pct(d.NetEdgePct), d.CostBps))
	b.WriteString(fmt.Sprintf("Switches today: %d/%d\n", d.SwitchesDay, d.MaxSwitches))
	if d.MinHoldLeft > 0 || d.CooldownLeft > 0 {
		b.WriteString(fmt.Sprintf("Min hold: %s | Cooldown: %s\n", d.MinHoldLeft.Round(time.Second), d.CooldownLeft.Round(time.Second)))
	}
	if d.DataAgeSec != nil {
		b.WriteString(fmt.Sprintf("Data age: %.0fs | Feed: %s\n", *d.DataAgeSec, d.Connection))
	} else {
		b.WriteString(fmt.Sprintf("Data age: n/a | Feed: %s\n", d.Connection))
	}
	if d.ExecError != "" {
		b.WriteString(fmt.Sprintf("\n⚠️ Last switch failed: %s\n", d.ExecError))
	}

	if len(d.Leaderboard) > 0 {
		b.WriteString("\n📈 <b>Leaderboard</b>\n")
		for i, r := range d.Leaderboard {
			if i == leaderboardRows {
				break
			}
			rank := "-"
			if r.Rank > 0 {
				rank = fmt.Sprint(r.Rank)
			}
			b.WriteString(fmt.Sprintf("  %s. %s score %s", rank, r.Asset, fraction(r.Score)))
			if r.Signal != "" {
				b.WriteString(" " + r.Signal)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatSwitch formats an executed rotation or park.
func FormatSwitch(s *model.SwitchRecord) string {
	var b strings.Builder
	icon := "🔄"
	if s.Reason == model.SwitchReasonManualPark {
		icon = "🅿️"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> %s → %s\n", icon, s.Reason, s.FromAsset, s.ToAsset))
	b.WriteString(fmt.Sprintf("Value: %.2f → %.2f (cost %.2f)\n", s.ValueBefore, s.ValueAfter, s.CostPaid))
	if s.EdgePct != nil {
		b.WriteString(fmt.Sprintf("Edge: %s | Net: %s\n", pct(s.EdgePct), pct(s.NetEdgePct)))
	}
	b.WriteString(fmt.Sprintf("Equity: %.2f %s\n", s.EquityAfter, model.CashAsset))
	return b.String()
}

// FormatSummary formats a performance report.
func FormatSummary(s report.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Report</b> | %s\n\n", s.GeneratedAt.UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Equity: %.2f → %.2f\n", s.StartEquity, s.EndEquity))
	b.WriteString(fmt.Sprintf("PnL: %+.2f (%+.2f%%)\n", s.PnL, s.PnLPct))
	b.WriteString(fmt.Sprintf("Max drawdown: %.2f%%\n", s.MaxDrawdownPct))
	b.WriteString(fmt.Sprintf("Switches: %d | Parks: %d | Cost paid: %.2f\n", s.Switches, s.Parks, s.TotalCostPaid))
	if s.ReadyDecisions > 0 {
		b.WriteString(fmt.Sprintf("Avg edge when ready: %.2f%% (net %.2f%%)\n", s.AvgReadyEdgePct, s.AvgReadyNetEdge))
	}
	if len(s.TopBlockReasons) > 0 {
		b.WriteString("\nTop block reasons:\n")
		for _, r := range s.TopBlockReasons {
			b.WriteString(fmt.Sprintf("  %s × %d\n", r.Reason, r.Count))
		}
	}
	return b.String()
}

// FormatStartup formats the startup message with the last stored state.
func FormatStartup(universe []string, equity *model.EquityPoint, last *model.SwitchRecord) string {
	var b strings.Builder
	b.WriteString("🚀 <b>MomentumRotator started</b> (paper)\n\n")
	b.WriteString(fmt.Sprintf("Universe (%d): %s\n", len(universe), strings.Join(universe, ", ")))
	if equity != nil {
		b.WriteString(fmt.Sprintf("Last equity: %.2f in %s at %s\n", equity.Equity, equity.Asset, equity.Time.UTC().Format("2006-01-02 15:04")))
	}
	if last != nil {
		b.WriteString(fmt.Sprintf("Last switch: %s → %s (%s)\n", last.FromAsset, last.ToAsset, last.Reason))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return strings.Join([]string{
		"Commands:",
		"/status - current decision",
		"/park - sell into cash",
		"/switch - execute a ready switch",
		"/blacklist ASSET - exclude from leadership",
		"/unblacklist ASSET - allow again",
		"/report - performance summary",
	}, "\n")
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

func fraction(v *float64) string {
	if v == nil {
		return "warming up"
	}
	return fmt.Sprintf("%+.4f", *v)
}
