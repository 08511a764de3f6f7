package strategy

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MomentumRotator/internal/broker"
	"MomentumRotator/internal/config"
	"MomentumRotator/internal/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testParams() config.Strategy {
	p := config.DefaultStrategy()
	p.Universe = []string{"A", "B"}
	p.Ret15mSec, p.Ret1hSec, p.Ret4hSec = 60, 120, 240
	p.MinHoldSec = 600
	p.CooldownSec = 120
	p.ConfirmN = 3
	return p
}

func newEngine(p config.Strategy) (*Engine, *broker.Paper) {
	b := broker.NewPaper(10000)
	return New(p, b, zerolog.Nop()), b
}

// snapAt returns a fresh snapshot for minute i: A is flat, B gains 1% a minute.
func snapAt(i int) (*model.PriceSnapshot, time.Time) {
	now := t0.Add(time.Duration(i) * time.Minute)
	b := 100.0
	for k := 0; k < i; k++ {
		b *= 1.01
	}
	return &model.PriceSnapshot{
		Prices:    map[string]float64{"A": 50, "B": b},
		FetchedAt: now,
	}, now
}

func runMinutes(e *Engine, from, to int) []Result {
	var out []Result
	for i := from; i <= to; i++ {
		snap, now := snapAt(i)
		out = append(out, e.Cycle(snap, now))
	}
	return out
}

func TestCycle_StaleDataIsSafeMode(t *testing.T) {
	e, _ := newEngine(testParams())
	runMinutes(e, 0, 6)

	snap, now := snapAt(7)
	snap.FetchedAt = now.Add(-31 * time.Second)
	res := e.Cycle(snap, now)
	assert.Equal(t, model.StateSafeMode, res.Output.State)
	assert.Equal(t, []model.Reason{model.ReasonDataStale}, res.Output.Reasons)
	require.NotNil(t, res.Output.DataAgeSec)
	assert.InDelta(t, 31, *res.Output.DataAgeSec, 1e-9)

	res = e.Cycle(nil, now.Add(time.Minute))
	assert.Equal(t, model.StateSafeMode, res.Output.State)
	assert.Nil(t, res.Output.DataAgeSec)
}

func TestCycle_ConfirmsThenSwitches(t *testing.T) {
	e, b := newEngine(testParams())
	results := runMinutes(e, 0, 6)

	for i := 0; i < 4; i++ {
		assert.Equal(t, model.StateHold, results[i].Output.State, "minute %d", i)
		assert.Equal(t, []model.Reason{model.ReasonNoLeader}, results[i].Output.Reasons)
		assert.Equal(t, 0, results[i].Output.ConfirmK)
	}

	assert.Equal(t, "B", results[4].Output.Leader)
	assert.Equal(t, []model.Reason{model.ReasonConfirming}, results[4].Output.Reasons)
	assert.Equal(t, 1, results[4].Output.ConfirmK)
	assert.Equal(t, 2, results[5].Output.ConfirmK)

	last := results[6]
	assert.Equal(t, model.StateSwitching, last.Output.State)
	assert.Empty(t, last.Output.Reasons)
	assert.Equal(t, "B", last.Output.CurrentAsset)
	require.NotNil(t, last.Switch)
	assert.Equal(t, model.SwitchReasonRotation, last.Switch.Reason)
	assert.Equal(t, model.CashAsset, last.Switch.FromAsset)
	assert.Equal(t, "B", last.Switch.ToAsset)
	require.NotNil(t, last.Switch.EdgePct)
	assert.Greater(t, *last.Switch.EdgePct, 0.5)
	assert.Equal(t, 1, last.Output.SwitchesDay)
	assert.Equal(t, "B", b.CurrentAsset())
	assert.Equal(t, "B", last.Equity.Asset)

	next := runMinutes(e, 7, 7)[0]
	assert.Equal(t, model.StateSwitchBlocked, next.Output.State)
	assert.Equal(t, []model.Reason{model.ReasonMinHold}, next.Output.Reasons)
	assert.Equal(t, 9*time.Minute, next.Output.MinHoldLeft)
}

func TestCycle_NoReadyInsideHoldWindow(t *testing.T) {
	p := testParams()
	p.MinHoldSec = 60
	p.CooldownSec = 300
	e, _ := newEngine(p)
	runMinutes(e, 0, 6)

	for _, res := range runMinutes(e, 7, 10) {
		assert.NotEqual(t, model.StateReady, res.Output.State)
		assert.NotEqual(t, model.StateSwitching, res.Output.State)
	}
}

func TestCycle_ManualExecute(t *testing.T) {
	p := testParams()
	p.AutoSwitch = new(bool)
	e, b := newEngine(p)

	res := runMinutes(e, 0, 6)[6]
	assert.Equal(t, model.StateReady, res.Output.State)
	assert.Equal(t, model.ActionSwitch, res.Output.NextAction)
	assert.Nil(t, res.Switch)
	assert.True(t, b.Holdings().InCash())

	_, now := snapAt(6)
	rec, err := e.Execute(now)
	require.NoError(t, err)
	assert.Equal(t, "B", rec.ToAsset)
	assert.Equal(t, 1, e.State().SwitchesDay)

	_, err = e.Execute(now)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCycle_ExecutionFailureKeepsState(t *testing.T) {
	b := broker.Restore(model.BrokerState{
		Holdings:   model.Holdings{Asset: "Z", Quantity: 2},
		LastEquity: 40,
	})
	e := New(testParams(), b, zerolog.Nop())

	res := runMinutes(e, 0, 6)[6]
	assert.Equal(t, model.StateReady, res.Output.State)
	assert.NotEmpty(t, res.Output.ExecError)
	assert.Nil(t, res.Switch)
	assert.Equal(t, "Z", b.CurrentAsset())
	assert.Equal(t, 0, e.State().SwitchesDay)
	assert.True(t, e.State().LastSwitch.IsZero())
	assert.Equal(t, 40.0, res.Output.Equity)
}

func TestCycle_LeaderMissingFromSnapshotSkipsSwitch(t *testing.T) {
	e, b := newEngine(testParams())
	runMinutes(e, 0, 5)

	snap, now := snapAt(6)
	delete(snap.Prices, "B")
	res := e.Cycle(snap, now)

	require.Equal(t, "B", res.Output.Leader)
	assert.Equal(t, model.StateReady, res.Output.State)
	assert.Contains(t, res.Output.ExecError, broker.ErrMissingPrice.Error())
	assert.Nil(t, res.Switch)
	assert.True(t, b.Holdings().InCash())
	assert.Equal(t, 0, e.State().SwitchesDay)
	assert.True(t, e.State().LastSwitch.IsZero())
}

func TestExecute_UsesPreparedSnapshotOnly(t *testing.T) {
	p := testParams()
	p.AutoSwitch = new(bool)
	e, b := newEngine(p)
	runMinutes(e, 0, 5)

	snap, now := snapAt(6)
	delete(snap.Prices, "B")
	res := e.Cycle(snap, now)
	require.Equal(t, model.StateReady, res.Output.State)

	_, err := e.Execute(now)
	assert.ErrorIs(t, err, broker.ErrMissingPrice)
	assert.True(t, b.Holdings().InCash())
}

func TestExecute_DropsBlacklistedLeader(t *testing.T) {
	p := testParams()
	p.AutoSwitch = new(bool)
	e, b := newEngine(p)
	res := runMinutes(e, 0, 6)[6]
	require.Equal(t, model.StateReady, res.Output.State)

	e.Blacklist("A")
	e.Blacklist("B")
	_, now := snapAt(6)
	_, err := e.Execute(now)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.True(t, b.Holdings().InCash())
}

func TestExecute_RefusesStaleSnapshot(t *testing.T) {
	p := testParams()
	p.AutoSwitch = new(bool)
	e, b := newEngine(p)
	runMinutes(e, 0, 6)

	_, now := snapAt(6)
	_, err := e.Execute(now.Add(p.DataStale() + time.Second))
	assert.ErrorIs(t, err, ErrStaleData)
	assert.True(t, b.Holdings().InCash())

	_, err = e.Execute(now)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 0, e.State().SwitchesDay)
}

func TestCycle_Blacklist(t *testing.T) {
	e, _ := newEngine(testParams())
	e.Blacklist("B")
	res := runMinutes(e, 0, 6)[6]

	assert.Equal(t, "A", res.Output.Leader)
	assert.Equal(t, []model.Reason{model.ReasonEdgeTooSmall}, res.Output.Reasons)
	assert.Equal(t, []string{"B"}, e.Blacklisted())

	var excluded model.LeaderboardRow
	for _, r := range res.Output.Leaderboard {
		if r.Asset == "B" {
			excluded = r
		}
	}
	assert.True(t, excluded.Excluded)
	assert.Equal(t, "BLACKLISTED", excluded.Signal)
	assert.Equal(t, 1, excluded.Rank)

	e.Unblacklist("B")
	assert.Empty(t, e.Blacklisted())
	res = runMinutes(e, 7, 7)[0]
	assert.Equal(t, "B", res.Output.Leader)
	assert.Equal(t, 1, res.Output.ConfirmK)
}

func TestPark(t *testing.T) {
	e, b := newEngine(testParams())

	rec, err := e.Park(t0)
	require.NoError(t, err)
	assert.Nil(t, rec)

	runMinutes(e, 0, 6)
	require.Equal(t, "B", b.CurrentAsset())
	before := e.State()

	_, now := snapAt(7)
	rec, err = e.Park(now)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.SwitchReasonManualPark, rec.Reason)
	assert.Equal(t, "B", rec.FromAsset)
	assert.Equal(t, model.CashAsset, rec.ToAsset)
	assert.Nil(t, rec.EdgePct)
	assert.True(t, b.Holdings().InCash())
	assert.Equal(t, before, e.State())
}

func TestPark_HeldAssetMissingFromSnapshot(t *testing.T) {
	e, b := newEngine(testParams())
	runMinutes(e, 0, 6)
	require.Equal(t, "B", b.CurrentAsset())

	snap, now := snapAt(7)
	delete(snap.Prices, "B")
	e.Cycle(snap, now)

	rec, err := e.Park(now)
	assert.ErrorIs(t, err, broker.ErrMissingPrice)
	assert.Nil(t, rec)
	assert.Equal(t, "B", b.CurrentAsset())
}

func TestReconfigure_AppliesOnNextCycle(t *testing.T) {
	e, _ := newEngine(testParams())
	runMinutes(e, 0, 2)

	next := testParams()
	next.Universe = []string{"A", "C"}
	next.FeeBps = 10
	e.Reconfigure(next)
	assert.Equal(t, []string{"A", "B"}, e.Params().Universe)

	res := runMinutes(e, 3, 3)[0]
	assert.Equal(t, []string{"A", "C"}, e.Params().Universe)
	assert.InDelta(t, 34.0, res.Output.CostBps, 1e-9)
	assets := make([]string, 0, len(res.Output.Leaderboard))
	for _, r := range res.Output.Leaderboard {
		assets = append(assets, r.Asset)
	}
	assert.ElementsMatch(t, []string{"A", "C"}, assets)
}

func TestSetUniverse_KeepsOtherParams(t *testing.T) {
	p := testParams()
	p.ConfirmN = 5
	e, _ := newEngine(p)
	e.SetUniverse([]string{"B"})
	runMinutes(e, 0, 0)
	assert.Equal(t, []string{"B"}, e.Params().Universe)
	assert.Equal(t, 5, e.Params().ConfirmN)
}
