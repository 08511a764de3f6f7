package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"MomentumRotator/internal/broker"
	"MomentumRotator/internal/calculator"
	"MomentumRotator/internal/config"
	"MomentumRotator/internal/model"
	"MomentumRotator/internal/scoring"
)

// ErrNotReady is returned by Execute when the last cycle did not end in
// READY_TO_SWITCH.
var ErrNotReady = errors.New("no switch is ready")

// ErrStaleData is returned by Execute when the snapshot behind the prepared
// switch is older than the staleness limit.
var ErrStaleData = errors.New("prepared switch is based on stale prices")

// Result is everything one cycle produced.
type Result struct {
	Output *model.DecisionOutput
	Equity model.EquityPoint
	Switch *model.SwitchRecord // set when the cycle executed a rotation
}

// pendingSwitch is a READY_TO_SWITCH verdict together with the snapshot it
// was decided on. Both legs are priced from that snapshot only.
type pendingSwitch struct {
	leader     string
	edgePct    float64
	netEdgePct float64
	prices     map[string]float64
	fetchedAt  time.Time
}

// Engine turns price snapshots into rotation decisions and drives the paper
// broker. It is not safe for concurrent use; the scheduler owns it from a
// single goroutine. Reconfigure is the exception.
type Engine struct {
	log     zerolog.Logger
	params  config.Strategy
	pending atomic.Pointer[config.Strategy]

	cost   calculator.CostModel
	scorer *scoring.Engine
	broker *broker.Paper
	state  State

	blacklist  map[string]bool
	lastPrices map[string]float64 // last known price per asset, for valuation only
	snapshot   *model.PriceSnapshot
	ready      *pendingSwitch
}

// New creates an engine over the given broker.
func New(params config.Strategy, b *broker.Paper, log zerolog.Logger) *Engine {
	params = params.Clone()
	return &Engine{
		log:        log.With().Str("component", "strategy").Logger(),
		params:     params,
		cost:       params.CostModel(),
		scorer:     scoring.NewEngine(params.Universe, params.Windows()),
		broker:     b,
		blacklist:  make(map[string]bool),
		lastPrices: make(map[string]float64),
	}
}

// Reconfigure stores a new parameter snapshot. The next cycle swaps it in
// before doing anything else. Safe to call from any goroutine.
func (e *Engine) Reconfigure(p config.Strategy) {
	c := p.Clone()
	e.pending.Store(&c)
}

// SetUniverse reconfigures the engine with a new asset list, keeping every
// other parameter.
func (e *Engine) SetUniverse(assets []string) {
	base := e.params
	if p := e.pending.Load(); p != nil {
		base = *p
	}
	next := base.Clone()
	next.Universe = append([]string(nil), assets...)
	e.Reconfigure(next)
}

// Params returns the parameters in effect.
func (e *Engine) Params() config.Strategy {
	return e.params.Clone()
}

// State returns a copy of the hysteresis state.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) applyPending() {
	p := e.pending.Swap(nil)
	if p == nil {
		return
	}
	e.params = *p
	e.cost = p.CostModel()
	e.scorer.SetWindows(p.Windows())
	e.scorer.SetUniverse(p.Universe)
	e.log.Info().
		Strs("universe", p.Universe).
		Float64("round_trip_bps", e.cost.RoundTripBps()).
		Msg("parameters reconfigured")
}

// Blacklist excludes asset from leadership until Unblacklist. A prepared
// switch into asset is dropped.
func (e *Engine) Blacklist(asset string) {
	e.blacklist[asset] = true
	if e.ready != nil && e.ready.leader == asset {
		e.ready = nil
	}
}

// Unblacklist lets asset compete for leadership again.
func (e *Engine) Unblacklist(asset string) {
	delete(e.blacklist, asset)
}

// Blacklisted returns the excluded assets in sorted order.
func (e *Engine) Blacklisted() []string {
	out := make([]string, 0, len(e.blacklist))
	for a := range e.blacklist {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Cycle runs one decision cycle over snap. A nil snapshot means no data and
// yields SAFE_MODE. When the verdict is READY_TO_SWITCH and auto switching is
// on, the rotation is executed in the same cycle.
func (e *Engine) Cycle(snap *model.PriceSnapshot, now time.Time) Result {
	e.applyPending()
	e.ready = nil
	e.snapshot = snap

	var dataAge *time.Duration
	if snap != nil {
		e.scorer.UpdatePrices(snap.Prices, snap.FetchedAt)
		for a, p := range snap.Prices {
			if p > 0 {
				e.lastPrices[a] = p
			}
		}
		age := snap.Age(now)
		dataAge = &age
	}

	ranked, leaderRow, hasLeader := scoring.Rank(e.scorer.Scores(now), e.blacklist)
	current := e.broker.CurrentAsset()
	currentScore := e.scoreOf(ranked, current)

	leader := ""
	if hasLeader {
		leader = leaderRow.Asset
	}
	e.state.Advance(leader, now)

	in := Inputs{DataAge: dataAge, Leader: leader, Current: current}
	var edgePct, netEdgePct *float64
	if hasLeader {
		edge := calculator.FractionToPct(*leaderRow.Score - currentScore)
		net := edge - e.cost.RoundTripPct()
		in.EdgePct, in.NetEdgePct = edge, net
		edgePct, netEdgePct = &edge, &net
	}

	verdict, reason := Gate(e.params, e.state, in, now)

	out := &model.DecisionOutput{
		Time:         now,
		Mode:         model.ModePaper,
		Connection:   model.ConnectionOK,
		State:        verdict,
		CurrentAsset: current,
		Leader:       leader,
		EdgePct:      edgePct,
		NetEdgePct:   netEdgePct,
		CostBps:      e.cost.RoundTripBps(),
		CostPct:      e.cost.RoundTripFraction(),
		ConfirmK:     e.state.StreakCount,
		ConfirmN:     e.params.ConfirmN,
		MaxSwitches:  e.params.MaxSwitchesPerDay,
		NextAction:   model.ActionHold,
	}
	if reason != "" {
		out.Reasons = []model.Reason{reason}
	}
	if dataAge != nil {
		sec := dataAge.Seconds()
		out.DataAgeSec = &sec
	}

	var res Result
	if verdict == model.StateReady {
		e.ready = &pendingSwitch{
			leader:     leader,
			edgePct:    in.EdgePct,
			netEdgePct: in.NetEdgePct,
			prices:     snap.Prices,
			fetchedAt:  snap.FetchedAt,
		}
		out.NextAction = model.ActionSwitch
		if e.params.AutoExecute() {
			rec, err := e.Execute(now)
			if err != nil {
				out.ExecError = err.Error()
			} else {
				res.Switch = rec
				out.State = model.StateSwitching
				out.CurrentAsset = e.broker.CurrentAsset()
			}
		}
	}

	out.SwitchesDay = e.state.SwitchesDay
	out.MinHoldLeft = e.state.MinHoldLeft(now, e.params.MinHold())
	out.CooldownLeft = e.state.CooldownLeft(now)
	out.Equity = e.broker.Equity(e.lastPrices)
	out.Leaderboard = e.leaderboard(ranked, out.CurrentAsset, leader, e.scoreOf(ranked, out.CurrentAsset))

	h := e.broker.Holdings()
	res.Output = out
	res.Equity = model.EquityPoint{Time: now, Asset: h.Asset, Quantity: h.Quantity, Equity: out.Equity}

	e.log.Debug().
		Str("state", string(out.State)).
		Str("leader", leader).
		Str("current", out.CurrentAsset).
		Interface("edge_pct", edgePct).
		Interface("net_edge_pct", netEdgePct).
		Strs("reasons", out.ReasonStrings()).
		Msg("cycle")
	return res
}

// Execute performs the rotation prepared by the last READY_TO_SWITCH cycle,
// priced from that cycle's snapshot. A prepared switch whose snapshot has
// gone stale is discarded. A broker failure leaves holdings and hysteresis
// state untouched.
func (e *Engine) Execute(now time.Time) (*model.SwitchRecord, error) {
	if e.ready == nil {
		return nil, ErrNotReady
	}
	r := *e.ready
	if now.Sub(r.fetchedAt) > e.params.DataStale() {
		e.ready = nil
		return nil, ErrStaleData
	}

	res, err := e.broker.Switch(r.leader, r.prices, e.cost.PerTradeBps())
	if err != nil {
		e.log.Error().Err(err).Str("to", r.leader).Msg("switch failed")
		return nil, fmt.Errorf("execute switch: %w", err)
	}
	e.ready = nil
	e.state.RecordSwitch(now, e.params.Cooldown())

	rec := &model.SwitchRecord{
		Time:        now,
		FromAsset:   res.From,
		ToAsset:     res.To,
		Reason:      model.SwitchReasonRotation,
		EquityAfter: e.broker.Equity(e.lastPrices),
		EdgePct:     &r.edgePct,
		NetEdgePct:  &r.netEdgePct,
		ValueBefore: res.ValueBefore,
		ValueAfter:  res.ValueAfter,
		CostPaid:    res.CostPaid,
		PriceUsed:   res.PriceUsed,
	}
	e.log.Info().
		Str("from", rec.FromAsset).
		Str("to", rec.ToAsset).
		Float64("equity", rec.EquityAfter).
		Float64("cost_paid", rec.CostPaid).
		Msg("switched")
	return rec, nil
}

// Park sells the held asset into cash at its price in the latest snapshot.
// It returns a nil record when already in cash. A park does not count toward
// the daily limit and does not arm min-hold or cooldown.
func (e *Engine) Park(now time.Time) (*model.SwitchRecord, error) {
	if e.broker.Holdings().InCash() {
		return nil, nil
	}
	var prices map[string]float64
	if e.snapshot != nil {
		prices = e.snapshot.Prices
	}
	res, err := e.broker.Park(prices, e.cost.PerTradeBps())
	if err != nil {
		return nil, fmt.Errorf("park: %w", err)
	}
	e.ready = nil
	rec := &model.SwitchRecord{
		Time:        now,
		FromAsset:   res.From,
		ToAsset:     res.To,
		Reason:      model.SwitchReasonManualPark,
		EquityAfter: e.broker.Equity(e.lastPrices),
		ValueBefore: res.ValueBefore,
		ValueAfter:  res.ValueAfter,
		CostPaid:    res.CostPaid,
		PriceUsed:   res.PriceUsed,
	}
	e.log.Info().Str("from", rec.FromAsset).Float64("equity", rec.EquityAfter).Msg("parked")
	return rec, nil
}

// LastPrices returns a copy of the most recent price per asset.
func (e *Engine) LastPrices() map[string]float64 {
	out := make(map[string]float64, len(e.lastPrices))
	for a, p := range e.lastPrices {
		out[a] = p
	}
	return out
}

func (e *Engine) scoreOf(rows []model.ScoreRow, asset string) float64 {
	if asset == model.CashAsset {
		return 0
	}
	for _, r := range rows {
		if r.Asset == asset && r.Score != nil {
			return *r.Score
		}
	}
	return 0
}

func (e *Engine) leaderboard(ranked []model.ScoreRow, current, leader string, currentScore float64) []model.LeaderboardRow {
	costBps := e.cost.RoundTripBps()
	rows := make([]model.LeaderboardRow, 0, len(ranked))
	rank := 0
	for _, r := range ranked {
		lr := model.LeaderboardRow{
			Asset:    r.Asset,
			Score:    r.Score,
			Ret15m:   r.Ret15m,
			Ret1h:    r.Ret1h,
			Ret4h:    r.Ret4h,
			CostBps:  costBps,
			Excluded: e.blacklist[r.Asset],
		}
		if r.Rankable() {
			rank++
			lr.Rank = rank
			edge := (*r.Score - currentScore) * calculator.BpsPerUnit
			net := edge - costBps
			lr.EdgeBps, lr.NetEdgeBps = &edge, &net
		}
		switch {
		case lr.Excluded:
			lr.Signal = "BLACKLISTED"
		case !r.Rankable():
			lr.Signal = "WARMUP"
		case r.Asset == current:
			lr.Signal = "HELD"
		case r.Asset == leader:
			lr.Signal = "LEADER"
		}
		if r.Asset == leader {
			lr.Confirm = fmt.Sprintf("%d/%d", e.state.StreakCount, e.params.ConfirmN)
		}
		rows = append(rows, lr)
	}
	return rows
}
