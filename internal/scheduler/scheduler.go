package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"MomentumRotator/internal/broker"
	"MomentumRotator/internal/collector"
	"MomentumRotator/internal/logger"
	"MomentumRotator/internal/model"
	"MomentumRotator/internal/notifier"
	"MomentumRotator/internal/recorder"
	"MomentumRotator/internal/report"
	"MomentumRotator/internal/strategy"
)

// ErrStopped is returned by commands issued after Run has returned.
var ErrStopped = errors.New("scheduler stopped")

// Feed is the price worker the scheduler drives.
type Feed interface {
	Trigger() bool
	Snapshots() <-chan *model.PriceSnapshot
	Failures() <-chan error
	SetAssets(assets []string)
}

// Options configures the scheduler's jobs and persistence.
type Options struct {
	UpdateInterval time.Duration
	ReportCron     string
	UniverseCron   string // ignored when Selector is nil
	ReportDir      string
	StateFile      string
	StartBalance   float64
	Now            func() time.Time
}

// Scheduler owns the decision engine and the paper broker. Cycles and user
// commands run on the goroutine that calls Run, so engine state has a single
// writer. The latest decision is published for lock-free readers.
type Scheduler struct {
	Cron     *cron.Cron
	Selector *collector.Selector

	engine   *strategy.Engine
	broker   *broker.Paper
	feed     Feed
	notifier notifier.Notifier
	recorder recorder.Recorder
	opts     Options
	log      zerolog.Logger

	latest   atomic.Pointer[model.DecisionOutput]
	degraded atomic.Bool
	commands chan command
	done     chan struct{}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(eng *strategy.Engine, b *broker.Paper, feed Feed, n notifier.Notifier, rec recorder.Recorder, opts Options, log zerolog.Logger) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cl := logger.NewCronLogger(log)
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		engine:   eng,
		broker:   b,
		feed:     feed,
		notifier: n,
		recorder: rec,
		opts:     opts,
		log:      log.With().Str("component", "scheduler").Logger(),
		commands: make(chan command),
		done:     make(chan struct{}),
	}
}

// RegisterAll registers the price tick, the daily report and, when a
// selector is set, the universe refresh.
func (s *Scheduler) RegisterAll() error {
	tick := fmt.Sprintf("@every %s", s.opts.UpdateInterval)
	if _, err := s.Cron.AddFunc(tick, s.tick); err != nil {
		return fmt.Errorf("register price tick: %w", err)
	}
	if s.opts.ReportCron != "" {
		if _, err := s.Cron.AddFunc(s.opts.ReportCron, s.reportTask); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	if s.Selector != nil && s.opts.UniverseCron != "" {
		if _, err := s.Cron.AddFunc(s.opts.UniverseCron, s.universeTask); err != nil {
			return fmt.Errorf("register universe task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Dur("interval", s.opts.UpdateInterval).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) tick() {
	if !s.feed.Trigger() {
		s.log.Debug().Msg("fetch still running, tick skipped")
	}
}

// Run consumes snapshots, fetch failures and commands until ctx is
// cancelled. It must be called exactly once.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.saveState()
			return ctx.Err()
		case snap := <-s.feed.Snapshots():
			s.cycle(snap)
		case err := <-s.feed.Failures():
			s.markDegraded(err)
		case cmd := <-s.commands:
			cmd.reply <- s.handle(cmd)
		}
	}
}

// Latest returns a copy of the most recent decision, or nil before the
// first cycle.
func (s *Scheduler) Latest() *model.DecisionOutput {
	return s.latest.Load().Clone()
}

func (s *Scheduler) publish(out *model.DecisionOutput) {
	s.latest.Store(out.Clone())
}

func (s *Scheduler) cycle(snap *model.PriceSnapshot) {
	now := s.opts.Now()
	res := s.engine.Cycle(snap, now)
	if s.degraded.Swap(false) {
		s.log.Info().Msg("price feed recovered")
	}
	s.publish(res.Output)

	out := res.Output
	s.log.Info().
		Str("state", string(out.State)).
		Str("current", out.CurrentAsset).
		Str("leader", out.Leader).
		Interface("edge_pct", out.EdgePct).
		Interface("net_edge_pct", out.NetEdgePct).
		Strs("reasons", out.ReasonStrings()).
		Float64("equity", out.Equity).
		Msg("decision")

	if snap != nil {
		if err := s.recorder.RecordTick(snap, out.DataAgeSec); err != nil {
			s.log.Error().Err(err).Msg("record tick")
		}
	}
	if err := s.recorder.RecordDecision(out); err != nil {
		s.log.Error().Err(err).Msg("record decision")
	}
	if err := s.recorder.RecordEquity(res.Equity); err != nil {
		s.log.Error().Err(err).Msg("record equity")
	}
	if res.Switch != nil {
		s.afterSwitch(res.Switch)
	}
}

func (s *Scheduler) afterSwitch(rec *model.SwitchRecord) {
	if err := s.recorder.RecordSwitch(rec); err != nil {
		s.log.Error().Err(err).Msg("record switch")
	}
	s.saveState()
	s.trySend(notifier.FormatSwitch(rec))
}

func (s *Scheduler) markDegraded(err error) {
	if !s.degraded.Swap(true) {
		s.log.Warn().Err(err).Msg("price feed degraded, cycle skipped")
	}
	cur := s.latest.Load()
	if cur == nil {
		return
	}
	next := cur.Clone()
	next.Connection = model.ConnectionDegraded
	s.latest.Store(next)
}

func (s *Scheduler) saveState() {
	if s.opts.StateFile == "" {
		return
	}
	if err := s.broker.Save(s.opts.StateFile); err != nil {
		s.log.Error().Err(err).Str("path", s.opts.StateFile).Msg("save broker state")
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.notifier.Send(text); err != nil {
		s.log.Warn().Err(err).Msg("notify")
	}
}

func (s *Scheduler) reportTask() {
	summary, err := s.Report()
	if err != nil {
		s.log.Error().Err(err).Msg("build report")
		return
	}
	if s.opts.ReportDir != "" {
		if err := s.Export(summary); err != nil {
			s.log.Error().Err(err).Msg("export report")
		}
	}
	s.trySend(notifier.FormatSummary(summary))
}

func (s *Scheduler) universeTask() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	assets := s.Selector.Select(ctx)
	if err := s.SetUniverse(ctx, assets); err != nil {
		s.log.Error().Err(err).Msg("apply universe")
	}
}

// Report builds a performance summary from storage.
func (s *Scheduler) Report() (report.Summary, error) {
	equity, err := s.recorder.LatestEquity(0)
	if err != nil {
		return report.Summary{}, err
	}
	switches, err := s.recorder.LatestSwitches(0)
	if err != nil {
		return report.Summary{}, err
	}
	decisions, err := s.recorder.LatestDecisions(0)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Build(s.opts.StartBalance, equity, switches, decisions, s.opts.Now()), nil
}

// Export writes the report files into the configured directory.
func (s *Scheduler) Export(summary report.Summary) error {
	equity, err := s.recorder.LatestEquity(0)
	if err != nil {
		return err
	}
	switches, err := s.recorder.LatestSwitches(0)
	if err != nil {
		return err
	}
	return report.Export(s.opts.ReportDir, summary, equity, switches)
}

// AnnounceStartup logs and sends the last stored equity point and switch.
func (s *Scheduler) AnnounceStartup(universe []string) {
	var (
		lastEquity *model.EquityPoint
		lastSwitch *model.SwitchRecord
	)
	if eq, err := s.recorder.LatestEquity(1); err != nil {
		s.log.Warn().Err(err).Msg("load last equity")
	} else if len(eq) == 1 {
		lastEquity = &eq[0]
		s.log.Info().Time("at", eq[0].Time).Str("asset", eq[0].Asset).Float64("equity", eq[0].Equity).Msg("last equity")
	}
	if sw, err := s.recorder.LatestSwitches(1); err != nil {
		s.log.Warn().Err(err).Msg("load last switch")
	} else if len(sw) == 1 {
		lastSwitch = &sw[0]
		s.log.Info().Time("at", sw[0].Time).Str("from", sw[0].FromAsset).Str("to", sw[0].ToAsset).Msg("last switch")
	}
	s.trySend(notifier.FormatStartup(universe, lastEquity, lastSwitch))
}
