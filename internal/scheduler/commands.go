package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MomentumRotator/internal/model"
	"MomentumRotator/internal/notifier"
)

type commandKind int

const (
	cmdPark commandKind = iota
	cmdSwitch
	cmdBlacklist
	cmdUnblacklist
	cmdUniverse
	cmdBlacklisted
)

type command struct {
	kind   commandKind
	asset  string
	assets []string
	reply  chan commandResult
}

type commandResult struct {
	record *model.SwitchRecord
	assets []string
	err    error
}

const commandTimeout = 10 * time.Second

// do hands cmd to the Run goroutine and waits for its result.
func (s *Scheduler) do(ctx context.Context, cmd command) (commandResult, error) {
	cmd.reply = make(chan commandResult, 1)
	select {
	case s.commands <- cmd:
	case <-s.done:
		return commandResult{}, ErrStopped
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
}

func (s *Scheduler) handle(cmd command) commandResult {
	now := s.opts.Now()
	switch cmd.kind {
	case cmdPark:
		rec, err := s.engine.Park(now)
		if err != nil {
			s.log.Error().Err(err).Msg("manual park failed")
			return commandResult{err: err}
		}
		if rec != nil {
			s.afterSwitch(rec)
			s.reflectHolding(rec.ToAsset, model.StateHold)
		}
		return commandResult{record: rec}
	case cmdSwitch:
		rec, err := s.engine.Execute(now)
		if err != nil {
			return commandResult{err: err}
		}
		s.afterSwitch(rec)
		s.reflectHolding(rec.ToAsset, model.StateSwitching)
		return commandResult{record: rec}
	case cmdBlacklist:
		s.engine.Blacklist(cmd.asset)
		s.log.Info().Str("asset", cmd.asset).Msg("blacklisted")
		return commandResult{assets: s.engine.Blacklisted()}
	case cmdUnblacklist:
		s.engine.Unblacklist(cmd.asset)
		s.log.Info().Str("asset", cmd.asset).Msg("unblacklisted")
		return commandResult{assets: s.engine.Blacklisted()}
	case cmdUniverse:
		s.engine.SetUniverse(cmd.assets)
		s.feed.SetAssets(cmd.assets)
		s.log.Info().Strs("universe", cmd.assets).Msg("universe updated")
		return commandResult{assets: cmd.assets}
	case cmdBlacklisted:
		return commandResult{assets: s.engine.Blacklisted()}
	}
	return commandResult{err: fmt.Errorf("unknown command %d", cmd.kind)}
}

// reflectHolding updates the published decision after a command moved the
// portfolio, so readers do not see the old holding until the next cycle.
func (s *Scheduler) reflectHolding(asset string, state model.DecisionState) {
	cur := s.latest.Load()
	if cur == nil {
		return
	}
	next := cur.Clone()
	next.State = state
	next.CurrentAsset = asset
	next.NextAction = model.ActionHold
	next.ExecError = ""
	next.Equity = s.broker.Equity(s.engine.LastPrices())
	s.latest.Store(next)
}

// Park sells the held asset into cash. The record is nil when already in cash.
func (s *Scheduler) Park(ctx context.Context) (*model.SwitchRecord, error) {
	res, err := s.do(ctx, command{kind: cmdPark})
	return res.record, err
}

// ExecuteSwitch performs the switch prepared by the last READY_TO_SWITCH
// cycle. Used when auto switching is off.
func (s *Scheduler) ExecuteSwitch(ctx context.Context) (*model.SwitchRecord, error) {
	res, err := s.do(ctx, command{kind: cmdSwitch})
	return res.record, err
}

// Blacklist excludes asset from leadership and returns the blacklist.
func (s *Scheduler) Blacklist(ctx context.Context, asset string) ([]string, error) {
	res, err := s.do(ctx, command{kind: cmdBlacklist, asset: normalizeAsset(asset)})
	return res.assets, err
}

// Unblacklist removes asset from the blacklist and returns the blacklist.
func (s *Scheduler) Unblacklist(ctx context.Context, asset string) ([]string, error) {
	res, err := s.do(ctx, command{kind: cmdUnblacklist, asset: normalizeAsset(asset)})
	return res.assets, err
}

// Blacklisted returns the current blacklist.
func (s *Scheduler) Blacklisted(ctx context.Context) ([]string, error) {
	res, err := s.do(ctx, command{kind: cmdBlacklisted})
	return res.assets, err
}

// SetUniverse switches the engine and the feed to a new asset list. The
// engine applies it at the start of its next cycle.
func (s *Scheduler) SetUniverse(ctx context.Context, assets []string) error {
	if len(assets) == 0 {
		return errors.New("empty universe")
	}
	_, err := s.do(ctx, command{kind: cmdUniverse, assets: append([]string(nil), assets...)})
	return err
}

func normalizeAsset(a string) string {
	return strings.ToUpper(strings.TrimSpace(a))
}

// HandleCommand processes a Telegram command and returns a reply.
func (s *Scheduler) HandleCommand(text string) string {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	name := strings.SplitN(fields[0], "@", 2)[0]
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch name {
	case "/status":
		return notifier.FormatDecision(s.Latest())
	case "/park":
		rec, err := s.Park(ctx)
		switch {
		case err != nil:
			return fmt.Sprintf("❌ Park failed: %v", err)
		case rec == nil:
			return "Already in " + model.CashAsset
		default:
			return ""
		}
	case "/switch":
		if _, err := s.ExecuteSwitch(ctx); err != nil {
			return fmt.Sprintf("❌ Switch failed: %v", err)
		}
		return ""
	case "/blacklist", "/unblacklist":
		if arg == "" {
			return "Usage: " + name + " ASSET"
		}
		var (
			list []string
			err  error
		)
		if name == "/blacklist" {
			list, err = s.Blacklist(ctx, arg)
		} else {
			list, err = s.Unblacklist(ctx, arg)
		}
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		if len(list) == 0 {
			return "Blacklist is empty"
		}
		return "Blacklist: " + strings.Join(list, ", ")
	case "/report":
		summary, err := s.Report()
		if err != nil {
			return fmt.Sprintf("❌ Report failed: %v", err)
		}
		return notifier.FormatSummary(summary)
	default:
		return notifier.FormatHelp()
	}
}
