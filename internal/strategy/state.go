package strategy

import "time"

const dayLayout = "2006-01-02"

// State is the engine's rolling memory between cycles. It is owned by one
// Engine and mutated only from its cycle.
type State struct {
	LastSwitch    time.Time
	CooldownUntil time.Time
	SwitchesDay   int
	Day           string // UTC date the counter belongs to
	StreakAsset   string
	StreakCount   int
}

// Advance runs the per-cycle bookkeeping: the daily counter resets on the
// first cycle of a new UTC day, and the leader streak grows while the same
// leader persists. An empty leader clears the streak.
func (s *State) Advance(leader string, now time.Time) {
	day := now.UTC().Format(dayLayout)
	if s.Day != day {
		s.Day = day
		s.SwitchesDay = 0
	}

	switch {
	case leader == "":
		s.StreakAsset = ""
		s.StreakCount = 0
	case leader == s.StreakAsset:
		s.StreakCount++
	default:
		s.StreakAsset = leader
		s.StreakCount = 1
	}
}

// RecordSwitch stamps an executed rotation.
func (s *State) RecordSwitch(now time.Time, cooldown time.Duration) {
	s.LastSwitch = now
	s.CooldownUntil = now.Add(cooldown)
	s.SwitchesDay++
}

// MinHoldLeft returns how long the min-hold gate still blocks at now.
func (s State) MinHoldLeft(now time.Time, minHold time.Duration) time.Duration {
	if s.LastSwitch.IsZero() {
		return 0
	}
	return positive(minHold - now.Sub(s.LastSwitch))
}

// CooldownLeft returns how long the cooldown gate still blocks at now.
func (s State) CooldownLeft(now time.Time) time.Duration {
	if s.CooldownUntil.IsZero() {
		return 0
	}
	return positive(s.CooldownUntil.Sub(now))
}

func positive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
