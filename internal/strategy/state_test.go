package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_Streak(t *testing.T) {
	var s State
	steps := []struct {
		leader string
		want   int
	}{
		{"A", 1},
		{"A", 2},
		{"A", 3},
		{"B", 1},
		{"B", 2},
		{"", 0},
		{"B", 1},
	}
	for i, st := range steps {
		s.Advance(st.leader, t0.Add(time.Duration(i)*time.Minute))
		assert.Equal(t, st.want, s.StreakCount, "step %d", i)
		assert.Equal(t, st.leader, s.StreakAsset, "step %d", i)
	}
}

func TestState_DailyReset(t *testing.T) {
	var s State
	late := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)

	s.Advance("A", late)
	s.RecordSwitch(late, time.Minute)
	s.RecordSwitch(late, time.Minute)
	s.Advance("A", late.Add(30*time.Second))
	assert.Equal(t, 2, s.SwitchesDay)

	s.Advance("A", late.Add(2*time.Minute))
	assert.Equal(t, 0, s.SwitchesDay)
	assert.Equal(t, "2026-03-02", s.Day)

	s.RecordSwitch(late.Add(2*time.Minute), time.Minute)
	s.Advance("A", late.Add(3*time.Minute))
	assert.Equal(t, 1, s.SwitchesDay)
}

func TestState_DailyResetUsesUTC(t *testing.T) {
	var s State
	tokyo := time.FixedZone("JST", 9*3600)
	s.Advance("", time.Date(2026, 3, 2, 1, 0, 0, 0, tokyo))
	assert.Equal(t, "2026-03-01", s.Day)
}

func TestState_Timers(t *testing.T) {
	var s State
	assert.Zero(t, s.MinHoldLeft(t0, 15*time.Minute))
	assert.Zero(t, s.CooldownLeft(t0))

	s.RecordSwitch(t0, 2*time.Minute)
	assert.Equal(t, 15*time.Minute, s.MinHoldLeft(t0, 15*time.Minute))
	assert.Equal(t, 2*time.Minute, s.CooldownLeft(t0))
	assert.Equal(t, 60*time.Second, s.CooldownLeft(t0.Add(time.Minute)))
	assert.Zero(t, s.CooldownLeft(t0.Add(5*time.Minute)))
	assert.Zero(t, s.MinHoldLeft(t0.Add(20*time.Minute), 15*time.Minute))
}
