package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MomentumRotator/internal/model"
)

// feed writes one price per minute for asset from start to end inclusive,
// using price(i) for the i-th minute.
func feed(e *Engine, asset string, start, end time.Time, price func(i int) float64) {
	i := 0
	for ts := start; !ts.After(end); ts = ts.Add(time.Minute) {
		e.Update(asset, price(i), ts)
		i++
	}
}

func TestMaxAge(t *testing.T) {
	assert.Equal(t, 4*time.Hour+5*time.Minute, DefaultWindows().MaxAge())
}

func TestReturnOver_FallsBackToOldest(t *testing.T) {
	e := NewEngine([]string{"A"}, DefaultWindows())
	e.Update("A", 100, t0)
	e.Update("A", 110, t0.Add(10*time.Minute))

	r, ok := e.ReturnOver("A", t0.Add(10*time.Minute), time.Hour)
	require.True(t, ok)
	assert.InDelta(t, 0.10, r, 1e-12)
}

func TestReturnOver_NoHistory(t *testing.T) {
	e := NewEngine([]string{"A"}, DefaultWindows())
	_, ok := e.ReturnOver("A", t0, time.Hour)
	assert.False(t, ok)
	_, ok = e.ReturnOver("ZZZ", t0, time.Hour)
	assert.False(t, ok)
}

func TestScore_WeightedComposite(t *testing.T) {
	e := NewEngine([]string{"A"}, DefaultWindows())
	now := t0.Add(4 * time.Hour)
	e.Update("A", 100, t0)                       // 4h ago
	e.Update("A", 120, now.Add(-time.Hour))      // 1h ago
	e.Update("A", 125, now.Add(-15*time.Minute)) // 15m ago
	e.Update("A", 150, now)

	s := e.Score("A", now)
	require.NotNil(t, s)
	want := 0.5*(150.0/125-1) + 0.3*(150.0/120-1) + 0.2*(150.0/100-1)
	assert.InDelta(t, want, *s, 1e-12)
}

func TestScore_NilWithoutFullHistory(t *testing.T) {
	e := NewEngine([]string{"A", "B"}, DefaultWindows())
	now := t0.Add(4 * time.Hour)
	feed(e, "A", t0, now, func(i int) float64 { return 100 + 0.01*float64(i) })
	feed(e, "B", now.Add(-10*time.Minute), now, func(i int) float64 { return 100 + 5*float64(i) })

	rows := e.Scores(now)
	require.Len(t, rows, 2)
	assert.NotNil(t, rows[0].Score)
	assert.Nil(t, rows[1].Score)
	require.NotNil(t, rows[1].Ret15m, "short history still reports a fallback return")
	assert.Greater(t, *rows[1].Ret15m, *rows[0].Score)

	_, leader, ok := Rank(rows, nil)
	require.True(t, ok)
	assert.Equal(t, "A", leader.Asset)
}

func TestUpdatePrices_MissingAssetsDoNotGrow(t *testing.T) {
	e := NewEngine([]string{"A", "B"}, DefaultWindows())
	n := e.UpdatePrices(map[string]float64{"A": 100, "X": 5}, t0)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, e.histories["A"].Len())
	assert.Equal(t, 0, e.histories["B"].Len())
}

func TestSetUniverse_KeepsUnaffectedHistories(t *testing.T) {
	e := NewEngine([]string{"A", "B"}, DefaultWindows())
	e.UpdatePrices(map[string]float64{"A": 100, "B": 50}, t0)

	e.SetUniverse([]string{"A", "C"})
	assert.Equal(t, []string{"A", "C"}, e.Assets())
	assert.Equal(t, 1, e.histories["A"].Len())
	assert.Equal(t, 0, e.histories["C"].Len())
	_, ok := e.histories["B"]
	assert.False(t, ok)

	e.SetUniverse([]string{"A", "B"})
	assert.Equal(t, 0, e.histories["B"].Len(), "re-added asset starts fresh")
}

func ptr(v float64) *float64 { return &v }

func TestRank(t *testing.T) {
	rows := []model.ScoreRow{
		{Asset: "A", Score: ptr(0.01)},
		{Asset: "B"},
		{Asset: "C", Score: ptr(0.03)},
		{Asset: "D", Score: ptr(0.02)},
	}

	ranked, leader, ok := Rank(rows, nil)
	require.True(t, ok)
	assert.Equal(t, "C", leader.Asset)
	var order []string
	for _, r := range ranked {
		order = append(order, r.Asset)
	}
	assert.Equal(t, []string{"C", "D", "A", "B"}, order)

	_, leader, ok = Rank(rows, map[string]bool{"C": true})
	require.True(t, ok)
	assert.Equal(t, "D", leader.Asset, "excluded assets are removed before selection")

	_, _, ok = Rank([]model.ScoreRow{{Asset: "B"}}, nil)
	assert.False(t, ok)
}
