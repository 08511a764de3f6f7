package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestHistory_PrunesOnWrite(t *testing.T) {
	h := NewHistory(10 * time.Minute)
	for i := 0; i <= 20; i++ {
		require.True(t, h.Add(t0.Add(time.Duration(i)*time.Minute), float64(100+i)))
	}
	oldest, ok := h.Oldest()
	require.True(t, ok)
	assert.Equal(t, t0.Add(10*time.Minute), oldest.Time)
	assert.Equal(t, 11, h.Len())
}

func TestHistory_RejectsOutOfOrder(t *testing.T) {
	h := NewHistory(time.Hour)
	require.True(t, h.Add(t0.Add(time.Minute), 100))
	assert.False(t, h.Add(t0, 99))
	assert.True(t, h.Add(t0.Add(time.Minute), 101), "equal timestamps are allowed")
	assert.Equal(t, 2, h.Len())
}

func TestHistory_AtOrBefore(t *testing.T) {
	h := NewHistory(time.Hour)
	h.Add(t0, 100)
	h.Add(t0.Add(5*time.Minute), 105)
	h.Add(t0.Add(10*time.Minute), 110)

	p, ok := h.AtOrBefore(t0.Add(7 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, 105.0, p.Price)

	p, ok = h.AtOrBefore(t0.Add(10 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, 110.0, p.Price)

	_, ok = h.AtOrBefore(t0.Add(-time.Second))
	assert.False(t, ok)
}

func TestHistory_Covers(t *testing.T) {
	h := NewHistory(time.Hour)
	assert.False(t, h.Covers(t0, time.Minute))
	h.Add(t0, 100)
	h.Add(t0.Add(15*time.Minute), 101)
	now := t0.Add(15 * time.Minute)
	assert.True(t, h.Covers(now, 15*time.Minute))
	assert.False(t, h.Covers(now, 16*time.Minute))
}
