package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_MapsSymbolsToAssets(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &MockFetcher{
		Prices: map[string]float64{"BTCUSDT": 64000, "ETHUSDT": 3200, "XRPUSDT": 0.5},
		Now:    func() time.Time { return fixed },
	}
	c := NewCollector(m, "USDT", []string{"BTC", "ETH", "SOL"}, time.Second, zerolog.Nop())

	snap, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC": 64000, "ETH": 3200}, snap.Prices)
	assert.Equal(t, fixed, snap.FetchedAt)
	assert.Equal(t, "mock", snap.Source)
}

func TestRun_DeliversSnapshotsAndFailures(t *testing.T) {
	m := &MockFetcher{Prices: map[string]float64{"BTCUSDT": 1}}
	c := NewCollector(m, "USDT", []string{"BTC"}, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, c.Trigger, time.Second, 5*time.Millisecond)
	select {
	case snap := <-c.Snapshots():
		assert.Equal(t, 1.0, snap.Prices["BTC"])
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
	}

	m.mu.Lock()
	m.Err = errors.New("down")
	m.mu.Unlock()
	require.Eventually(t, c.Trigger, time.Second, 5*time.Millisecond)
	select {
	case err := <-c.Failures():
		assert.EqualError(t, err, "down")
	case <-time.After(time.Second):
		t.Fatal("no failure")
	}
}

func TestTrigger_DroppedWithoutWorker(t *testing.T) {
	c := NewCollector(&MockFetcher{}, "USDT", nil, time.Second, zerolog.Nop())
	assert.False(t, c.Trigger())
}

func TestReplace_KeepsNewest(t *testing.T) {
	ch := make(chan int, 1)
	replace(ch, 1)
	replace(ch, 2)
	assert.Equal(t, 2, <-ch)
}

func TestSetAssets(t *testing.T) {
	m := &MockFetcher{Prices: map[string]float64{"BTCUSDT": 1, "SOLUSDT": 2}}
	c := NewCollector(m, "USDT", []string{"BTC"}, time.Second, zerolog.Nop())
	c.SetAssets([]string{"SOL"})

	snap, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"SOL": 2}, snap.Prices)
}
