package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostModel_DefaultScenario(t *testing.T) {
	c := CostModel{FeeBps: 7.5, SlippageBps: 5, SpreadBufferBps: 2}
	assert.Equal(t, 14.5, c.PerTradeBps())
	assert.Equal(t, 29.0, c.RoundTripBps())
	assert.InDelta(t, 0.0029, c.RoundTripFraction(), 1e-12)
	assert.InDelta(t, 0.29, c.RoundTripPct(), 1e-12)
}

func TestCostModel_RoundTripIsTwicePerTrade(t *testing.T) {
	tests := []CostModel{
		{},
		{FeeBps: 10},
		{FeeBps: 1, SlippageBps: 2, SpreadBufferBps: 3},
		{FeeBps: 0.1, SlippageBps: 0.2, SpreadBufferBps: 0.3},
		{FeeBps: 100, SlippageBps: 50, SpreadBufferBps: 25},
	}
	for _, c := range tests {
		want := 2 * (c.FeeBps + c.SlippageBps + c.SpreadBufferBps) / 10000
		assert.Equal(t, want, c.RoundTripFraction(), "%+v", c)
	}
}

func TestApplyLeg(t *testing.T) {
	assert.InDelta(t, 9985.5, ApplyLeg(10000, 14.5), 1e-9)
	assert.Equal(t, 100.0, ApplyLeg(100, 0))
}

func TestSimpleReturn(t *testing.T) {
	r, err := SimpleReturn(110, 100)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, r, 1e-12)

	_, err = SimpleReturn(110, 0)
	assert.Error(t, err)
}

func TestWeightedSum(t *testing.T) {
	s, err := WeightedSum([]float64{0.5, 0.3, 0.2}, []float64{0.01, 0.02, 0.03})
	require.NoError(t, err)
	assert.InDelta(t, 0.017, s, 1e-12)

	_, err = WeightedSum([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestMaxDrawdown(t *testing.T) {
	dd, err := MaxDrawdown([]float64{100, 120, 90, 130, 117})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, dd, 1e-12)

	dd, err = MaxDrawdown([]float64{100, 101, 102})
	require.NoError(t, err)
	assert.Equal(t, 0.0, dd)

	_, err = MaxDrawdown(nil)
	assert.Error(t, err)
}
