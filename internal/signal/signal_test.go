package signal

import (
	"testing"

	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func px(v float64) fixedpoint.Price { return fixedpoint.ToPrice(v) }

func TestComputeWithInsufficientSamplesHasZeroVolatility(t *testing.T) {
	c := NewCalculator(32, 10, 5)
	c.Observe(px(100))
	sig := c.Compute(1)
	assert.Equal(t, px(100), sig.FairValue)
	assert.Zero(t, sig.Volatility)
	assert.Zero(t, sig.Momentum)
}

func TestComputeProducesNonZeroVolatilityAfterEnoughSamples(t *testing.T) {
	c := NewCalculator(32, 5, 3)
	prices := []float64{100, 100.5, 99.8, 100.9, 99.5, 100.2, 101.0, 100.1}
	for _, p := range prices {
		c.Observe(px(p))
	}
	sig := c.Compute(1)
	require.NotZero(t, sig.Volatility)
}

func TestWindowEvictsOldestSample(t *testing.T) {
	c := NewCalculator(3, 0, 0)
	c.Observe(px(1))
	c.Observe(px(2))
	c.Observe(px(3))
	c.Observe(px(4))
	require.Len(t, c.mids, 3)
	assert.Equal(t, []float64{2, 3, 4}, c.mids)
}
