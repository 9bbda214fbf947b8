package arbitrage

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/consolidated"
	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/quantedge/hfmm/internal/telemetry"
)

func px(v float64) fixedpoint.Price { return fixedpoint.ToPrice(v) }
func qty(v float64) fixedpoint.Qty  { return fixedpoint.ToQty(v) }

func lockedBook() *consolidated.Book {
	cb := consolidated.New("BTCUSDT")
	cb.Update(book.VenueBinance, px(49999), qty(1), px(50001), qty(1), 1)
	cb.Update(book.VenueCoinbase, px(50002), qty(1), px(50004), qty(1), 2)
	return cb
}

func TestDetectRejectsBelowMinProfit(t *testing.T) {
	d := NewDetector(Config{MinProfitBps: 5.0})
	_, ok := d.Detect(lockedBook())
	assert.False(t, ok)
}

func TestDetectAcceptsAboveMinProfit(t *testing.T) {
	d := NewDetector(Config{MinProfitBps: 1.0, MinQuantity: qty(0.01), MaxQuantity: qty(10)})
	opp, ok := d.Detect(lockedBook())
	require.True(t, ok)
	assert.InDelta(t, 2.0, opp.ProfitBps, 0.1)
	assert.EqualValues(t, 1, d.FoundCount())
}

func TestDetectClampsQuantity(t *testing.T) {
	d := NewDetector(Config{MinProfitBps: 1.0, MaxQuantity: qty(0.5)})
	opp, ok := d.Detect(lockedBook())
	require.True(t, ok)
	assert.Equal(t, qty(0.5), opp.Quantity)
}

func TestExecutorDispatchesBothLegsConcurrently(t *testing.T) {
	var calls int32
	dial := func(opp consolidated.ArbitrageOpportunity, isBuyLeg bool) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	exec, err := NewExecutor(4, dial, zap.NewNop())
	require.NoError(t, err)
	defer exec.Release()

	cb := lockedBook()
	opp, ok := cb.FindArbitrage()
	require.True(t, ok)

	result := exec.Execute(opp)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.NoError(t, result.BuyLegErr)
	assert.NoError(t, result.SellLegErr)
	assert.Greater(t, fixedpoint.FromPrice(result.SimulatedProfit), 0.0)
}

func TestExecutorLegFailureDoesNotRollBackOtherLeg(t *testing.T) {
	dial := func(opp consolidated.ArbitrageOpportunity, isBuyLeg bool) error {
		if isBuyLeg {
			return errors.New("buy leg rejected")
		}
		return nil
	}
	exec, err := NewExecutor(4, dial, zap.NewNop())
	require.NoError(t, err)
	defer exec.Release()

	cb := lockedBook()
	opp, ok := cb.FindArbitrage()
	require.True(t, ok)

	result := exec.Execute(opp)
	assert.Error(t, result.BuyLegErr)
	assert.NoError(t, result.SellLegErr, "sell leg is not rolled back when the buy leg fails")
}

func TestExecutorIncrementsArbitrageOpportunitiesMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	dial := func(opp consolidated.ArbitrageOpportunity, isBuyLeg bool) error { return nil }
	exec, err := NewExecutor(4, dial, zap.NewNop())
	require.NoError(t, err)
	defer exec.Release()
	exec.Metrics = metrics

	cb := lockedBook()
	opp, ok := cb.FindArbitrage()
	require.True(t, ok)

	exec.Execute(opp)

	var m dto.Metric
	require.NoError(t, metrics.ArbitrageOpportunities.Write(&m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
}
