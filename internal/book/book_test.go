package book

import (
	"testing"

	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func px(v float64) fixedpoint.Price { return fixedpoint.ToPrice(v) }
func qty(v float64) fixedpoint.Qty  { return fixedpoint.ToQty(v) }

func TestBasicQuotingScenario(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	b.UpdateBid(px(50000.00), qty(1.0), 1)
	b.UpdateAsk(px(50001.00), qty(1.0), 1)

	mid, ok := b.Mid()
	require.True(t, ok)
	assert.InDelta(t, 50000.5, fixedpoint.FromPrice(mid), 1e-6)
	assert.True(t, b.IsValid())
}

func TestZeroQuantityRemovesLevel(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	b.UpdateBid(px(100), qty(1), 1)
	_, _, ok := b.BestBid()
	require.True(t, ok)

	b.UpdateBid(px(100), qty(0), 2)
	_, _, ok = b.BestBid()
	require.False(t, ok)
}

func TestBookNeverCrossedAfterUpdates(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	updates := []struct {
		side  Side
		price float64
		qty   float64
	}{
		{Buy, 100, 1}, {Sell, 101, 1}, {Buy, 100.5, 1}, {Sell, 100.8, 1},
		{Buy, 99, 2}, {Sell, 102, 1},
	}
	for _, u := range updates {
		if u.side == Buy {
			b.UpdateBid(px(u.price), qty(u.qty), 1)
		} else {
			b.UpdateAsk(px(u.price), qty(u.qty), 1)
		}
		assert.True(t, b.IsValid(), "book crossed after update %+v", u)
	}
}

func TestVWAPAsk(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	b.UpdateAsk(px(100), qty(1), 1)
	b.UpdateAsk(px(101), qty(1), 1)
	b.UpdateAsk(px(102), qty(1), 1)

	v, ok := b.VWAPAsk(qty(2))
	require.True(t, ok)
	assert.InDelta(t, 100.5, fixedpoint.FromPrice(v), 1e-6)
}

func TestVWAPInsufficientDepth(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	b.UpdateAsk(px(100), qty(1), 1)
	_, ok := b.VWAPAsk(qty(5))
	require.False(t, ok)
}

func TestL3AddRemoveOrderConservesLevelQuantity(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	o1 := &Order{ID: 1, Side: Buy, Price: px(100), Quantity: qty(1)}
	o2 := &Order{ID: 2, Side: Buy, Price: px(100), Quantity: qty(2)}
	b.AddOrder(o1)
	b.AddOrder(o2)

	bid, bidQty, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, px(100), bid)
	assert.Equal(t, qty(3), bidQty)

	b.RemoveOrder(1)
	_, bidQty, ok = b.BestBid()
	require.True(t, ok)
	assert.Equal(t, qty(2), bidQty)

	b.RemoveOrder(2)
	_, _, ok = b.BestBid()
	require.False(t, ok, "level should be removed once last order leaves")
}

func TestImbalanceRange(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	b.UpdateBid(px(100), qty(3), 1)
	b.UpdateAsk(px(101), qty(1), 1)
	im := b.Imbalance(5)
	assert.InDelta(t, 0.5, im, 1e-9)
	assert.GreaterOrEqual(t, im, -1.0)
	assert.LessOrEqual(t, im, 1.0)
}

func TestEmptyBookIsValid(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	assert.True(t, b.IsValid())
}

func TestDepthTruncatedToMaxDepth(t *testing.T) {
	b := NewVenueBook("BTCUSDT")
	for i := 0; i < MaxDepth+20; i++ {
		b.UpdateBid(px(float64(1000-i)), qty(1), fixedpoint.Nanos(i))
	}
	bids, _ := b.Depth(MaxDepth + 20)
	assert.LessOrEqual(t, len(bids), MaxDepth)
}
