package consolidated

import (
	"testing"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func px(v float64) fixedpoint.Price { return fixedpoint.ToPrice(v) }
func qty(v float64) fixedpoint.Qty  { return fixedpoint.ToQty(v) }

func TestNBBOArbitrageScenario(t *testing.T) {
	b := New("BTCUSDT")
	b.Update(book.VenueBinance, px(49999), qty(1), px(50001), qty(1), 1)
	b.Update(book.VenueCoinbase, px(50002), qty(1), px(50004), qty(1), 2)

	n := b.NBBO()
	assert.Equal(t, px(50002), n.BestBid)
	assert.Equal(t, book.VenueCoinbase, n.BestBidVenue)
	assert.Equal(t, px(50001), n.BestAsk)
	assert.Equal(t, book.VenueBinance, n.BestAskVenue)

	opp, ok := b.FindArbitrage()
	require.True(t, ok)
	assert.Equal(t, book.VenueBinance, opp.BuyVenue)
	assert.Equal(t, book.VenueCoinbase, opp.SellVenue)
	assert.Equal(t, px(50001), opp.BuyPrice)
	assert.Equal(t, px(50002), opp.SellPrice)
	assert.Equal(t, qty(1), opp.Quantity)
	assert.InDelta(t, 2.0, opp.ProfitBps, 0.1)
}

func TestNoArbitrageWhenSameVenueIsBest(t *testing.T) {
	b := New("BTCUSDT")
	b.Update(book.VenueBinance, px(50000), qty(1), px(50001), qty(1), 1)
	b.Update(book.VenueCoinbase, px(49990), qty(1), px(50005), qty(1), 2)

	_, ok := b.FindArbitrage()
	assert.False(t, ok)
}

func TestNoArbitrageWhenBooksAreNotLocked(t *testing.T) {
	b := New("BTCUSDT")
	b.Update(book.VenueBinance, px(49999), qty(1), px(50001), qty(1), 1)
	b.Update(book.VenueCoinbase, px(49998), qty(1), px(50002), qty(1), 2)

	_, ok := b.FindArbitrage()
	assert.False(t, ok)
}

func TestNoArbitrageWhenMarketIsExactlyLocked(t *testing.T) {
	b := New("BTCUSDT")
	b.Update(book.VenueBinance, px(49999), qty(1), px(50000), qty(1), 1)
	b.Update(book.VenueCoinbase, px(50000), qty(1), px(50004), qty(1), 2)

	n := b.NBBO()
	require.Equal(t, n.BestBid, n.BestAsk)
	require.NotEqual(t, n.BestBidVenue, n.BestAskVenue)

	_, ok := b.FindArbitrage()
	assert.False(t, ok)
}

func TestArbitrageQuantityIsMinOfBothLegs(t *testing.T) {
	b := New("BTCUSDT")
	b.Update(book.VenueBinance, px(49999), qty(5), px(50001), qty(2), 1)
	b.Update(book.VenueCoinbase, px(50002), qty(3), px(50004), qty(1), 2)

	opp, ok := b.FindArbitrage()
	require.True(t, ok)
	assert.Equal(t, qty(2), opp.Quantity)
}

func TestVenueQuoteReturnsLastSeen(t *testing.T) {
	b := New("BTCUSDT")
	_, _, _, _, ok := b.VenueQuote(book.VenueBinance)
	assert.False(t, ok)

	b.Update(book.VenueBinance, px(100), qty(1), px(101), qty(1), 1)
	bid, ask, bidQty, askQty, ok := b.VenueQuote(book.VenueBinance)
	require.True(t, ok)
	assert.Equal(t, px(100), bid)
	assert.Equal(t, px(101), ask)
	assert.Equal(t, qty(1), bidQty)
	assert.Equal(t, qty(1), askQty)
}

func TestEmptyConsolidatedBookHasNoArbitrage(t *testing.T) {
	b := New("BTCUSDT")
	assert.False(t, b.NBBO().Valid())
	_, ok := b.FindArbitrage()
	assert.False(t, ok)
}
