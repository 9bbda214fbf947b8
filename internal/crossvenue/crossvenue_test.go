package crossvenue

import (
	"testing"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/consolidated"
	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func px(v float64) fixedpoint.Price { return fixedpoint.ToPrice(v) }
func qty(v float64) fixedpoint.Qty  { return fixedpoint.ToQty(v) }

func buildConsolidated() *consolidated.Book {
	cb := consolidated.New("BTCUSDT")
	cb.Update(book.VenueBinance, px(49999), qty(1), px(50001), qty(1), 1)
	cb.Update(book.VenueCoinbase, px(50002), qty(1), px(50004), qty(1), 2)
	return cb
}

func TestComputeQuotesSkipsVenueAtCap(t *testing.T) {
	cb := buildConsolidated()
	m := New(Params{
		TargetSpreadBps:     10,
		MaxPositionPerVenue: qty(1),
		DefaultOrderSize:    qty(0.1),
		QuoteVenues:         []book.VenueId{book.VenueBinance, book.VenueCoinbase},
	})
	positions := map[book.VenueId]fixedpoint.Qty{
		book.VenueBinance: qty(1), // at cap, should be skipped
	}
	quotes := m.ComputeQuotes(cb, positions)
	require.Len(t, quotes, 1)
	assert.Equal(t, book.VenueCoinbase, quotes[0].Venue)
}

func TestComputeQuotesEmptyWhenDisabled(t *testing.T) {
	cb := buildConsolidated()
	m := New(Params{QuoteVenues: []book.VenueId{book.VenueBinance}})
	m.SetEnabled(false)
	assert.Empty(t, m.ComputeQuotes(cb, nil))
}

func TestComputeHedgeFallsBackWhenNBBOLeaderIsFillVenue(t *testing.T) {
	cb := buildConsolidated()
	m := New(Params{HedgeImmediately: true, HedgeVenues: []book.VenueId{book.VenueBinance, book.VenueCoinbase}})

	hedge, ok := m.ComputeHedge(book.VenueBinance, book.Buy, qty(1), "BTCUSDT", cb)
	require.True(t, ok)
	assert.Equal(t, book.Sell, hedge.Side)
	assert.Equal(t, book.VenueCoinbase, hedge.Venue, "ask leader is binance, matches fill venue, so falls back to first other hedge venue")
}

func TestComputeHedgeDisabledReturnsFalse(t *testing.T) {
	cb := buildConsolidated()
	m := New(Params{HedgeImmediately: false})
	_, ok := m.ComputeHedge(book.VenueBinance, book.Buy, qty(1), "BTCUSDT", cb)
	assert.False(t, ok)
}
