// Package crossvenue implements the cross-venue market maker: it quotes
// the same symbol on several venues around the consolidated NBBO and
// dispatches an immediate hedge on fill.
package crossvenue

import (
	"sync"
	"sync/atomic"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/consolidated"
	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// VenueQuote is one venue's leg of a cross-venue quoting round.
type VenueQuote struct {
	Venue   book.VenueId
	Bid     fixedpoint.Price
	Ask     fixedpoint.Price
	BidSize fixedpoint.Qty
	AskSize fixedpoint.Qty
}

// HedgeOrder is the order the maker dispatches to flatten a fill.
type HedgeOrder struct {
	Symbol   book.Symbol
	Venue    book.VenueId
	Side     book.Side
	Price    fixedpoint.Price
	Quantity fixedpoint.Qty
	Status   book.OrderStatus
}

// Params configures the cross-venue maker.
type Params struct {
	TargetSpreadBps      float64
	MaxPositionPerVenue  fixedpoint.Qty
	MaxTotalPosition     fixedpoint.Qty
	DefaultOrderSize     fixedpoint.Qty
	HedgeImmediately     bool
	QuoteVenues          []book.VenueId
	HedgeVenues          []book.VenueId
}

// Maker is the cross-venue market maker.
type Maker struct {
	mu      sync.RWMutex
	params  Params
	enabled int32
}

// New creates a cross-venue maker, enabled by default.
func New(p Params) *Maker {
	m := &Maker{params: p}
	atomic.StoreInt32(&m.enabled, 1)
	return m
}

func (m *Maker) IsEnabled() bool { return atomic.LoadInt32(&m.enabled) != 0 }

func (m *Maker) SetEnabled(enabled bool) {
	var v int32
	if enabled {
		v = 1
	}
	atomic.StoreInt32(&m.enabled, v)
}

func (m *Maker) Params() Params {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params
}

func (m *Maker) UpdateParams(p Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p
}

// ComputeQuotes emits one VenueQuote per configured quote venue whose
// existing position has not reached its per-venue cap, skewed against
// that venue's position.
func (m *Maker) ComputeQuotes(cb *consolidated.Book, positionByVenue map[book.VenueId]fixedpoint.Qty) []VenueQuote {
	if !m.IsEnabled() {
		return nil
	}
	nbbo := cb.NBBO()
	if !nbbo.Valid() {
		return nil
	}

	p := m.Params()
	fair := (nbbo.BestBid + nbbo.BestAsk) / 2
	half := fixedpoint.Price(float64(fair) * p.TargetSpreadBps / 20000.0)

	var out []VenueQuote
	for _, v := range p.QuoteVenues {
		pos := positionByVenue[v]
		absPos := pos
		if absPos < 0 {
			absPos = -absPos
		}
		if p.MaxPositionPerVenue > 0 && absPos >= p.MaxPositionPerVenue {
			continue
		}

		var skew float64
		if p.MaxPositionPerVenue > 0 {
			skew = float64(pos) / float64(p.MaxPositionPerVenue)
		}
		skewAdj := fixedpoint.Price(float64(fair) * skew * 0.5 / 10000.0)

		out = append(out, VenueQuote{
			Venue:   v,
			Bid:     fair - half - skewAdj,
			Ask:     fair + half - skewAdj,
			BidSize: p.DefaultOrderSize,
			AskSize: p.DefaultOrderSize,
		})
	}
	return out
}

// ComputeHedge returns the hedge order for a fill, or ok=false when
// hedging is disabled for this maker.
func (m *Maker) ComputeHedge(fillVenue book.VenueId, fillSide book.Side, fillQty fixedpoint.Qty, symbol book.Symbol, cb *consolidated.Book) (HedgeOrder, bool) {
	p := m.Params()
	if !p.HedgeImmediately {
		return HedgeOrder{}, false
	}

	hedgeSide := fillSide.Opposite()
	nbbo := cb.NBBO()

	var target book.VenueId
	var price fixedpoint.Price
	leader := nbbo.BestBidVenue
	if hedgeSide == book.Sell {
		leader = nbbo.BestAskVenue
	}
	if leader != fillVenue && leader != book.VenueUnknown {
		target = leader
	} else {
		for _, v := range p.HedgeVenues {
			if v != fillVenue {
				target = v
				break
			}
		}
	}
	if target == book.VenueUnknown {
		return HedgeOrder{}, false
	}

	if hedgeSide == book.Sell {
		price = nbbo.BestAsk
	} else {
		price = nbbo.BestBid
	}

	return HedgeOrder{
		Symbol:   symbol,
		Venue:    target,
		Side:     hedgeSide,
		Price:    price,
		Quantity: fillQty,
		Status:   book.StatusNew,
	}, true
}
