// Package consolidated maintains the multi-venue consolidated book and
// derives the National Best Bid and Offer (NBBO) across venues, along
// with cross-venue lock/cross detection.
package consolidated

import (
	"sync"

	"github.com/google/uuid"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// NBBO is the best-bid-and-offer aggregated across venues.
type NBBO struct {
	BestBid      fixedpoint.Price
	BestAsk      fixedpoint.Price
	BestBidQty   fixedpoint.Qty
	BestAskQty   fixedpoint.Qty
	BestBidVenue book.VenueId
	BestAskVenue book.VenueId
	TsNs         fixedpoint.Nanos
}

// Valid reports whether the NBBO reflects at least one two-sided quote.
func (n NBBO) Valid() bool {
	return n.BestBid > 0 && n.BestAsk > 0
}

// ArbitrageOpportunity describes a cross-venue lock/cross: buying at
// buy_venue and selling at sell_venue nets a profit. Construction
// enforces buy_venue != sell_venue and sell_price > buy_price.
type ArbitrageOpportunity struct {
	ID         uuid.UUID
	Symbol     book.Symbol
	BuyVenue   book.VenueId
	SellVenue  book.VenueId
	BuyPrice   fixedpoint.Price
	SellPrice  fixedpoint.Price
	Quantity   fixedpoint.Qty
	ProfitBps  float64
	TsNs       fixedpoint.Nanos
}

// venueQuote is the per-venue top-of-book the consolidated book tracks.
type venueQuote struct {
	bid, ask       fixedpoint.Price
	bidQty, askQty fixedpoint.Qty
}

// Book aggregates per-venue top-of-book quotes for a single symbol and
// caches the derived NBBO. The venue map and the NBBO cache use
// distinct locks: the venue writer lock is released before the NBBO
// writer lock is taken, so NBBO readers never observe a partially
// mutated venue map.
type Book struct {
	Symbol book.Symbol

	venuesMu sync.RWMutex
	venues   map[book.VenueId]*venueQuote

	nbboMu sync.RWMutex
	nbbo   NBBO
}

// New creates an empty consolidated book for symbol.
func New(symbol book.Symbol) *Book {
	return &Book{
		Symbol: symbol,
		venues: make(map[book.VenueId]*venueQuote),
	}
}

// Update records a venue's top-of-book and recomputes the NBBO. The
// venue-map mutation and the NBBO recompute are two separate critical
// sections: a reader can observe the NBBO before or after this call but
// never a half-updated venue map feeding a stale NBBO pairing.
func (b *Book) Update(venue book.VenueId, bid fixedpoint.Price, bidQty fixedpoint.Qty, ask fixedpoint.Price, askQty fixedpoint.Qty, now fixedpoint.Nanos) {
	b.venuesMu.Lock()
	q, exists := b.venues[venue]
	if !exists {
		q = &venueQuote{}
		b.venues[venue] = q
	}
	q.bid = bid
	q.bidQty = bidQty
	q.ask = ask
	q.askQty = askQty
	b.venuesMu.Unlock()

	b.recomputeNBBO(now)
}

func (b *Book) recomputeNBBO(now fixedpoint.Nanos) {
	b.venuesMu.RLock()
	snapshot := make(map[book.VenueId]venueQuote, len(b.venues))
	for v, q := range b.venues {
		snapshot[v] = *q
	}
	b.venuesMu.RUnlock()

	var next NBBO
	next.TsNs = now
	for v, q := range snapshot {
		if q.bid > 0 && (next.BestBid == 0 || q.bid > next.BestBid) {
			next.BestBid = q.bid
			next.BestBidQty = q.bidQty
			next.BestBidVenue = v
		}
		if q.ask > 0 && (next.BestAsk == 0 || q.ask < next.BestAsk) {
			next.BestAsk = q.ask
			next.BestAskQty = q.askQty
			next.BestAskVenue = v
		}
	}

	b.nbboMu.Lock()
	b.nbbo = next
	b.nbboMu.Unlock()
}

// NBBO returns a consistent snapshot of the cached NBBO.
func (b *Book) NBBO() NBBO {
	b.nbboMu.RLock()
	defer b.nbboMu.RUnlock()
	return b.nbbo
}

// VenueQuote returns the last-seen top-of-book for venue, if any.
func (b *Book) VenueQuote(venue book.VenueId) (bid, ask fixedpoint.Price, bidQty, askQty fixedpoint.Qty, ok bool) {
	b.venuesMu.RLock()
	defer b.venuesMu.RUnlock()
	q, exists := b.venues[venue]
	if !exists {
		return 0, 0, 0, 0, false
	}
	return q.bid, q.ask, q.bidQty, q.askQty, true
}

// FindArbitrage examines the freshly computed NBBO and returns an
// opportunity when the best bid strictly exceeds the best ask and the
// two are attributed to different venues. A locked market (best bid
// equal to best ask) is not an opportunity: it nets zero profit and
// would violate the sell_price > buy_price construction invariant.
func (b *Book) FindArbitrage() (ArbitrageOpportunity, bool) {
	n := b.NBBO()
	if n.BestBidVenue == n.BestAskVenue || n.BestBid <= n.BestAsk || !n.Valid() {
		return ArbitrageOpportunity{}, false
	}

	qty := n.BestBidQty
	if n.BestAskQty < qty {
		qty = n.BestAskQty
	}
	mid := (n.BestBid + n.BestAsk) / 2
	profitBps := fixedpoint.BpsOf(n.BestBid-n.BestAsk, mid)

	return ArbitrageOpportunity{
		ID:        uuid.New(),
		Symbol:    b.Symbol,
		BuyVenue:  n.BestAskVenue,
		SellVenue: n.BestBidVenue,
		BuyPrice:  n.BestAsk,
		SellPrice: n.BestBid,
		Quantity:  qty,
		ProfitBps: profitBps,
		TsNs:      n.TsNs,
	}, true
}
