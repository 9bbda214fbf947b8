package book

import (
	"sync"

	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// VenueBook is the L2+L3 state for one symbol on one venue: ordered
// price levels per side plus, optionally, the L3 order map used to
// derive those levels from individual order lifecycles.
//
// The L2 path (UpdateBid/UpdateAsk/ApplySnapshot) and the L3 path
// (AddOrder/RemoveOrder) are independent and can disagree if mixed on
// the same book: UpdateBid/UpdateAsk always resets a level's OrderCount
// to 1, even when L3 orders already rest at that price, because L2
// updates overwrite rather than accumulate. Callers should pick one path
// per venue, or reconcile explicitly; this mirrors a known rough edge in
// the reference implementation this book's shape is drawn from.
type VenueBook struct {
	mu     sync.RWMutex
	Symbol Symbol
	bids   *side
	asks   *side
	orders map[uint64]*Order // L3 layer, nil until first AddOrder
}

// NewVenueBook creates an empty book for symbol.
func NewVenueBook(symbol Symbol) *VenueBook {
	return &VenueBook{
		Symbol: symbol,
		bids:   newSide(true),
		asks:   newSide(false),
	}
}

func (b *VenueBook) sideFor(s Side) *side {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// UpdateBid sets or removes the bid level at price (L2 path). A zero
// quantity removes the level.
func (b *VenueBook) UpdateBid(price fixedpoint.Price, qty fixedpoint.Qty, now fixedpoint.Nanos) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids.set(PriceLevel{Price: price, Quantity: qty, OrderCount: 1, LastUpdateNs: now})
}

// UpdateAsk sets or removes the ask level at price (L2 path). A zero
// quantity removes the level.
func (b *VenueBook) UpdateAsk(price fixedpoint.Price, qty fixedpoint.Qty, now fixedpoint.Nanos) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.asks.set(PriceLevel{Price: price, Quantity: qty, OrderCount: 1, LastUpdateNs: now})
}

// ApplyTick applies a tick's top-of-book to both sides in one locked
// section, the shape the engine uses on its hot path.
func (b *VenueBook) ApplyTick(t Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := t.LocalTsNs
	if t.Bid > 0 {
		b.bids.set(PriceLevel{Price: t.Bid, Quantity: t.BidQty, OrderCount: 1, LastUpdateNs: now})
	}
	if t.Ask > 0 {
		b.asks.set(PriceLevel{Price: t.Ask, Quantity: t.AskQty, OrderCount: 1, LastUpdateNs: now})
	}
}

// ApplySnapshot atomically replaces all levels on both sides.
func (b *VenueBook) ApplySnapshot(bids, asks []PriceLevel, now fixedpoint.Nanos) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = newSide(true)
	b.asks = newSide(false)
	for _, lv := range bids {
		lv.LastUpdateNs = now
		b.bids.set(lv)
	}
	for _, lv := range asks {
		lv.LastUpdateNs = now
		b.asks.set(lv)
	}
}

// AddOrder inserts an order into the L3 layer, then creates its level or
// accumulates into the existing one.
func (b *VenueBook) AddOrder(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.orders == nil {
		b.orders = make(map[uint64]*Order)
	}
	b.orders[o.ID] = o

	s := b.sideFor(o.Side)
	if lv, exists := s.get(o.Price); exists {
		lv.Quantity += o.Remaining()
		lv.OrderCount++
		lv.LastUpdateNs = o.TimestampNs
		s.dirty = true
		return
	}
	s.set(PriceLevel{
		Price:        o.Price,
		Quantity:     o.Remaining(),
		OrderCount:   1,
		LastUpdateNs: o.TimestampNs,
	})
}

// RemoveOrder subtracts the order's remaining quantity from its level;
// the level is removed if it reaches zero quantity or zero orders.
func (b *VenueBook) RemoveOrder(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, exists := b.orders[id]
	if !exists {
		return false
	}
	delete(b.orders, id)

	s := b.sideFor(o.Side)
	lv, exists := s.get(o.Price)
	if !exists {
		return true
	}
	lv.Quantity -= o.Remaining()
	lv.OrderCount--
	if lv.Quantity <= 0 || lv.OrderCount <= 0 {
		s.remove(o.Price)
	} else {
		s.dirty = true
	}
	return true
}

// GetOrder returns the L3 order by id, if tracked.
func (b *VenueBook) GetOrder(id uint64) (*Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	return o, ok
}

// BestBid returns the best bid price/qty, or ok=false if the book has no bids.
func (b *VenueBook) BestBid() (fixedpoint.Price, fixedpoint.Qty, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lv, ok := b.bids.best()
	if !ok {
		return 0, 0, false
	}
	return lv.Price, lv.Quantity, true
}

// BestAsk returns the best ask price/qty, or ok=false if the book has no asks.
func (b *VenueBook) BestAsk() (fixedpoint.Price, fixedpoint.Qty, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lv, ok := b.asks.best()
	if !ok {
		return 0, 0, false
	}
	return lv.Price, lv.Quantity, true
}

// Mid returns (best_bid + best_ask) / 2 using integer division, or
// ok=false if either side is empty.
func (b *VenueBook) Mid() (fixedpoint.Price, bool) {
	bid, _, bidOK := b.BestBid()
	ask, _, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// Spread returns best_ask - best_bid, or ok=false if either side is empty.
func (b *VenueBook) Spread() (fixedpoint.Price, bool) {
	bid, _, bidOK := b.BestBid()
	ask, _, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return 0, false
	}
	return ask - bid, true
}

// SpreadBps returns 10000 * spread / mid, or 0 if the book is not two-sided.
func (b *VenueBook) SpreadBps() float64 {
	spread, ok := b.Spread()
	if !ok {
		return 0
	}
	mid, ok := b.Mid()
	if !ok || mid == 0 {
		return 0
	}
	return fixedpoint.BpsOf(spread, mid)
}

// IsValid reports whether the book is non-crossed: an empty book, or one
// with only one side present, is valid; a two-sided book is valid iff
// best_bid < best_ask.
func (b *VenueBook) IsValid() bool {
	bid, _, bidOK := b.BestBid()
	ask, _, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return true
	}
	return bid < ask
}

// Imbalance returns the normalised difference between bid and ask volume
// over the top n levels of each side, in [-1, 1]. It returns 0 if both
// sides are empty over that window.
func (b *VenueBook) Imbalance(n int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bidLevels := b.bids.depth(n)
	askLevels := b.asks.depth(n)
	var bidQty, askQty fixedpoint.Qty
	for _, lv := range bidLevels {
		bidQty += lv.Quantity
	}
	for _, lv := range askLevels {
		askQty += lv.Quantity
	}
	total := bidQty + askQty
	if total == 0 {
		return 0
	}
	return float64(bidQty-askQty) / float64(total)
}

// VWAPAsk walks the ask side ascending, accumulating fills until target
// quantity is satisfied, and returns the volume-weighted average price.
// ok is false if the book's ask side cannot satisfy target.
func (b *VenueBook) VWAPAsk(target fixedpoint.Qty) (fixedpoint.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return vwap(b.asks, target)
}

// VWAPBid walks the bid side descending (best price first), accumulating
// fills until target quantity is satisfied, and returns the
// volume-weighted average price. ok is false if the book's bid side
// cannot satisfy target.
func (b *VenueBook) VWAPBid(target fixedpoint.Qty) (fixedpoint.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return vwap(b.bids, target)
}

func vwap(s *side, target fixedpoint.Qty) (fixedpoint.Price, bool) {
	if target <= 0 {
		return 0, false
	}
	var sumPriceQty, sumQty int64
	satisfied := false
	s.walk(func(lv PriceLevel) bool {
		fill := lv.Quantity
		remaining := target - fixedpoint.Qty(sumQty)
		if fill > remaining {
			fill = remaining
		}
		sumPriceQty += int64(lv.Price) * int64(fill)
		sumQty += int64(fill)
		if fixedpoint.Qty(sumQty) >= target {
			satisfied = true
			return false
		}
		return true
	})
	if !satisfied || sumQty == 0 {
		return 0, false
	}
	return fixedpoint.Price(sumPriceQty / sumQty), true
}

// Depth returns up to n price levels per side, best price first.
func (b *VenueBook) Depth(n int) (bids, asks []PriceLevel) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.depth(n), b.asks.depth(n)
}

// BidDepthCount and AskDepthCount report the number of resting levels
// (not orders) currently on each side, used by invariant checks.
func (b *VenueBook) BidDepthCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.len()
}

func (b *VenueBook) AskDepthCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.len()
}
