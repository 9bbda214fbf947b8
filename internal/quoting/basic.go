package quoting

import (
	"sync"
	"sync/atomic"

	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// Basic is the inventory-skewed maker: spread widens with local
// volatility, quotes shift against the existing position, and sizing
// shrinks on the side that would add to it.
type Basic struct {
	mu      sync.RWMutex
	params  Params
	enabled int32

	lastBid    fixedpoint.Price
	lastAsk    fixedpoint.Price
	lastTsNs   fixedpoint.Nanos
	fillCount  uint64
	quoteCount uint64
}

// NewBasic creates a Basic maker with the given parameters, enabled by
// default.
func NewBasic(p Params) *Basic {
	b := &Basic{params: p}
	atomic.StoreInt32(&b.enabled, 1)
	return b
}

func (b *Basic) IsEnabled() bool { return atomic.LoadInt32(&b.enabled) != 0 }

func (b *Basic) SetEnabled(enabled bool) {
	var v int32
	if enabled {
		v = 1
	}
	atomic.StoreInt32(&b.enabled, v)
}

func (b *Basic) Params() Params {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params
}

func (b *Basic) UpdateParams(p Params) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.params = p
}

func (b *Basic) OnFill(orderID uint64) {
	atomic.AddUint64(&b.fillCount, 1)
}

func (b *Basic) OnCancel(orderID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastBid = 0
	b.lastAsk = 0
}

// ComputeQuotes implements the basic inventory-skewed quoting
// procedure.
func (b *Basic) ComputeQuotes(book BookView, position fixedpoint.Qty, signal Signal, now fixedpoint.Nanos) QuoteDecision {
	if !b.IsEnabled() {
		return QuoteDecision{Reason: "strategy disabled", TsNs: now}
	}
	if !book.IsValid() {
		return QuoteDecision{Reason: "book invalid", TsNs: now}
	}
	mid, ok := book.Mid()
	if !ok {
		return QuoteDecision{Reason: "no mid price", TsNs: now}
	}

	b.mu.RLock()
	p := b.params
	b.mu.RUnlock()

	fairValue := mid
	spreadBps := clamp(p.TargetSpreadBps*(1+signal.Volatility), p.MinSpreadBps, p.MaxSpreadBps)
	halfSpread := fixedpoint.Price(float64(fairValue) * spreadBps / 20000.0)

	var skew float64
	if p.MaxPosition > 0 {
		skew = float64(position) / float64(p.MaxPosition)
	}
	skewAdj := fixedpoint.Price(float64(fairValue) * skew * p.InventorySkew / 10000.0)

	bid := fairValue - halfSpread - skewAdj
	ask := fairValue + halfSpread - skewAdj
	if bid >= ask {
		return QuoteDecision{Reason: "would cross", TsNs: now}
	}

	bidSize, askSize := sizeForSkew(p, skew)

	b.mu.Lock()
	elapsedUs := int64(now-b.lastTsNs) / 1000
	if b.lastTsNs != 0 && elapsedUs < p.MinQuoteLifeUs {
		movedBps := func(a, z fixedpoint.Price) float64 {
			if mid == 0 {
				return 0
			}
			diff := a - z
			if diff < 0 {
				diff = -diff
			}
			return fixedpoint.BpsOf(diff, mid)
		}
		if movedBps(bid, b.lastBid) < 1.0 && movedBps(ask, b.lastAsk) < 1.0 {
			b.mu.Unlock()
			return QuoteDecision{Reason: "prices unchanged", TsNs: now}
		}
	}
	b.lastBid = bid
	b.lastAsk = ask
	b.lastTsNs = now
	b.quoteCount++
	b.mu.Unlock()

	return QuoteDecision{
		ShouldQuote: true,
		Bid:         bid,
		Ask:         ask,
		BidSize:     bidSize,
		AskSize:     askSize,
		TsNs:        now,
	}
}

// sizeForSkew applies the position-pressure shrink to the buy or sell
// size, clamped to [min_order_size, max_order_size].
func sizeForSkew(p Params, skew float64) (bidSize, askSize fixedpoint.Qty) {
	bidSize = p.DefaultOrderSize
	askSize = p.DefaultOrderSize

	if skew > 0 { // long: shrink the buy side
		factor := 1 - skew
		if factor < 0 {
			factor = 0
		}
		bidSize = fixedpoint.Qty(float64(p.DefaultOrderSize) * factor)
	} else if skew < 0 { // short: shrink the sell side
		factor := 1 + skew
		if factor < 0 {
			factor = 0
		}
		askSize = fixedpoint.Qty(float64(p.DefaultOrderSize) * factor)
	}

	clampQty := func(q fixedpoint.Qty) fixedpoint.Qty {
		if q < p.MinOrderSize {
			return p.MinOrderSize
		}
		if q > p.MaxOrderSize && p.MaxOrderSize > 0 {
			return p.MaxOrderSize
		}
		return q
	}
	return clampQty(bidSize), clampQty(askSize)
}
