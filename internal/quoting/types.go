// Package quoting implements the quoting strategies that turn a book
// snapshot, a position, and a signal into a two-sided quote decision:
// the basic inventory-skewed maker and the Avellaneda-Stoikov optimal
// maker, both satisfying the same small capability set so the engine
// can hold either behind one interface.
package quoting

import (
	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// Signal is the market-state summary strategies condition on.
type Signal struct {
	FairValue         fixedpoint.Price
	Volatility        float64 // annualised or local, strategy-defined units
	Momentum          float64
	InventoryPressure float64
	TsNs              fixedpoint.Nanos
}

// QuoteDecision is the output of one compute_quotes invocation.
type QuoteDecision struct {
	ShouldQuote bool
	Reason      string
	Bid         fixedpoint.Price
	Ask         fixedpoint.Price
	BidSize     fixedpoint.Qty
	AskSize     fixedpoint.Qty
	TsNs        fixedpoint.Nanos
}

// Params holds the strategy parameters recognised across both makers;
// a strategy reads only the subset it needs.
type Params struct {
	MinSpreadBps     float64
	MaxSpreadBps     float64
	TargetSpreadBps  float64
	MaxPosition      fixedpoint.Qty
	InventorySkew    float64
	DefaultOrderSize fixedpoint.Qty
	MinOrderSize     fixedpoint.Qty
	MaxOrderSize     fixedpoint.Qty
	MinQuoteLifeUs   int64

	// Avellaneda-Stoikov only.
	Gamma       float64
	Kappa       float64
	HorizonSecs float64
}

// Strategy is the capability set the engine dispatches through. Basic
// and AvellanedaStoikov both satisfy it; composition, not inheritance,
// is how A-S reuses Basic's sizing.
type Strategy interface {
	ComputeQuotes(book BookView, position fixedpoint.Qty, signal Signal, now fixedpoint.Nanos) QuoteDecision
	OnFill(orderID uint64)
	OnCancel(orderID uint64)
	Params() Params
	UpdateParams(p Params)
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// BookView is the minimal read surface a quoting strategy needs from
// the per-venue order book, kept narrow so strategies don't depend on
// the full book package surface.
type BookView interface {
	Mid() (fixedpoint.Price, bool)
	IsValid() bool
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
