// Package book implements the per-venue L2/L3 order book: an ordered
// mapping from price to PriceLevel per side, an optional L3 layer keyed
// by order id, and the derived metrics (spread, mid, imbalance, VWAP)
// the quoting strategies read on every tick.
package book

import (
	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// VenueId enumerates recognised venues plus a reserved Unknown.
type VenueId uint8

const (
	VenueUnknown VenueId = iota
	VenueBinance
	VenueCoinbase
	VenueKraken
	VenueOKX
	VenueBybit
)

func (v VenueId) String() string {
	switch v {
	case VenueBinance:
		return "binance"
	case VenueCoinbase:
		return "coinbase"
	case VenueKraken:
		return "kraken"
	case VenueOKX:
		return "okx"
	case VenueBybit:
		return "bybit"
	default:
		return "unknown"
	}
}

// Side is the side of an order or quote.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType enumerates supported order types.
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
	OrderTypeLimitMaker
	OrderTypeIOC
	OrderTypeFOK
)

// TimeInForce enumerates supported time-in-force values.
type TimeInForce uint8

const (
	TIFGTC TimeInForce = iota // good till canceled
	TIFIOC                    // immediate or cancel
	TIFFOK                    // fill or kill
	TIFGTX                    // good till crossed / post-only
)

// OrderStatus enumerates the order lifecycle states.
type OrderStatus uint8

const (
	StatusNew OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
	StatusExpired
)

// Symbol is an opaque identifier for a trading pair.
type Symbol string

// PriceLevel is one price level of an order book side.
type PriceLevel struct {
	Price        fixedpoint.Price
	Quantity     fixedpoint.Qty
	OrderCount   int
	LastUpdateNs fixedpoint.Nanos
}

// Order is a single resting or working order, tracked at the L3 layer.
type Order struct {
	ID          uint64
	ClientID    string
	Symbol      Symbol
	Venue       VenueId
	Side        Side
	Type        OrderType
	TIF         TimeInForce
	Price       fixedpoint.Price
	Quantity    fixedpoint.Qty
	FilledQty   fixedpoint.Qty
	Status      OrderStatus
	TimestampNs fixedpoint.Nanos
}

// Remaining returns quantity - filled_qty. Invariant: 0 <= FilledQty <= Quantity.
func (o *Order) Remaining() fixedpoint.Qty {
	return o.Quantity - o.FilledQty
}

// IsActive reports whether the order can still be matched.
func (o *Order) IsActive() bool {
	return o.Status == StatusNew || o.Status == StatusPartiallyFilled
}

// Tick is a top-of-book update pushed by a venue adapter.
type Tick struct {
	Venue        VenueId
	Symbol       Symbol
	Bid          fixedpoint.Price
	Ask          fixedpoint.Price
	BidQty       fixedpoint.Qty
	AskQty       fixedpoint.Qty
	LastPrice    fixedpoint.Price
	LastQty      fixedpoint.Qty
	ExchangeTsNs fixedpoint.Nanos
	LocalTsNs    fixedpoint.Nanos
	Sequence     uint64
}

// Trade is a completed execution against one of the engine's own orders.
type Trade struct {
	OrderID  uint64
	TradeID  uint64
	Symbol   Symbol
	Side     Side
	Price    fixedpoint.Price
	Quantity fixedpoint.Qty
	TsNs     fixedpoint.Nanos
	IsMaker  bool
}

// Quote is a top-of-book snapshot attributed to a venue.
type Quote struct {
	Venue  VenueId
	Symbol Symbol
	Bid    fixedpoint.Price
	Ask    fixedpoint.Price
	BidQty fixedpoint.Qty
	AskQty fixedpoint.Qty
	TsNs   fixedpoint.Nanos
}

// MaxDepth bounds the materialised depth views returned by depth-aware
// queries; the backing structure may hold more levels and is truncated
// on read.
const MaxDepth = 100
