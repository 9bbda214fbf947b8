// Package adapter defines the venue adapter contract the engine
// depends on and a reference/paper implementation exercising it over a
// WebSocket feed, guarded by a circuit breaker and a REST rate limiter.
package adapter

import (
	"context"
	"errors"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// ConnectionError kinds surfaced through OnError.
var (
	ErrConnectionFailed     = errors.New("connection failed")
	ErrNotConnected         = errors.New("not connected")
	ErrTimeout              = errors.New("timeout")
	ErrWebSocketError       = errors.New("websocket error")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Request-level errors surfaced by send_order/cancel_order.
var (
	ErrRequestFailed     = errors.New("request failed")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrOrderRejected     = errors.New("order rejected")
	ErrParseError        = errors.New("parse error")
)

// OrderRequest is the venue-agnostic order placement request.
type OrderRequest struct {
	Symbol   book.Symbol
	Side     book.Side
	Type     book.OrderType
	TIF      book.TimeInForce
	Price    fixedpoint.Price
	Quantity fixedpoint.Qty
	ClientID string
}

// OrderResponse is the venue's acknowledgement of an OrderRequest.
type OrderResponse struct {
	OrderID uint64
	Status  book.OrderStatus
}

// CancelResponse is the venue's acknowledgement of a cancel_order call.
type CancelResponse struct {
	OrderID   uint64
	Cancelled bool
}

// Callbacks is the set of callbacks the engine registers with an
// adapter; the adapter invokes these as events arrive from the venue.
type Callbacks struct {
	OnTick         func(book.Tick)
	OnOrderUpdate  func(*book.Order)
	OnTrade        func(book.Trade)
	OnConnected    func()
	OnDisconnected func()
	OnError        func(error)
}

// VenueAdapter is the contract the engine consumes; a production
// adapter owns the wire protocol, HMAC signing, and REST/WebSocket
// transport, all external to the core per the specification.
type VenueAdapter interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	Subscribe(symbol book.Symbol) error
	SubscribeOrderBook(symbol book.Symbol, depth int) error
	SubscribeTrades(symbol book.Symbol) error

	SendOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	CancelOrder(ctx context.Context, symbol book.Symbol, id uint64) (CancelResponse, error)
	CancelAllOrders(ctx context.Context, symbol book.Symbol) error

	GetBalance(ctx context.Context, asset string) (fixedpoint.Qty, error)
	GetOpenOrders(ctx context.Context, symbol book.Symbol) ([]*book.Order, error)
	ServerTime(ctx context.Context) (fixedpoint.Nanos, error)

	SetCallbacks(cb Callbacks)
}
