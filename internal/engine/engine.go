// Package engine wires the per-symbol order book, quoting strategy,
// and risk manager together behind a single-consumer event loop that
// drains a bounded SPSC queue fed by venue adapters.
package engine

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/quantedge/hfmm/internal/queue"
	"github.com/quantedge/hfmm/internal/quoting"
	"github.com/quantedge/hfmm/internal/riskmgr"
	"github.com/quantedge/hfmm/internal/signal"
	"github.com/quantedge/hfmm/internal/telemetry"
)

// EventKind discriminates the engine's event union.
type EventKind uint8

const (
	EventTick EventKind = iota
	EventOrderUpdate
	EventTrade
	EventShutdown
)

// Event is the tagged union the engine queue carries. Only the field
// matching Kind is populated.
type Event struct {
	Kind  EventKind
	Tick  book.Tick
	Order *book.Order
	Trade book.Trade
}

// pollInterval is the cooperative micro-sleep applied when the queue is empty.
const pollInterval = 10 * time.Microsecond

// QuoteSink receives quote decisions the engine would otherwise hand to
// an adapter for order placement; the engine tests' recording sink and
// cmd/hfmm's adapter-backed sink both implement it.
type QuoteSink interface {
	SubmitQuote(symbol book.Symbol, decision quoting.QuoteDecision) error
}

// Engine owns one symbol's book, strategy, risk manager, and event
// queue, and runs the single consumer loop that wires ticks through to
// quote decisions.
type Engine struct {
	Symbol   book.Symbol
	Book     *book.VenueBook
	Strategy quoting.Strategy
	Risk     *riskmgr.Manager
	Signals  *signal.Calculator
	Sink     QuoteSink
	Metrics  *telemetry.Metrics
	logger   *zap.Logger

	queue *queue.SPSC[Event]

	orderIDCounter fixedpoint.MonotonicCounter
	running        int32
	tradingEnabled int32
	tradeCount     uint64
	dropCount      uint64

	done chan struct{}
}

// New creates an engine for symbol with the given queue capacity.
func New(symbol book.Symbol, strategy quoting.Strategy, risk *riskmgr.Manager, sink QuoteSink, queueCapacity int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Symbol:   symbol,
		Book:     book.NewVenueBook(symbol),
		Strategy: strategy,
		Risk:     risk,
		Signals:  signal.NewCalculator(signal.DefaultWindow, 20, 10),
		Sink:     sink,
		logger:   logger,
		queue:    queue.NewSPSC[Event](queueCapacity),
		done:     make(chan struct{}),
	}
}

// IsRunning reports whether the consumer loop is active.
func (e *Engine) IsRunning() bool { return atomic.LoadInt32(&e.running) != 0 }

// IsTradingEnabled reports whether quote computation is active.
func (e *Engine) IsTradingEnabled() bool { return atomic.LoadInt32(&e.tradingEnabled) != 0 }

// SetTradingEnabled toggles quote computation independently of the
// running state.
func (e *Engine) SetTradingEnabled(enabled bool) {
	var v int32
	if enabled {
		v = 1
	}
	atomic.StoreInt32(&e.tradingEnabled, v)
}

// Push enqueues an event for the consumer; it returns false and bumps
// the drop counter when the queue is full.
func (e *Engine) Push(ev Event) bool {
	if e.queue.TryPush(ev) {
		return true
	}
	atomic.AddUint64(&e.dropCount, 1)
	if e.Metrics != nil {
		e.Metrics.QueueDrops.WithLabelValues("engine").Inc()
	}
	return false
}

// DropCount returns the number of events dropped due to a full queue.
func (e *Engine) DropCount() uint64 { return atomic.LoadUint64(&e.dropCount) }

// TradeCount returns the number of Trade events processed.
func (e *Engine) TradeCount() uint64 { return atomic.LoadUint64(&e.tradeCount) }

// NextOrderID returns the next monotonic order id for this engine.
func (e *Engine) NextOrderID() uint64 { return e.orderIDCounter.Next() }

// Start spawns the consumer goroutine if not already running. Calling
// Start on an already-running engine is a no-op.
func (e *Engine) Start() {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		return
	}
	e.done = make(chan struct{})
	go e.run()
}

// Stop disables trading, enqueues a Shutdown event, and clears running.
// The consumer exits cooperatively within one queue cycle.
func (e *Engine) Stop() {
	e.SetTradingEnabled(false)
	e.Push(Event{Kind: EventShutdown})
	atomic.StoreInt32(&e.running, 0)
}

// Wait blocks until the consumer goroutine has exited after Stop.
func (e *Engine) Wait() { <-e.done }

func (e *Engine) run() {
	defer close(e.done)
	for atomic.LoadInt32(&e.running) != 0 {
		ev, ok := e.queue.TryPop()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		switch ev.Kind {
		case EventTick:
			e.handleTick(ev.Tick)
		case EventOrderUpdate:
			e.handleOrderUpdate(ev.Order)
		case EventTrade:
			e.handleTrade(ev.Trade)
		case EventShutdown:
			atomic.StoreInt32(&e.running, 0)
			return
		}
	}
}

func (e *Engine) handleTick(t book.Tick) {
	e.Book.ApplyTick(t)

	mid, ok := e.Book.Mid()
	if ok {
		e.Risk.SetMarkPrice(mid)
		e.Signals.Observe(mid)
	}

	if !e.IsTradingEnabled() || e.Strategy == nil {
		return
	}

	sig := e.Signals.Compute(t.LocalTsNs)
	decision := e.Strategy.ComputeQuotes(e.Book, e.Risk.Position(), sig, t.LocalTsNs)
	if !decision.ShouldQuote {
		return
	}
	if e.Sink != nil {
		if err := e.Sink.SubmitQuote(e.Symbol, decision); err != nil {
			e.logger.Warn("quote submission failed",
				zap.String("symbol", string(e.Symbol)),
				zap.Error(err))
		}
	}
}

func (e *Engine) handleOrderUpdate(o *book.Order) {
	if o == nil || e.Strategy == nil {
		return
	}
	switch o.Status {
	case book.StatusFilled, book.StatusPartiallyFilled:
		e.Strategy.OnFill(o.ID)
	case book.StatusCanceled, book.StatusRejected, book.StatusExpired:
		e.Strategy.OnCancel(o.ID)
	}
}

func (e *Engine) handleTrade(tr book.Trade) {
	atomic.AddUint64(&e.tradeCount, 1)
	e.Risk.OnFill(tr.Side, tr.Quantity, tr.Price)
	if e.Strategy != nil {
		e.Strategy.OnFill(tr.OrderID)
	}
}
