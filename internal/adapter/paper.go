package adapter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// PaperAdapterConfig configures the reference/paper adapter.
type PaperAdapterConfig struct {
	WSURL                string
	ConnectTimeout       time.Duration
	MaxRequestsPerSecond int
}

// PaperAdapter is a reference VenueAdapter: it connects to a venue's
// WebSocket endpoint and reads its messages, but discards them without
// parsing or dispatching ticks, and it simulates order acknowledgement
// locally rather than routing to a real matching engine. SendOrder goes
// through a REST rate limiter and a circuit breaker; CancelOrder goes
// through the rate limiter only.
type PaperAdapter struct {
	cfg    PaperAdapterConfig
	logger *zap.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected int32

	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker

	cb Callbacks

	orderIDs   uint64
	openOrders map[uint64]*book.Order
	ordersMu   sync.Mutex

	readDone chan struct{}
}

// NewPaperAdapter creates a paper adapter. Dial is deferred to Connect.
func NewPaperAdapter(cfg PaperAdapterConfig, logger *zap.Logger) *PaperAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRequestsPerSecond <= 0 {
		cfg.MaxRequestsPerSecond = 10
	}
	a := &PaperAdapter{
		cfg:        cfg,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), cfg.MaxRequestsPerSecond),
		openOrders: make(map[uint64]*book.Order),
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "paper-adapter",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("adapter circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return a
}

func (a *PaperAdapter) SetCallbacks(cb Callbacks) { a.cb = cb }

// Connect dials the venue's WebSocket endpoint within ConnectTimeout
// and starts the read pump.
func (a *PaperAdapter) Connect(ctx context.Context) error {
	timeout := a.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, a.cfg.WSURL, nil)
	if err != nil {
		if a.cb.OnError != nil {
			a.cb.OnError(fmt.Errorf("%w: %v", ErrConnectionFailed, err))
		}
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	a.connMu.Lock()
	a.conn = conn
	a.connMu.Unlock()
	atomic.StoreInt32(&a.connected, 1)
	a.readDone = make(chan struct{})

	if a.cb.OnConnected != nil {
		a.cb.OnConnected()
	}
	go a.readPump()
	return nil
}

func (a *PaperAdapter) readPump() {
	defer close(a.readDone)
	for {
		a.connMu.Lock()
		conn := a.conn
		a.connMu.Unlock()
		if conn == nil {
			return
		}
		_, _, err := conn.ReadMessage()
		if err != nil {
			atomic.StoreInt32(&a.connected, 0)
			if a.cb.OnDisconnected != nil {
				a.cb.OnDisconnected()
			}
			if a.cb.OnError != nil {
				a.cb.OnError(fmt.Errorf("%w: %v", ErrWebSocketError, err))
			}
			return
		}
		// Wire parsing (decimal-string prices, millisecond timestamps) is
		// venue-specific and lives in a real adapter; the paper adapter
		// only proves out the connection lifecycle and dispatch path.
	}
}

func (a *PaperAdapter) Disconnect() error {
	a.connMu.Lock()
	conn := a.conn
	a.conn = nil
	a.connMu.Unlock()
	atomic.StoreInt32(&a.connected, 0)
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (a *PaperAdapter) IsConnected() bool { return atomic.LoadInt32(&a.connected) != 0 }

func (a *PaperAdapter) Subscribe(symbol book.Symbol) error {
	if !a.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (a *PaperAdapter) SubscribeOrderBook(symbol book.Symbol, depth int) error {
	return a.Subscribe(symbol)
}

func (a *PaperAdapter) SubscribeTrades(symbol book.Symbol) error {
	return a.Subscribe(symbol)
}

// SendOrder simulates immediate acknowledgement: it does not match
// against a real book, it tracks the order as open and reports New.
func (a *PaperAdapter) SendOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return OrderResponse{}, fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		id := atomic.AddUint64(&a.orderIDs, 1)
		o := &book.Order{
			ID:       id,
			ClientID: req.ClientID,
			Symbol:   req.Symbol,
			Side:     req.Side,
			Type:     req.Type,
			TIF:      req.TIF,
			Price:    req.Price,
			Quantity: req.Quantity,
			Status:   book.StatusNew,
		}
		a.ordersMu.Lock()
		a.openOrders[id] = o
		a.ordersMu.Unlock()
		return OrderResponse{OrderID: id, Status: book.StatusNew}, nil
	})
	if err != nil {
		return OrderResponse{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return result.(OrderResponse), nil
}

func (a *PaperAdapter) CancelOrder(ctx context.Context, symbol book.Symbol, id uint64) (CancelResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return CancelResponse{}, fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
	}
	a.ordersMu.Lock()
	_, existed := a.openOrders[id]
	delete(a.openOrders, id)
	a.ordersMu.Unlock()
	return CancelResponse{OrderID: id, Cancelled: existed}, nil
}

func (a *PaperAdapter) CancelAllOrders(ctx context.Context, symbol book.Symbol) error {
	a.ordersMu.Lock()
	for id, o := range a.openOrders {
		if o.Symbol == symbol {
			delete(a.openOrders, id)
		}
	}
	a.ordersMu.Unlock()
	return nil
}

func (a *PaperAdapter) GetBalance(ctx context.Context, asset string) (fixedpoint.Qty, error) {
	return 0, nil
}

func (a *PaperAdapter) GetOpenOrders(ctx context.Context, symbol book.Symbol) ([]*book.Order, error) {
	a.ordersMu.Lock()
	defer a.ordersMu.Unlock()
	out := make([]*book.Order, 0, len(a.openOrders))
	for _, o := range a.openOrders {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out, nil
}

func (a *PaperAdapter) ServerTime(ctx context.Context) (fixedpoint.Nanos, error) {
	return fixedpoint.NowNanos(), nil
}
