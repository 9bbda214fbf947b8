// Package arbitrage detects and (in simulation) executes cross-venue
// lock/cross opportunities surfaced by the consolidated book.
package arbitrage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/quantedge/hfmm/internal/consolidated"
	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/quantedge/hfmm/internal/telemetry"
)

// Config bounds which opportunities the detector accepts and how it
// sizes them.
type Config struct {
	MinProfitBps  float64
	MaxSlippageBps float64
	MinQuantity   fixedpoint.Qty
	MaxQuantity   fixedpoint.Qty
	MaxAgeNs      fixedpoint.Nanos
}

// Detector filters raw NBBO lock/cross signals down to actionable
// opportunities.
type Detector struct {
	cfg   Config
	found uint64
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect calls FindArbitrage against the consolidated book and applies
// the profit floor and quantity clamp. ok is false when no opportunity
// survives.
func (d *Detector) Detect(cb *consolidated.Book) (consolidated.ArbitrageOpportunity, bool) {
	opp, ok := cb.FindArbitrage()
	if !ok {
		return consolidated.ArbitrageOpportunity{}, false
	}
	if opp.ProfitBps < d.cfg.MinProfitBps {
		return consolidated.ArbitrageOpportunity{}, false
	}

	if d.cfg.MinQuantity > 0 && opp.Quantity < d.cfg.MinQuantity {
		opp.Quantity = d.cfg.MinQuantity
	}
	if d.cfg.MaxQuantity > 0 && opp.Quantity > d.cfg.MaxQuantity {
		opp.Quantity = d.cfg.MaxQuantity
	}

	atomic.AddUint64(&d.found, 1)
	return opp, true
}

// FoundCount returns the number of opportunities accepted so far.
func (d *Detector) FoundCount() uint64 { return atomic.LoadUint64(&d.found) }

// LegResult is the outcome of dispatching one leg of an arbitrage
// execution.
type LegResult struct {
	IsBuyLeg bool
	Err      error
}

// ExecutionResult is the outcome of executing both legs of an
// opportunity. Leg failures do not roll back the other leg: per the
// specification this is accepted residual risk, not a bug, so any
// resulting one-sided inventory is left for the risk manager and
// operator to unwind.
type ExecutionResult struct {
	Opportunity    consolidated.ArbitrageOpportunity
	BuyLegErr      error
	SellLegErr     error
	SimulatedProfit fixedpoint.Price
}

// DispatchFunc sends one leg of an arbitrage order to a venue adapter;
// the executor is agnostic to how that happens.
type DispatchFunc func(opp consolidated.ArbitrageOpportunity, isBuyLeg bool) error

// Executor dispatches both legs of an arbitrage opportunity
// concurrently through a bounded worker pool, then logs the simulated
// profit. Real fill/slippage accounting belongs to the venue adapters;
// this stub only measures quantity * (sell_price - buy_price).
type Executor struct {
	pool    *ants.Pool
	logger  *zap.Logger
	dial    DispatchFunc
	Metrics *telemetry.Metrics
}

// NewExecutor creates an executor with a worker pool of the given
// concurrency, dispatching legs via dial.
func NewExecutor(poolSize int, dial DispatchFunc, logger *zap.Logger) (*Executor, error) {
	pool, err := ants.NewPool(poolSize, ants.WithExpiryDuration(10*time.Minute), ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{pool: pool, logger: logger, dial: dial}, nil
}

// Release frees the executor's worker pool.
func (e *Executor) Release() { e.pool.Release() }

// Execute dispatches the buy leg and the sell leg concurrently and
// returns once both have completed.
func (e *Executor) Execute(opp consolidated.ArbitrageOpportunity) ExecutionResult {
	var wg sync.WaitGroup
	var buyErr, sellErr error
	wg.Add(2)

	submit := func(isBuyLeg bool, errOut *error) {
		err := e.pool.Submit(func() {
			defer wg.Done()
			*errOut = e.dial(opp, isBuyLeg)
		})
		if err != nil {
			*errOut = err
			wg.Done()
		}
	}
	submit(true, &buyErr)
	submit(false, &sellErr)
	wg.Wait()

	if e.Metrics != nil {
		e.Metrics.ArbitrageOpportunities.Inc()
	}

	profit := fixedpoint.Price(int64(opp.Quantity) * int64(opp.SellPrice-opp.BuyPrice) / fixedpoint.Scale)

	e.logger.Info("arbitrage legs dispatched",
		zap.String("symbol", string(opp.Symbol)),
		zap.Uint8("buy_venue", uint8(opp.BuyVenue)),
		zap.Uint8("sell_venue", uint8(opp.SellVenue)),
		zap.Float64("buy_price", fixedpoint.FromPrice(opp.BuyPrice)),
		zap.Float64("sell_price", fixedpoint.FromPrice(opp.SellPrice)),
		zap.Float64("simulated_profit", fixedpoint.FromPrice(profit)),
		zap.Error(buyErr),
		zap.Error(sellErr),
	)

	return ExecutionResult{
		Opportunity:     opp,
		BuyLegErr:       buyErr,
		SellLegErr:      sellErr,
		SimulatedProfit: profit,
	}
}
