package quoting

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// AvellanedaStoikov is the optimal-maker strategy: it derives a
// reservation price from signed inventory and time-to-horizon, and an
// optimal half-spread from risk aversion and order-arrival intensity.
// It composes a Basic maker for sizing rather than duplicating it.
type AvellanedaStoikov struct {
	mu      sync.RWMutex
	params  Params
	enabled int32
	startNs int64 // 0 until first invocation

	sizing *Basic
}

// NewAvellanedaStoikov creates an A-S maker with the given parameters,
// enabled by default.
func NewAvellanedaStoikov(p Params) *AvellanedaStoikov {
	a := &AvellanedaStoikov{params: p, sizing: NewBasic(p)}
	atomic.StoreInt32(&a.enabled, 1)
	return a
}

func (a *AvellanedaStoikov) IsEnabled() bool { return atomic.LoadInt32(&a.enabled) != 0 }

func (a *AvellanedaStoikov) SetEnabled(enabled bool) {
	var v int32
	if enabled {
		v = 1
	}
	atomic.StoreInt32(&a.enabled, v)
	a.sizing.SetEnabled(enabled)
}

func (a *AvellanedaStoikov) Params() Params {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.params
}

func (a *AvellanedaStoikov) UpdateParams(p Params) {
	a.mu.Lock()
	a.params = p
	a.mu.Unlock()
	a.sizing.UpdateParams(p)
}

func (a *AvellanedaStoikov) OnFill(orderID uint64)  { a.sizing.OnFill(orderID) }
func (a *AvellanedaStoikov) OnCancel(orderID uint64) { a.sizing.OnCancel(orderID) }

// ComputeQuotes implements the Avellaneda-Stoikov reservation-price and
// optimal-half-spread procedure. The time horizon wraps: t_e is taken
// modulo 1 (frac), not clamped to one, matching the source behaviour
// the specification preserves as an explicit open question.
func (a *AvellanedaStoikov) ComputeQuotes(book BookView, position fixedpoint.Qty, signal Signal, now fixedpoint.Nanos) QuoteDecision {
	if !a.IsEnabled() {
		return QuoteDecision{Reason: "strategy disabled", TsNs: now}
	}
	if !book.IsValid() {
		return QuoteDecision{Reason: "book invalid", TsNs: now}
	}
	mid, ok := book.Mid()
	if !ok {
		return QuoteDecision{Reason: "no mid price", TsNs: now}
	}

	a.mu.Lock()
	if a.startNs == 0 {
		a.startNs = int64(now)
	}
	start := a.startNs
	p := a.params
	a.mu.Unlock()

	gamma := p.Gamma
	sigma := signal.Volatility
	horizon := p.HorizonSecs
	if gamma <= 0 || horizon <= 0 {
		return QuoteDecision{Reason: "invalid strategy parameters", TsNs: now}
	}

	elapsedSecs := float64(int64(now)-start) / 1e9
	te := elapsedSecs / horizon
	frac := te - math.Floor(te)
	tau := 1 - frac
	if tau < 0.01 {
		tau = 0.01
	}

	q := fixedpoint.FromQty(position)
	reservation := fixedpoint.Price(float64(mid) - float64(mid)*(q*gamma*sigma*sigma*tau))

	kappa := p.Kappa
	if kappa <= 0 {
		kappa = 1
	}
	deltaBps := (gamma*sigma*sigma*tau + (2/gamma)*math.Log(1+gamma/kappa)) * 10000
	deltaBps = clamp(deltaBps, p.MinSpreadBps, p.MaxSpreadBps)

	half := fixedpoint.Price(float64(mid) * deltaBps / 20000.0)
	bid := reservation - half
	ask := reservation + half
	if bid >= ask {
		return QuoteDecision{Reason: "would cross", TsNs: now}
	}

	var skew float64
	if p.MaxPosition > 0 {
		skew = float64(position) / float64(p.MaxPosition)
	}
	bidSize, askSize := sizeForSkew(p, skew)

	return QuoteDecision{
		ShouldQuote: true,
		Bid:         bid,
		Ask:         ask,
		BidSize:     bidSize,
		AskSize:     askSize,
		TsNs:        now,
	}
}
