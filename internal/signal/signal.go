// Package signal derives the rolling volatility and momentum figures
// that feed a quoting strategy's Signal input from a bounded history of
// mid prices.
package signal

import (
	"sync"

	talib "github.com/markcheno/go-talib"

	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/quantedge/hfmm/internal/quoting"
)

// DefaultWindow is the number of mid-price samples the calculator keeps.
const DefaultWindow = 64

// Calculator maintains a rolling window of mid prices for one symbol
// and derives a quoting.Signal from it on demand.
type Calculator struct {
	mu             sync.Mutex
	window         int
	volatilityPeriod int
	momentumPeriod int
	mids           []float64
}

// NewCalculator creates a calculator with the given sample window and
// talib period lengths for volatility (stddev) and momentum.
func NewCalculator(window, volatilityPeriod, momentumPeriod int) *Calculator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Calculator{
		window:           window,
		volatilityPeriod: volatilityPeriod,
		momentumPeriod:   momentumPeriod,
	}
}

// Observe appends a new mid price sample, evicting the oldest once the
// window is full.
func (c *Calculator) Observe(mid fixedpoint.Price) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mids = append(c.mids, fixedpoint.FromPrice(mid))
	if len(c.mids) > c.window {
		c.mids = c.mids[len(c.mids)-c.window:]
	}
}

// Compute derives a quoting.Signal from the current window. Volatility
// and momentum are zero until enough samples have accumulated for the
// configured talib periods.
func (c *Calculator) Compute(now fixedpoint.Nanos) quoting.Signal {
	c.mu.Lock()
	mids := make([]float64, len(c.mids))
	copy(mids, c.mids)
	c.mu.Unlock()

	sig := quoting.Signal{TsNs: now}
	if len(mids) == 0 {
		return sig
	}
	sig.FairValue = fixedpoint.ToPrice(mids[len(mids)-1])

	if c.volatilityPeriod > 0 && len(mids) > c.volatilityPeriod {
		stddev := talib.StdDev(mids, c.volatilityPeriod, 1)
		sig.Volatility = relativeToMid(stddev[len(stddev)-1], mids[len(mids)-1])
	}

	if c.momentumPeriod > 0 && len(mids) > c.momentumPeriod {
		mom := talib.Mom(mids, c.momentumPeriod)
		sig.Momentum = relativeToMid(mom[len(mom)-1], mids[len(mids)-1])
	}

	if sig.Volatility != 0 {
		sig.InventoryPressure = sig.Momentum
	}

	return sig
}

func relativeToMid(v, mid float64) float64 {
	if mid == 0 {
		return 0
	}
	return v / mid
}
