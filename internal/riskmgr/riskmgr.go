// Package riskmgr implements pre-trade risk checks, fill accounting,
// and the drawdown-triggered kill switch that gates every order the
// engine would otherwise send.
package riskmgr

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/quantedge/hfmm/internal/telemetry"
)

// Violation enumerates the risk check taxonomy, evaluated in this
// order; the first violation encountered fails the check.
type Violation int

const (
	ViolationNone Violation = iota
	ViolationKillSwitchActive
	ViolationPositionLimit
	ViolationOrderSizeLimit
	ViolationOrderValueLimit
	ViolationRateLimit
	ViolationOpenOrdersLimit
	ViolationDailyLossLimit
)

func (v Violation) String() string {
	switch v {
	case ViolationKillSwitchActive:
		return "KillSwitchActive"
	case ViolationPositionLimit:
		return "PositionLimit"
	case ViolationOrderSizeLimit:
		return "OrderSizeLimit"
	case ViolationOrderValueLimit:
		return "OrderValueLimit"
	case ViolationRateLimit:
		return "RateLimit"
	case ViolationOpenOrdersLimit:
		return "OpenOrdersLimit"
	case ViolationDailyLossLimit:
		return "DailyLossLimit"
	default:
		return "None"
	}
}

// Limits configures the risk manager's pre-trade thresholds.
type Limits struct {
	MaxPositionQty      fixedpoint.Qty
	MaxPositionValue    fixedpoint.Price
	MaxOrderQty         fixedpoint.Qty
	MaxOrderValue       fixedpoint.Price
	MaxOrdersPerSecond  int64
	MaxOpenOrders       int
	MaxDailyLoss        fixedpoint.Price
	MaxDrawdown         fixedpoint.Price
	KillSwitchEnabled   bool
}

// CheckResult is the outcome of a pre-trade check.
type CheckResult struct {
	Passed    bool
	Violation Violation
}

// Manager is the risk manager: it holds net position, open orders, the
// rate-limit counter, realised P&L, peak equity, and the kill switch.
// check_order may run concurrently with on_fill from the consumer
// thread only; the spec assigns both to the engine's single consumer,
// so the mutex here guards against any future multi-writer caller
// rather than a documented concurrent-access pattern.
type Manager struct {
	limits  Limits
	Metrics *telemetry.Metrics

	mu          sync.Mutex
	position    fixedpoint.Qty
	avgPrice    fixedpoint.Price
	openOrders  map[uint64]struct{}
	dailyPnL    fixedpoint.Price
	peakEquity  fixedpoint.Price
	markPrice   fixedpoint.Price

	killSwitch int32 // atomic

	rateSecond int64 // atomic: wall-clock second of the current window
	rateCount  int64 // atomic: orders seen in that window
}

// New creates a risk manager with the given limits.
func New(limits Limits) *Manager {
	return &Manager{
		limits:     limits,
		openOrders: make(map[uint64]struct{}),
	}
}

// IsKillSwitchActive reports the kill switch state with a relaxed
// atomic load; the flag is advisory and acted on within microseconds.
func (m *Manager) IsKillSwitchActive() bool {
	return atomic.LoadInt32(&m.killSwitch) != 0
}

// ActivateKillSwitch latches the kill switch. Idempotent, safe from any
// goroutine.
func (m *Manager) ActivateKillSwitch(reason string) {
	atomic.StoreInt32(&m.killSwitch, 1)
	if m.Metrics != nil {
		m.Metrics.KillSwitchActive.Set(1)
	}
}

// DeactivateKillSwitch clears the kill switch. This is the only reset
// path and is expected to be operator-issued.
func (m *Manager) DeactivateKillSwitch() {
	atomic.StoreInt32(&m.killSwitch, 0)
	if m.Metrics != nil {
		m.Metrics.KillSwitchActive.Set(0)
	}
}

// SetMarkPrice updates the mark price used for unrealized P&L.
func (m *Manager) SetMarkPrice(p fixedpoint.Price) {
	m.mu.Lock()
	m.markPrice = p
	m.mu.Unlock()
}

// CheckOrder runs the ordered pre-trade checks, failing on the first
// violation.
func (m *Manager) CheckOrder(side book.Side, qty fixedpoint.Qty, price fixedpoint.Price, now time.Time) (result CheckResult) {
	defer func() {
		if !result.Passed && m.Metrics != nil {
			m.Metrics.RiskViolations.WithLabelValues(result.Violation.String()).Inc()
		}
	}()

	if m.limits.KillSwitchEnabled && m.IsKillSwitchActive() {
		return CheckResult{Violation: ViolationKillSwitchActive}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	potential := m.position
	if side == book.Buy {
		potential += qty
	} else {
		potential -= qty
	}
	abs := potential
	if abs < 0 {
		abs = -abs
	}
	if m.limits.MaxPositionQty > 0 && abs > m.limits.MaxPositionQty {
		return CheckResult{Violation: ViolationPositionLimit}
	}

	if m.limits.MaxOrderQty > 0 && qty > m.limits.MaxOrderQty {
		return CheckResult{Violation: ViolationOrderSizeLimit}
	}

	orderValue := fixedpoint.Price(int64(qty) * int64(price) / fixedpoint.Scale)
	if m.limits.MaxOrderValue > 0 && orderValue > m.limits.MaxOrderValue {
		return CheckResult{Violation: ViolationOrderValueLimit}
	}

	if m.limits.MaxOrdersPerSecond > 0 {
		sec := now.Unix()
		prevSec := atomic.LoadInt64(&m.rateSecond)
		if prevSec != sec {
			if atomic.CompareAndSwapInt64(&m.rateSecond, prevSec, sec) {
				atomic.StoreInt64(&m.rateCount, 0)
			}
		}
		count := atomic.AddInt64(&m.rateCount, 1)
		if count > m.limits.MaxOrdersPerSecond {
			return CheckResult{Violation: ViolationRateLimit}
		}
	}

	if m.limits.MaxOpenOrders > 0 && len(m.openOrders) >= m.limits.MaxOpenOrders {
		return CheckResult{Violation: ViolationOpenOrdersLimit}
	}

	if m.limits.MaxDailyLoss > 0 && -m.dailyPnL >= m.limits.MaxDailyLoss {
		m.activateKillSwitchLocked()
		return CheckResult{Violation: ViolationDailyLossLimit}
	}

	return CheckResult{Passed: true}
}

func (m *Manager) activateKillSwitchLocked() {
	atomic.StoreInt32(&m.killSwitch, 1)
	if m.Metrics != nil {
		m.Metrics.KillSwitchActive.Set(1)
	}
}

// RegisterOpenOrder tracks an order as open, for the OpenOrdersLimit check.
func (m *Manager) RegisterOpenOrder(id uint64) {
	m.mu.Lock()
	m.openOrders[id] = struct{}{}
	m.mu.Unlock()
}

// CloseOrder removes an order from the open set (fill, cancel, reject, expiry).
func (m *Manager) CloseOrder(id uint64) {
	m.mu.Lock()
	delete(m.openOrders, id)
	m.mu.Unlock()
}

// OnFill updates realised P&L and the running average price using
// standard long/short accounting, then tests drawdown.
func (m *Manager) OnFill(side book.Side, filledQty fixedpoint.Qty, price fixedpoint.Price) {
	m.mu.Lock()
	defer m.mu.Unlock()

	signedFill := filledQty
	if side == book.Sell {
		signedFill = -signedFill
	}

	sameSide := (m.position >= 0 && signedFill >= 0) || (m.position <= 0 && signedFill <= 0)

	if m.position == 0 || sameSide {
		totalQty := m.position + signedFill
		if totalQty != 0 {
			m.avgPrice = fixedpoint.Price(
				(int64(m.avgPrice)*absI64(int64(m.position)) + int64(price)*absI64(int64(signedFill))) / absI64(int64(totalQty)),
			)
		}
		m.position = totalQty
	} else {
		closed := filledQty
		absPos := m.position
		if absPos < 0 {
			absPos = -absPos
		}
		if closed > absPos {
			closed = absPos
		}

		var pnl fixedpoint.Price
		wasLong := m.position > 0
		if wasLong { // long closed by sell
			pnl = fixedpoint.Price(int64(price-m.avgPrice) * int64(closed) / fixedpoint.Scale)
		} else { // short covered by buy
			pnl = fixedpoint.Price(int64(m.avgPrice-price) * int64(closed) / fixedpoint.Scale)
		}
		m.dailyPnL += pnl

		m.position += signedFill
		crossedZero := m.position != 0 && (wasLong && m.position < 0 || !wasLong && m.position > 0)
		if crossedZero {
			// residual quantity beyond what closed the prior position opens a fresh one at fill price
			m.avgPrice = price
		}
		if m.position == 0 {
			m.avgPrice = 0
		}
	}

	m.testDrawdownLocked()
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (m *Manager) unrealizedLocked() fixedpoint.Price {
	if m.position == 0 || m.markPrice == 0 {
		return 0
	}
	return fixedpoint.Price(int64(m.markPrice-m.avgPrice) * int64(m.position) / fixedpoint.Scale)
}

func (m *Manager) testDrawdownLocked() {
	equity := m.dailyPnL + m.unrealizedLocked()
	if equity > m.peakEquity {
		m.peakEquity = equity
	}
	if m.limits.MaxDrawdown > 0 && m.peakEquity-equity > m.limits.MaxDrawdown {
		m.activateKillSwitchLocked()
	}
}

// ResetDailyStats zeroes realised P&L and re-bases peak equity to the
// position's current unrealized P&L, so a position carried across the
// reset boundary doesn't register a spurious drawdown against a peak
// that no longer reflects it.
func (m *Manager) ResetDailyStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = 0
	m.peakEquity = m.unrealizedLocked()
}

// Position returns the current signed net position.
func (m *Manager) Position() fixedpoint.Qty {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// DailyPnL returns the realised P&L for the current day.
func (m *Manager) DailyPnL() fixedpoint.Price {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}
