package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's prometheus instruments.
type Metrics struct {
	QuoteDecisions      *prometheus.CounterVec
	RiskViolations       *prometheus.CounterVec
	ArbitrageOpportunities prometheus.Counter
	QueueDrops           *prometheus.CounterVec
	TickToQuoteLatency   prometheus.Histogram
	KillSwitchActive     prometheus.Gauge
}

// NewMetrics registers the engine's instruments against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QuoteDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hfmm_quote_decisions_total",
			Help: "Quote decisions by side.",
		}, []string{"side"}),
		RiskViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hfmm_risk_violations_total",
			Help: "Risk check violations by kind.",
		}, []string{"kind"}),
		ArbitrageOpportunities: factory.NewCounter(prometheus.CounterOpts{
			Name: "hfmm_arbitrage_opportunities_total",
			Help: "Arbitrage opportunities dispatched for execution.",
		}),
		QueueDrops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hfmm_queue_drops_total",
			Help: "Events dropped because a queue was full, by queue name.",
		}, []string{"queue"}),
		TickToQuoteLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hfmm_tick_to_quote_latency_seconds",
			Help:    "Latency from tick ingestion to quote decision.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		KillSwitchActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hfmm_kill_switch_active",
			Help: "1 when the risk manager's kill switch is latched, 0 otherwise.",
		}),
	}
}
