package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerConsoleOnly(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "debug", ToConsole: true})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("test message")
}

func TestNewLoggerToFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(LoggerConfig{Level: "info", ToFile: true, Dir: dir})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewMetricsRegistersAllInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.QuoteDecisions.WithLabelValues("bid").Inc()
	m.RiskViolations.WithLabelValues("PositionLimit").Inc()
	m.ArbitrageOpportunities.Inc()
	m.QueueDrops.WithLabelValues("engine").Inc()
	m.TickToQuoteLatency.Observe(0.0001)
	m.KillSwitchActive.Set(1)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
