package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
trading:
  symbol: BTCUSDT
  base_asset: BTC
  quote_asset: USDT
  paper_trading: true
exchange:
  name: binance
  rest_url: https://api.binance.com
  ws_url: wss://stream.binance.com
strategy:
  min_spread_bps: 1
  max_spread_bps: 100
  target_spread_bps: 10
  max_position: 1.0
  default_order_size: 0.1
  min_order_size: 0.01
  max_order_size: 1.0
risk:
  max_position_qty: 1.0
  max_order_qty: 0.5
  max_order_value: 10000
  max_orders_per_second: 5
  max_open_orders: 10
  max_daily_loss: 1000
  max_drawdown: 500
system:
  log_level: info
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, validYAML)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, c.Exchange.ConnectTimeoutMs)
	assert.Equal(t, 10, c.Exchange.MaxRequestsPerSecond)
	assert.True(t, c.Risk.KillSwitchEnabled)
	assert.Equal(t, 65536, c.System.TickBufferSize)
}

func TestLoadEnvOverridesSymbol(t *testing.T) {
	path := writeTemp(t, validYAML)
	t.Setenv("TRADING_SYMBOL", "ETHUSDT")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", c.Trading.Symbol)
}

func TestLoadRejectsInvalidSpreadOrdering(t *testing.T) {
	bad := strings.Replace(validYAML, "max_spread_bps: 100", "max_spread_bps: 0", 1)
	path := writeTemp(t, bad)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
