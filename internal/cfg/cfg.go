// Package cfg loads and validates the engine's configuration: defaults,
// then a YAML file, then environment overrides for the sensitive
// exchange credential fields and a handful of operational keys.
package cfg

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// TradingConfig holds the trading-facing keys.
type TradingConfig struct {
	Symbol        string `mapstructure:"symbol" validate:"required"`
	BaseAsset     string `mapstructure:"base_asset" validate:"required"`
	QuoteAsset    string `mapstructure:"quote_asset" validate:"required"`
	PaperTrading  bool   `mapstructure:"paper_trading"`
}

// ExchangeConfig holds the venue adapter's connection keys.
type ExchangeConfig struct {
	Name                string `mapstructure:"name" validate:"required"`
	RestURL             string `mapstructure:"rest_url" validate:"required,url"`
	WSURL               string `mapstructure:"ws_url" validate:"required"`
	APIKey              string `mapstructure:"api_key"`
	APISecret           string `mapstructure:"api_secret"`
	Passphrase          string `mapstructure:"passphrase"`
	ConnectTimeoutMs    int    `mapstructure:"connect_timeout_ms" validate:"gt=0"`
	MaxRequestsPerSecond int   `mapstructure:"max_requests_per_second" validate:"gt=0"`
}

// StrategyConfig holds the quoting strategy's tunables.
type StrategyConfig struct {
	MinSpreadBps     float64 `mapstructure:"min_spread_bps" validate:"gte=0"`
	MaxSpreadBps     float64 `mapstructure:"max_spread_bps" validate:"gtfield=MinSpreadBps"`
	TargetSpreadBps  float64 `mapstructure:"target_spread_bps" validate:"gte=0"`
	MaxPosition      float64 `mapstructure:"max_position" validate:"gt=0"`
	InventorySkew    float64 `mapstructure:"inventory_skew"`
	DefaultOrderSize float64 `mapstructure:"default_order_size" validate:"gt=0"`
	MinOrderSize     float64 `mapstructure:"min_order_size" validate:"gte=0"`
	MaxOrderSize     float64 `mapstructure:"max_order_size" validate:"gtfield=MinOrderSize"`
	QuoteRefreshUs   int64   `mapstructure:"quote_refresh_us" validate:"gt=0"`
	MinQuoteLifeUs   int64   `mapstructure:"min_quote_life_us" validate:"gte=0"`

	Gamma       float64 `mapstructure:"gamma"`
	Kappa       float64 `mapstructure:"kappa"`
	HorizonSecs float64 `mapstructure:"horizon_secs"`
}

// RiskConfig holds the risk manager's limits.
type RiskConfig struct {
	MaxPositionQty      float64 `mapstructure:"max_position_qty" validate:"gt=0"`
	MaxPositionValue    float64 `mapstructure:"max_position_value" validate:"gte=0"`
	MaxOrderQty         float64 `mapstructure:"max_order_qty" validate:"gt=0"`
	MaxOrderValue       float64 `mapstructure:"max_order_value" validate:"gt=0"`
	MaxOrdersPerSecond  int64   `mapstructure:"max_orders_per_second" validate:"gt=0"`
	MaxOpenOrders       int     `mapstructure:"max_open_orders" validate:"gt=0"`
	MaxDailyLoss        float64 `mapstructure:"max_daily_loss" validate:"gt=0"`
	MaxDrawdown         float64 `mapstructure:"max_drawdown" validate:"gt=0"`
	KillSwitchEnabled   bool    `mapstructure:"kill_switch_enabled"`
}

// SystemConfig holds logging and queue sizing.
type SystemConfig struct {
	LogLevel      string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogDir        string `mapstructure:"log_dir"`
	LogToConsole  bool   `mapstructure:"log_to_console"`
	LogToFile     bool   `mapstructure:"log_to_file"`
	TickBufferSize int   `mapstructure:"tick_buffer_size" validate:"gt=0"`
	MetricsAddr   string `mapstructure:"metrics_addr"`
}

// Config is the top-level configuration tree.
type Config struct {
	Trading  TradingConfig  `mapstructure:"trading" validate:"required"`
	Exchange ExchangeConfig `mapstructure:"exchange" validate:"required"`
	Strategy StrategyConfig `mapstructure:"strategy" validate:"required"`
	Risk     RiskConfig     `mapstructure:"risk" validate:"required"`
	System   SystemConfig   `mapstructure:"system" validate:"required"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.connect_timeout_ms", 5000)
	v.SetDefault("exchange.max_requests_per_second", 10)
	v.SetDefault("strategy.quote_refresh_us", 100000)
	v.SetDefault("strategy.min_quote_life_us", 50000)
	v.SetDefault("risk.kill_switch_enabled", true)
	v.SetDefault("system.tick_buffer_size", 65536)
	v.SetDefault("system.log_level", "info")
}

// Load reads configuration from path (YAML), layering defaults
// underneath and environment overrides on top, then validates the
// result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(&c)

	if err := validate(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("TRADING_SYMBOL"); v != "" {
		c.Trading.Symbol = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.System.LogLevel = v
	}
}

var validatorInstance = validator.New()

func validate(c *Config) error {
	return validatorInstance.Struct(c)
}
