// Command hfmm is the high-frequency market-making and arbitrage
// engine's CLI entrypoint: it loads configuration, wires the engine
// and its ambient stack with fx, and runs until an interrupt or an
// uncaught startup error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quantedge/hfmm/internal/adapter"
	"github.com/quantedge/hfmm/internal/book"
	"github.com/quantedge/hfmm/internal/cfg"
	"github.com/quantedge/hfmm/internal/engine"
	"github.com/quantedge/hfmm/internal/fixedpoint"
	"github.com/quantedge/hfmm/internal/quoting"
	"github.com/quantedge/hfmm/internal/riskmgr"
	"github.com/quantedge/hfmm/internal/telemetry"
)

type cliFlags struct {
	configPath string
	symbol     string
	testnet    bool
	paper      bool
	verbose    bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "configs/hfmm.yaml", "path to the configuration file")
	flag.StringVar(&f.symbol, "symbol", "", "override the configured trading symbol")
	flag.BoolVar(&f.testnet, "testnet", false, "testnet mode; parsed, but the reference adapter's endpoints do not depend on it")
	flag.BoolVar(&f.paper, "paper", false, "simulate order acknowledgement instead of routing live orders")
	flag.BoolVar(&f.verbose, "verbose", false, "force debug-level logging")
	flag.Parse()
	return f
}

func newConfig(flags cliFlags) (*cfg.Config, error) {
	c, err := cfg.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.symbol != "" {
		c.Trading.Symbol = flags.symbol
	}
	if flags.paper {
		c.Trading.PaperTrading = true
	}
	if flags.verbose {
		c.System.LogLevel = "debug"
	}
	return c, nil
}

func newLogger(c *cfg.Config) (*zap.Logger, error) {
	return telemetry.NewLogger(telemetry.LoggerConfig{
		Level:     c.System.LogLevel,
		Dir:       c.System.LogDir,
		ToConsole: c.System.LogToConsole || !c.System.LogToFile,
		ToFile:    c.System.LogToFile,
	})
}

func newMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics(prometheus.DefaultRegisterer)
}

func newStrategy(c *cfg.Config) quoting.Strategy {
	params := quoting.Params{
		MinSpreadBps:     c.Strategy.MinSpreadBps,
		MaxSpreadBps:     c.Strategy.MaxSpreadBps,
		TargetSpreadBps:  c.Strategy.TargetSpreadBps,
		MaxPosition:      fixedpoint.ToQty(c.Strategy.MaxPosition),
		InventorySkew:    c.Strategy.InventorySkew,
		DefaultOrderSize: fixedpoint.ToQty(c.Strategy.DefaultOrderSize),
		MinOrderSize:     fixedpoint.ToQty(c.Strategy.MinOrderSize),
		MaxOrderSize:     fixedpoint.ToQty(c.Strategy.MaxOrderSize),
		MinQuoteLifeUs:   c.Strategy.MinQuoteLifeUs,
		Gamma:            c.Strategy.Gamma,
		Kappa:            c.Strategy.Kappa,
		HorizonSecs:      c.Strategy.HorizonSecs,
	}
	if c.Strategy.Gamma > 0 {
		return quoting.NewAvellanedaStoikov(params)
	}
	return quoting.NewBasic(params)
}

func newRiskManager(c *cfg.Config, metrics *telemetry.Metrics) *riskmgr.Manager {
	m := riskmgr.New(riskmgr.Limits{
		MaxPositionQty:     fixedpoint.ToQty(c.Risk.MaxPositionQty),
		MaxPositionValue:   fixedpoint.ToPrice(c.Risk.MaxPositionValue),
		MaxOrderQty:        fixedpoint.ToQty(c.Risk.MaxOrderQty),
		MaxOrderValue:      fixedpoint.ToPrice(c.Risk.MaxOrderValue),
		MaxOrdersPerSecond: c.Risk.MaxOrdersPerSecond,
		MaxOpenOrders:      c.Risk.MaxOpenOrders,
		MaxDailyLoss:       fixedpoint.ToPrice(c.Risk.MaxDailyLoss),
		MaxDrawdown:        fixedpoint.ToPrice(c.Risk.MaxDrawdown),
		KillSwitchEnabled:  c.Risk.KillSwitchEnabled,
	})
	m.Metrics = metrics
	return m
}

func newAdapter(c *cfg.Config, logger *zap.Logger) adapter.VenueAdapter {
	return adapter.NewPaperAdapter(adapter.PaperAdapterConfig{
		WSURL:                c.Exchange.WSURL,
		ConnectTimeout:       time.Duration(c.Exchange.ConnectTimeoutMs) * time.Millisecond,
		MaxRequestsPerSecond: c.Exchange.MaxRequestsPerSecond,
	}, logger)
}

// adapterSink turns a strategy's quote decisions into order requests
// routed through the venue adapter, one per side, each vetted by the
// risk manager first. Previously sent quotes are not cancelled or
// replaced.
type adapterSink struct {
	venue   adapter.VenueAdapter
	risk    *riskmgr.Manager
	logger  *zap.Logger
	Metrics *telemetry.Metrics
}

func (s *adapterSink) SubmitQuote(symbol book.Symbol, decision quoting.QuoteDecision) error {
	now := time.Now()
	if chk := s.risk.CheckOrder(book.Buy, decision.BidSize, decision.Bid, now); !chk.Passed {
		s.logger.Warn("bid rejected by risk manager", zap.String("violation", chk.Violation.String()))
	} else if _, err := s.venue.SendOrder(context.Background(), adapter.OrderRequest{
		Symbol: symbol, Side: book.Buy, Type: book.OrderTypeLimit,
		Price: decision.Bid, Quantity: decision.BidSize,
		ClientID: ksuid.New().String(),
	}); err != nil {
		return err
	} else if s.Metrics != nil {
		s.Metrics.QuoteDecisions.WithLabelValues("bid").Inc()
	}

	if chk := s.risk.CheckOrder(book.Sell, decision.AskSize, decision.Ask, now); !chk.Passed {
		s.logger.Warn("ask rejected by risk manager", zap.String("violation", chk.Violation.String()))
		return nil
	}
	_, err := s.venue.SendOrder(context.Background(), adapter.OrderRequest{
		Symbol: symbol, Side: book.Sell, Type: book.OrderTypeLimit,
		Price: decision.Ask, Quantity: decision.AskSize,
		ClientID: ksuid.New().String(),
	})
	if err == nil && s.Metrics != nil {
		s.Metrics.QuoteDecisions.WithLabelValues("ask").Inc()
	}
	return err
}

func newSink(a adapter.VenueAdapter, risk *riskmgr.Manager, logger *zap.Logger, metrics *telemetry.Metrics) *adapterSink {
	return &adapterSink{venue: a, risk: risk, logger: logger, Metrics: metrics}
}

func newEngine(c *cfg.Config, strategy quoting.Strategy, risk *riskmgr.Manager, sink *adapterSink, logger *zap.Logger, metrics *telemetry.Metrics) *engine.Engine {
	e := engine.New(book.Symbol(c.Trading.Symbol), strategy, risk, sink, c.System.TickBufferSize, logger)
	e.Metrics = metrics
	e.SetTradingEnabled(true)
	return e
}

func runEngine(lc fx.Lifecycle, e *engine.Engine, a adapter.VenueAdapter, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			e.Start()
			logger.Info("engine started", zap.String("symbol", string(e.Symbol)))
			return a.Connect(ctx)
		},
		OnStop: func(ctx context.Context) error {
			e.Stop()
			e.Wait()
			return a.Disconnect()
		},
	})
}

func main() {
	flags := parseFlags()

	app := fx.New(
		fx.Supply(flags),
		fx.Provide(
			newConfig,
			newLogger,
			newMetrics,
			newStrategy,
			newRiskManager,
			newAdapter,
			newSink,
			newEngine,
		),
		fx.Invoke(runEngine),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, "shutdown failed:", err)
		os.Exit(1)
	}
	os.Exit(0)
}
