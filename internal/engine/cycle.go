package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/ledger"
	"paper-trader/internal/logger"
	"paper-trader/internal/store"
	"paper-trader/internal/types"
)

var errNoCandles = errors.New("no candles returned")

// Cycle drives the engine over every configured asset once per tick.
type Cycle struct {
	cfg    *store.Config
	ledger *ledger.Ledger
	engine interfaces.Engine
	md     interfaces.MarketData
	sink   interfaces.TradeSink

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

type CycleOption func(*Cycle)

func WithCycleClock(now func() time.Time) CycleOption {
	return func(c *Cycle) { c.now = now }
}

// WithSleeper replaces the inter-tick wait, mostly for tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) CycleOption {
	return func(c *Cycle) { c.sleep = sleep }
}

func NewCycle(cfg *store.Config, l *ledger.Ledger, eng interfaces.Engine, md interfaces.MarketData, sink interfaces.TradeSink, opts ...CycleOption) *Cycle {
	c := &Cycle{
		cfg:    cfg,
		ledger: l,
		engine: eng,
		md:     md,
		sink:   sink,
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run ticks until ctx is cancelled or the ledger reports an invariant
// violation. Cancellation returns nil.
func (c *Cycle) Run(ctx context.Context) error {
	logger.Info(ctx, "Simulation started",
		"assets", c.cfg.Assets,
		"initial_capital", c.ledger.InitialCapital(),
		"max_trades_per_day", c.ledger.MaxTrades(),
		"tick", c.cfg.TickInterval().String(),
	)

	for {
		report, err := c.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Simulation stopped")
				return nil
			}
			return err
		}

		wait := c.cfg.TickInterval()
		if report.Skipped {
			wait = c.cfg.CooldownInterval()
		}
		if err := c.sleep(ctx, wait); err != nil {
			logger.Info(ctx, "Simulation stopped")
			return nil
		}
	}
}

type fetchResult struct {
	candle types.Candle
	err    error
}

// RunOnce executes a single tick.
func (c *Cycle) RunOnce(ctx context.Context) (*types.TickReport, error) {
	now := c.now()
	report := &types.TickReport{Time: now}

	if c.ledger.RolloverIfNewDay(now) {
		logger.Info(ctx, "New trading day, trade counter reset", "day", c.ledger.Day().Format("2006-01-02"))
	}

	if c.ledger.CapReached() {
		logger.Risk(ctx, "", "DAILY_CAP_COOLDOWN",
			"trade_count", c.ledger.TradeCount(),
			"max_trades", c.ledger.MaxTrades(),
			"cooldown_seconds", c.cfg.CooldownSecs,
		)
		report.Skipped = true
		return report, nil
	}

	results := c.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	prices := make(map[string]float64, len(c.cfg.Assets))
	for i, asset := range c.cfg.Assets {
		res := results[i]
		if res.err != nil {
			logger.Warn(ctx, "Skipping asset this tick", "asset", asset, "error", res.err)
			report.Failed = append(report.Failed, asset)
			continue
		}

		step, err := c.engine.Step(ctx, asset, res.candle)
		if err != nil {
			if errors.Is(err, ledger.ErrInvariant) {
				logger.ErrorWithErr(ctx, "Ledger invariant violated", err, "asset", asset, "ledger", c.ledger.Dump())
				return report, err
			}
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.ErrorWithErr(ctx, "Step failed", err, "asset", asset)
			report.Failed = append(report.Failed, asset)
			continue
		}
		report.Steps = append(report.Steps, step)
		prices[asset] = res.candle.Close
	}

	v := c.ledger.Mark(prices, now)
	if err := c.ledger.CheckInvariants(); err != nil {
		logger.ErrorWithErr(ctx, "Ledger invariant violated", err, "ledger", c.ledger.Dump())
		return report, err
	}

	report.Valuation = v
	report.PctChange = ledger.PctChange(c.ledger.InitialCapital(), v.Total)

	logger.Info(ctx, "Portfolio value",
		"cash", v.Cash,
		"total_value", v.Total,
		"pct_change", report.PctChange,
		"trade_count", c.ledger.TradeCount(),
		"unpriced", v.Unpriced,
	)
	if c.sink != nil {
		c.sink.RecordEquity(ctx, types.EquitySnapshot{
			Time:       now,
			Cash:       v.Cash,
			Total:      v.Total,
			PctChange:  report.PctChange,
			TradeCount: c.ledger.TradeCount(),
		})
	}
	return report, nil
}

// fetchAll pulls the latest candle for every asset concurrently. Failures are
// carried per asset; the result slice follows config order.
func (c *Cycle) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(c.cfg.Assets))

	var g errgroup.Group
	g.SetLimit(c.cfg.Fetch.Concurrency)
	for i, asset := range c.cfg.Assets {
		i, asset := i, asset
		g.Go(func() error {
			results[i] = c.fetchOne(ctx, asset)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Cycle) fetchOne(ctx context.Context, asset string) fetchResult {
	fctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout())
	defer cancel()

	candles, err := c.md.RecentCandles(fctx, asset, c.cfg.Fetch.Candles)
	if err != nil {
		return fetchResult{err: err}
	}
	if len(candles) == 0 {
		return fetchResult{err: errNoCandles}
	}
	latest := candles[len(candles)-1]
	if !usableCandle(latest) {
		return fetchResult{err: fmt.Errorf("unusable candle for %s: open=%v close=%v", asset, latest.Open, latest.Close)}
	}
	return fetchResult{candle: latest}
}
