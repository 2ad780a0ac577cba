package engine

import (
	"context"
	"fmt"
	"time"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/ledger"
	"paper-trader/internal/logger"
	"paper-trader/internal/store"
	"paper-trader/internal/types"
)

const reasonDeciderFallback = "decider_fallback"

// Engine runs one asset through decide → exit checks → entry for a tick.
type Engine struct {
	cfg     *store.Config
	ledger  *ledger.Ledger
	llm     interfaces.Decider
	history *candleHistory
	stops   *stopManager
	risk    *riskManager
	exec    *orderExecutor
	now     func() time.Time

	decisionTimeout time.Duration
}

var _ interfaces.Engine = (*Engine)(nil)

type Option func(*Engine)

// WithClock overrides the wall clock used to stamp trades.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDecisionTimeout bounds each Decide call, overriding llm.timeout_seconds.
func WithDecisionTimeout(d time.Duration) Option {
	return func(e *Engine) { e.decisionTimeout = d }
}

func New(cfg *store.Config, l *ledger.Ledger, d interfaces.Decider, sink interfaces.TradeSink, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		ledger:  l,
		llm:     d,
		history: newCandleHistory(cfg.TrendPeriods),
		stops:   newStopManager(cfg.Risk.StopLossThreshold),
		risk:    newRiskManager(l, cfg.Risk.MinCashFloor),
		exec:    newOrderExecutor(l, sink, cfg.Risk.Fee),
		now:     time.Now,

		decisionTimeout: cfg.DecisionTimeout(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Step(ctx context.Context, asset string, latest types.Candle) (*types.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.history.push(asset, latest)
	trend := e.history.trend(asset, e.cfg.TrendPeriods)
	state := types.MarketState{
		TrendPct: trend,
		Window:   e.history.window(asset),
		Lots:     e.ledger.Lots(asset),
	}
	logger.Debug(ctx, "Market state built",
		"asset", asset,
		"close", latest.Close,
		"trend_pct", trend,
		"history", e.history.len(asset),
		"open_lots", len(state.Lots),
	)

	decision := e.decide(ctx, asset, latest, state)
	logger.Decision(ctx, asset, decision, "price", latest.Close, "trend_pct", trend)
	now := e.now()
	e.exec.recordDecision(ctx, types.DecisionRecord{
		Time:     now,
		Asset:    asset,
		Decision: decision,
		Price:    latest.Close,
		TrendPct: trend,
	})

	result := &types.StepResult{
		Symbol:   asset,
		Decision: decision,
		Price:    latest.Close,
		Time:     latest.Ts,
		TrendPct: trend,
		Reason:   decision.Reason,
	}

	// Exits run every tick so stop-losses fire regardless of the decision.
	sold, err := e.exitPass(ctx, asset, latest.Close, decision.Action == types.ActionSell, now)
	result.Trades = append(result.Trades, sold...)
	if err != nil {
		return result, err
	}

	if decision.Action == types.ActionBuy {
		bought, ok, err := e.entry(ctx, asset, latest.Open, decision.Reason, now)
		if err != nil {
			return result, err
		}
		if ok {
			result.Trades = append(result.Trades, bought)
		} else {
			result.Reason += " | buy skipped"
		}
	}

	logger.Debug(ctx, "Trading step completed", "asset", asset, "action", decision.Action, "trades", len(result.Trades))
	return result, nil
}

// decide asks the decider under the configured timeout. Any failure becomes
// a HOLD so a flaky decider never stalls the cycle.
func (e *Engine) decide(ctx context.Context, asset string, latest types.Candle, state types.MarketState) types.Decision {
	dctx, cancel := context.WithTimeout(ctx, e.decisionTimeout)
	defer cancel()

	d, err := e.llm.Decide(dctx, asset, latest, state)
	if err != nil {
		logger.ErrorWithErr(ctx, "Decision failed, holding", err, "asset", asset)
		return types.Decision{Action: types.ActionHold, Reason: fmt.Sprintf("%s: %v", reasonDeciderFallback, err)}
	}
	d.Action = types.ParseAction(string(d.Action))
	return d
}

// exitPass closes every lot that hit its stop or, on a sell signal, every
// lot. The cap is checked before each close and ends the pass when reached.
func (e *Engine) exitPass(ctx context.Context, asset string, price float64, sellSignal bool, now time.Time) ([]types.TradeRecord, error) {
	var trades []types.TradeRecord
	for _, lot := range e.ledger.Lots(asset) {
		reason, ok := e.stops.exitReason(ctx, asset, lot, price, sellSignal)
		if !ok {
			continue
		}
		if !e.risk.allowTrade(ctx, asset, string(types.SideSell)) {
			break
		}
		rec, err := e.exec.closeLot(ctx, asset, lot, price, reason, now)
		if err != nil {
			return trades, err
		}
		trades = append(trades, rec)
	}
	return trades, nil
}

// entry opens one new lot at the candle open.
func (e *Engine) entry(ctx context.Context, asset string, price float64, reason string, now time.Time) (types.TradeRecord, bool, error) {
	qty, investment, ok := e.risk.sizeBuy(ctx, asset, price)
	if !ok {
		return types.TradeRecord{}, false, nil
	}
	logger.Debug(ctx, "Position sizing determined", "asset", asset, "investment", investment, "qty", qty, "price", price)

	rec, err := e.exec.openLot(ctx, asset, qty, price, reason, now)
	if err != nil {
		return types.TradeRecord{}, false, err
	}
	return rec, true, nil
}
