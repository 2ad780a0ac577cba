package engine

import (
	"context"

	"paper-trader/internal/ledger"
	"paper-trader/internal/logger"
)

// riskManager gates ledger mutations on the daily cap and available capital.
type riskManager struct {
	ledger       *ledger.Ledger
	minCashFloor float64
}

func newRiskManager(l *ledger.Ledger, minCashFloor float64) *riskManager {
	return &riskManager{ledger: l, minCashFloor: minCashFloor}
}

// allowTrade is the cap check that must precede every mutation.
func (rm *riskManager) allowTrade(ctx context.Context, asset, side string) bool {
	if rm.ledger.RemainingSlots() > 0 {
		return true
	}
	logger.Risk(ctx, asset, "TRADE_BLOCKED_DAILY_CAP",
		"side", side,
		"trade_count", rm.ledger.TradeCount(),
		"max_trades", rm.ledger.MaxTrades(),
	)
	return false
}

// sizeBuy splits the remaining cash evenly over the trades left today.
// ok is false when the buy must be skipped; nothing is mutated either way.
func (rm *riskManager) sizeBuy(ctx context.Context, asset string, price float64) (qty, investment float64, ok bool) {
	remaining := rm.ledger.RemainingSlots()
	if remaining <= 0 {
		logger.Risk(ctx, asset, "TRADE_BLOCKED_DAILY_CAP", "side", "BUY", "remaining_slots", remaining)
		return 0, 0, false
	}

	cash := rm.ledger.Cash()
	investment = cash / float64(remaining)

	if cash < rm.minCashFloor || investment > cash {
		logger.Risk(ctx, asset, "BUY_SKIPPED_INSUFFICIENT_CAPITAL",
			"cash", cash,
			"investment", investment,
			"min_cash_floor", rm.minCashFloor,
			"remaining_slots", remaining,
		)
		return 0, investment, false
	}
	if price <= 0 {
		logger.Risk(ctx, asset, "BUY_SKIPPED_INVALID_PRICE", "price", price)
		return 0, investment, false
	}

	return investment / price, investment, true
}
