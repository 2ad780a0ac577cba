package engine

import (
	"context"

	"paper-trader/internal/logger"
	"paper-trader/internal/types"
)

const (
	reasonStopLoss   = "STOP_LOSS"
	reasonSignalSell = "SIGNAL_SELL"
)

// stopManager decides which open lots to close on a tick.
type stopManager struct {
	threshold float64 // negative fraction, e.g. -0.02
}

func newStopManager(threshold float64) *stopManager {
	return &stopManager{threshold: threshold}
}

// change is the lot's unrealized move at price.
func (sm *stopManager) change(lot types.Lot, price float64) float64 {
	return (price - lot.BuyPrice) / lot.BuyPrice
}

// checkStopLoss compares the lot's entry against the candle close, not the low.
func (sm *stopManager) checkStopLoss(ctx context.Context, asset string, lot types.Lot, price float64) bool {
	change := sm.change(lot, price)
	if change >= sm.threshold {
		return false
	}

	logger.Warn(ctx, "Stop loss triggered",
		"asset", asset,
		"event", "STOP_LOSS_TRIGGERED",
		"lot_id", lot.ID,
		"current_price", price,
		"buy_price", lot.BuyPrice,
		"change", change,
		"threshold", sm.threshold,
		"unrealized_loss", (price-lot.BuyPrice)*lot.Quantity,
	)
	return true
}

// exitReason reports whether lot closes this tick and why. The stop-loss and
// the sell signal are independent triggers; a lot closes at most once.
func (sm *stopManager) exitReason(ctx context.Context, asset string, lot types.Lot, price float64, sellSignal bool) (string, bool) {
	if sm.checkStopLoss(ctx, asset, lot, price) {
		return reasonStopLoss, true
	}
	if sellSignal {
		return reasonSignalSell, true
	}
	return "", false
}
