package engine

import (
	"context"
	"fmt"
	"time"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/ledger"
	"paper-trader/internal/logger"
	"paper-trader/internal/types"
)

// orderExecutor applies simulated fills to the ledger and reports them.
type orderExecutor struct {
	ledger *ledger.Ledger
	sink   interfaces.TradeSink
	fee    float64
}

func newOrderExecutor(l *ledger.Ledger, sink interfaces.TradeSink, fee float64) *orderExecutor {
	return &orderExecutor{ledger: l, sink: sink, fee: fee}
}

// Callers have already passed the cap and sizing checks, so any ledger
// rejection here is reported as an invariant violation.

func (oe *orderExecutor) openLot(ctx context.Context, asset string, qty, price float64, reason string, now time.Time) (types.TradeRecord, error) {
	rec, err := oe.ledger.OpenLot(asset, qty, price, reason, now)
	if err != nil {
		return types.TradeRecord{}, fmt.Errorf("%w: open %s: %w", ledger.ErrInvariant, asset, err)
	}
	oe.report(ctx, rec)
	return rec, nil
}

func (oe *orderExecutor) closeLot(ctx context.Context, asset string, lot types.Lot, price float64, reason string, now time.Time) (types.TradeRecord, error) {
	rec, err := oe.ledger.CloseLot(asset, lot.ID, price, oe.fee, reason, now)
	if err != nil {
		return types.TradeRecord{}, fmt.Errorf("%w: close %s/%s: %w", ledger.ErrInvariant, asset, lot.ID, err)
	}
	oe.report(ctx, rec)
	return rec, nil
}

func (oe *orderExecutor) report(ctx context.Context, rec types.TradeRecord) {
	logger.Trade(ctx, rec,
		"cash", oe.ledger.Cash(),
		"trade_count", oe.ledger.TradeCount(),
	)
	if oe.sink != nil {
		oe.sink.RecordTrade(ctx, rec)
	}
}

func (oe *orderExecutor) recordDecision(ctx context.Context, rec types.DecisionRecord) {
	if oe.sink != nil {
		oe.sink.RecordDecision(ctx, rec)
	}
}
