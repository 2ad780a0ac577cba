package noop

import (
	"context"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/logger"
	"paper-trader/internal/types"
)

// NoopDecider always holds. Exits still run, so stop-losses keep working.
type NoopDecider struct{}

var _ interfaces.Decider = (*NoopDecider)(nil)

func NewNoopDecider() *NoopDecider {
	return &NoopDecider{}
}

func (d *NoopDecider) Decide(ctx context.Context, asset string, latest types.Candle, state types.MarketState) (types.Decision, error) {
	logger.Debug(ctx, "Noop decider called", "asset", asset)
	return types.Decision{Action: types.ActionHold, Reason: "noop_decider"}, nil
}
