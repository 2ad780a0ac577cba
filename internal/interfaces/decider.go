package interfaces

import (
	"context"

	"paper-trader/internal/types"
)

type Decider interface {
	Decide(ctx context.Context, asset string, latest types.Candle, state types.MarketState) (types.Decision, error)
}
