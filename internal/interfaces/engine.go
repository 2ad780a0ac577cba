package interfaces

import (
	"context"

	"paper-trader/internal/types"
)

type Engine interface {
	Step(ctx context.Context, asset string, latest types.Candle) (*types.StepResult, error)
}
