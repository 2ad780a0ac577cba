package engineobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/logger"
	"paper-trader/internal/trace"
	"paper-trader/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{engine: eng}
}

func (oe *observableEngine) Step(ctx context.Context, asset string, latest types.Candle) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset), attribute.Float64("close", latest.Close))

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Starting asset step", "asset", asset, "close", latest.Close)

	result, err := oe.engine.Step(ctx, asset, latest)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Asset step failed", err,
			"asset", asset,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, err
	}

	span.SetAttributes(attribute.Int("trades", len(result.Trades)))
	logger.InfoSkip(ctx, 1, "Asset step completed",
		"asset", asset,
		"action", result.Decision.Action,
		"trend_pct", result.TrendPct,
		"trades", len(result.Trades),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
