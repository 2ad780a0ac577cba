package llmobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/logger"
	"paper-trader/internal/trace"
	"paper-trader/internal/types"
)

type observableDecider struct {
	decider  interfaces.Decider
	provider string
}

var _ interfaces.Decider = (*observableDecider)(nil)

// Wrap adds a span and request/response logs around a decider.
func Wrap(decider interfaces.Decider, provider string) interfaces.Decider {
	return &observableDecider{decider: decider, provider: provider}
}

func (od *observableDecider) Decide(ctx context.Context, asset string, latest types.Candle, state types.MarketState) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Decide")
	defer span.End()
	span.SetAttributes(attribute.String("provider", od.provider), attribute.String("asset", asset))

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Requesting trading decision",
		"provider", od.provider,
		"asset", asset,
		"close", latest.Close,
		"trend_pct", state.TrendPct,
		"open_lots", len(state.Lots),
	)

	decision, err := od.decider.Decide(ctx, asset, latest, state)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get trading decision", err,
			"provider", od.provider,
			"asset", asset,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.Decision{}, err
	}

	span.SetAttributes(attribute.String("action", string(decision.Action)))
	logger.DebugSkip(ctx, 1, "Trading decision received",
		"provider", od.provider,
		"asset", asset,
		"action", decision.Action,
		"confidence", decision.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return decision, nil
}
