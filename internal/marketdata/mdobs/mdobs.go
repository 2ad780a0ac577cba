package mdobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/logger"
	"paper-trader/internal/trace"
	"paper-trader/internal/types"
)

type observableMarketData struct {
	md     interfaces.MarketData
	source string
}

var _ interfaces.MarketData = (*observableMarketData)(nil)

func Wrap(md interfaces.MarketData, source string) interfaces.MarketData {
	return &observableMarketData{md: md, source: source}
}

func (o *observableMarketData) RecentCandles(ctx context.Context, asset string, n int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.RecentCandles")
	defer span.End()
	span.SetAttributes(attribute.String("source", o.source), attribute.String("asset", asset), attribute.Int("count", n))

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Fetching recent candles", "source", o.source, "asset", asset, "count", n)

	candles, err := o.md.RecentCandles(ctx, asset, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err,
			"source", o.source,
			"asset", asset,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	fields := []any{"source", o.source, "asset", asset, "count", len(candles), "duration_ms", time.Since(start).Milliseconds()}
	if len(candles) > 0 {
		fields = append(fields, "close", candles[len(candles)-1].Close)
	}
	logger.DebugSkip(ctx, 1, "Candles fetched", fields...)
	return candles, nil
}
