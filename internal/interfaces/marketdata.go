package interfaces

import (
	"context"

	"paper-trader/internal/types"
)

// MarketData returns a bounded, time-ordered slice of recent candles for an
// asset. Implementations may fail; the cycle skips the asset for that tick.
type MarketData interface {
	RecentCandles(ctx context.Context, asset string, n int) ([]types.Candle, error)
}
