package engine

import (
	"context"
	"math"
	"time"

	"paper-trader/internal/types"
)

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// usableCandle rejects candles the ledger could not price from.
func usableCandle(c types.Candle) bool {
	return usablePrice(c.Open) && usablePrice(c.Close)
}

func usablePrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
