package marketdata

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token bucket guarding the public OHLC endpoint, which
// throttles callers that burst past its budget.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refill     time.Duration
	lastRefill time.Time
	now        func() time.Time
}

func newRateLimiter(maxTokens int, refill time.Duration) *rateLimiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refill:     refill,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// wait blocks until a token is available or ctx ends.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if rl == nil || rl.refill <= 0 {
		return ctx.Err()
	}
	for {
		delay := rl.reserve()
		if delay == 0 {
			return nil
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reserve takes a token and returns 0, or returns how long until the next
// token is due.
func (rl *rateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if add := int(now.Sub(rl.lastRefill) / rl.refill); add > 0 {
		rl.tokens = min(rl.tokens+add, rl.maxTokens)
		rl.lastRefill = rl.lastRefill.Add(time.Duration(add) * rl.refill)
	}
	if rl.tokens > 0 {
		rl.tokens--
		return 0
	}
	return rl.refill - now.Sub(rl.lastRefill)
}
