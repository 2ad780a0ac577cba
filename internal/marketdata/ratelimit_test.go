package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Second)
	rl.lastRefill = now
	rl.now = func() time.Time { return now }

	assert.Zero(t, rl.reserve())
	assert.Zero(t, rl.reserve())
	assert.Equal(t, time.Second, rl.reserve())

	now = now.Add(400 * time.Millisecond)
	assert.Equal(t, 600*time.Millisecond, rl.reserve())

	now = now.Add(5 * time.Second)
	assert.Zero(t, rl.reserve())
	assert.Zero(t, rl.reserve())
	assert.NotZero(t, rl.reserve(), "refill is capped at the burst size")
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {
	rl := newRateLimiter(1, time.Hour)
	require.NoError(t, rl.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiterDisabled(t *testing.T) {
	var rl *rateLimiter
	assert.NoError(t, rl.wait(context.Background()))
}
