package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/types"
)

// Static is a seeded random walk for dry runs. The same seed and call
// sequence always yields the same candles.
type Static struct {
	mu       sync.Mutex
	rng      *rand.Rand
	start    float64
	stepPct  float64
	interval time.Duration
	clock    func() time.Time
	last     map[string]types.Candle
}

var _ interfaces.MarketData = (*Static)(nil)

type StaticOption func(*Static)

func WithStartPrice(p float64) StaticOption { return func(s *Static) { s.start = p } }

// WithStepPct bounds the per-candle move, e.g. 0.01 for ±1%.
func WithStepPct(p float64) StaticOption { return func(s *Static) { s.stepPct = p } }

func WithStaticClock(now func() time.Time) StaticOption { return func(s *Static) { s.clock = now } }

func NewStatic(seed int64, interval time.Duration, opts ...StaticOption) *Static {
	s := &Static{
		rng:      rand.New(rand.NewSource(seed)),
		start:    100,
		stepPct:  0.01,
		interval: interval,
		clock:    time.Now,
		last:     make(map[string]types.Candle),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RecentCandles advances the asset's walk by one candle and returns the
// trailing n, oldest first. Earlier candles are regenerated backwards from
// the newest so every call is self-consistent.
func (s *Static) RecentCandles(ctx context.Context, asset string, n int) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 1 {
		n = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.last[asset]
	open := s.start
	if ok {
		open = prev.Close
	}
	next := s.candle(s.clock().Unix(), open)
	s.last[asset] = next

	out := make([]types.Candle, n)
	out[n-1] = next
	for i := n - 2; i >= 0; i-- {
		c := s.candle(out[i+1].Ts-int64(s.interval/time.Second), out[i+1].Open)
		// Walk backwards: this candle closes where the next one opens.
		c.Open, c.Close = c.Close, c.Open
		out[i] = c
	}
	return out, nil
}

func (s *Static) candle(ts int64, open float64) types.Candle {
	move := (s.rng.Float64()*2 - 1) * s.stepPct
	cl := open * (1 + move)
	wick := s.rng.Float64() * s.stepPct / 2
	return types.Candle{
		Ts:    ts,
		Open:  open,
		Close: cl,
		High:  max(open, cl) * (1 + wick),
		Low:   min(open, cl) * (1 - wick),
		Vol:   1 + s.rng.Float64()*10,
	}
}
