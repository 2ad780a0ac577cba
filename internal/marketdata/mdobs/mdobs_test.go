package mdobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-trader/internal/marketdata"
	"paper-trader/internal/types"
)

type failing struct{}

func (failing) RecentCandles(context.Context, string, int) ([]types.Candle, error) {
	return []types.Candle{{Close: 1}}, errors.New("upstream down")
}

func TestWrapDelegates(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	md := Wrap(marketdata.NewStatic(7, time.Minute, marketdata.WithStaticClock(func() time.Time { return now })), "static")

	candles, err := md.RecentCandles(context.Background(), "ETHUSD", 3)
	require.NoError(t, err)
	assert.Len(t, candles, 3)
}

func TestWrapDropsCandlesOnError(t *testing.T) {
	candles, err := Wrap(failing{}, "kraken").RecentCandles(context.Background(), "ETHUSD", 1)
	assert.EqualError(t, err, "upstream down")
	assert.Nil(t, candles)
}
