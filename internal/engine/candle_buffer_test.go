package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandleHistoryEvictsOldest(t *testing.T) {
	h := newCandleHistory(3)
	for _, c := range []float64{10, 11, 12, 13} {
		h.push("ETHUSD", candle(c, c, c))
	}

	w := h.window("ETHUSD")
	assert.Len(t, w, 3)
	assert.Equal(t, 11.0, w[0].Close)
	assert.Equal(t, 13.0, w[2].Close)
	assert.Equal(t, 0, h.len("XBTUSD"))
}

func TestCandleHistoryTrend(t *testing.T) {
	h := newCandleHistory(3)
	h.push("ETHUSD", candle(100, 100, 100))
	assert.Equal(t, 0.0, h.trend("ETHUSD", 3), "not enough history")

	h.push("ETHUSD", candle(100, 99, 99))
	h.push("ETHUSD", candle(99, 98, 98))
	assert.InDelta(t, -0.02, h.trend("ETHUSD", 3), 1e-12)

	h.push("ETHUSD", candle(98, 101, 98))
	assert.InDelta(t, (101.0-99.0)/99.0, h.trend("ETHUSD", 3), 1e-12)
	assert.Equal(t, 0.0, h.trend("XBTUSD", 3))
}

func TestCandleHistoryWindowIsCopy(t *testing.T) {
	h := newCandleHistory(2)
	h.push("ETHUSD", candle(1, 1, 1))
	w := h.window("ETHUSD")
	w[0].Close = 42
	assert.Equal(t, 1.0, h.window("ETHUSD")[0].Close)
}
