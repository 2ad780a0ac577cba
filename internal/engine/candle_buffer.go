package engine

import (
	"paper-trader/internal/ta"
	"paper-trader/internal/types"
)

// candleHistory keeps a bounded FIFO of recent candles per asset. It is owned
// by the engine and only touched from the cycle goroutine, so it has no lock.
type candleHistory struct {
	buffers map[string]*candleBuffer
	maxSize int
}

type candleBuffer struct {
	candles []types.Candle
}

func newCandleHistory(maxSize int) *candleHistory {
	if maxSize < 1 {
		maxSize = 1
	}
	return &candleHistory{
		buffers: make(map[string]*candleBuffer),
		maxSize: maxSize,
	}
}

// push appends c and evicts the oldest entry beyond capacity.
func (h *candleHistory) push(asset string, c types.Candle) {
	buf, ok := h.buffers[asset]
	if !ok {
		buf = &candleBuffer{candles: make([]types.Candle, 0, h.maxSize)}
		h.buffers[asset] = buf
	}
	if len(buf.candles) == h.maxSize {
		copy(buf.candles, buf.candles[1:])
		buf.candles = buf.candles[:h.maxSize-1]
	}
	buf.candles = append(buf.candles, c)
}

// trend is the close-to-close change over the last periods entries, or 0
// until that many entries exist.
func (h *candleHistory) trend(asset string, periods int) float64 {
	buf, ok := h.buffers[asset]
	if !ok {
		return 0
	}
	closes := make([]float64, len(buf.candles))
	for i, c := range buf.candles {
		closes[i] = c.Close
	}
	return ta.PctChange(closes, periods)
}

func (h *candleHistory) window(asset string) []types.Candle {
	buf, ok := h.buffers[asset]
	if !ok {
		return nil
	}
	return append([]types.Candle(nil), buf.candles...)
}

func (h *candleHistory) len(asset string) int {
	if buf, ok := h.buffers[asset]; ok {
		return len(buf.candles)
	}
	return 0
}
