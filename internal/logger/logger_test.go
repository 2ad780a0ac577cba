package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-trader/internal/types"
)

func captureJSON(t *testing.T, detailed bool) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, InitWithConfig(LogConfig{Level: "DEBUG", Format: "json", DetailedLogging: detailed, Output: buf}))
	t.Cleanup(func() { detailedLogging = false })
	return buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestDebugSuppressedWithoutDetailedLogging(t *testing.T) {
	buf := captureJSON(t, false)
	Debug(context.Background(), "hidden")
	Info(context.Background(), "shown", "asset", "ETHUSD")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["msg"])
	assert.Equal(t, "ETHUSD", got[0]["asset"])
	assert.Nil(t, got[0]["source"])
}

func TestDetailedLoggingAddsSource(t *testing.T) {
	buf := captureJSON(t, true)
	Debug(context.Background(), "visible")

	got := lines(t, buf)
	require.Len(t, got, 1)
	src, ok := got[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, src["file"], "logger_test.go")
}

func TestTradeIncludesSellFields(t *testing.T) {
	buf := captureJSON(t, false)
	Trade(context.Background(), types.TradeRecord{
		ID: "T1", Asset: "ETHUSD", Side: types.SideSell, Quantity: 1.5, Price: 101,
		RealizedPnL: 0.72, Fee: 0.78, Timestamp: time.Now(),
	})
	Trade(context.Background(), types.TradeRecord{ID: "T2", Asset: "ETHUSD", Side: types.SideBuy, Quantity: 1, Price: 100})

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "TRADE", got[0]["type"])
	assert.Equal(t, 0.72, got[0]["realized_pnl"])
	_, hasPnL := got[1]["realized_pnl"]
	assert.False(t, hasPnL)
}

func TestRiskIsWarnLevel(t *testing.T) {
	buf := captureJSON(t, false)
	Risk(context.Background(), "ETHUSD", "BUY_SKIPPED_LOW_CASH", "cash", 5.0)

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "WARN", got[0]["level"])
	assert.Equal(t, "BUY_SKIPPED_LOW_CASH", got[0]["event_type"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("WARN").String())
	assert.Equal(t, "INFO", parseLogLevel("bogus").String())
}
