package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledIsNoop(t *testing.T) {
	require.NoError(t, InitWithConfig(Config{Enabled: false}))
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "tick")
	span.End()
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
	assert.NoError(t, Shutdown(context.Background()))
}

func TestSpansAreExported(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, InitWithConfig(Config{Enabled: true, Output: buf, Sync: true}))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), "engine.step")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	span.End()

	assert.Contains(t, buf.String(), "engine.step")
	assert.Contains(t, buf.String(), "paper-trader")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_TRACING_ENABLED", "false")
	t.Setenv("LOG_TRACING_SAMPLE_RATIO", "0.25")
	cfg := ConfigFromEnv()
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.PrettyPrint)
	assert.Equal(t, 0.25, cfg.SampleRatio)
}
