package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-trader/internal/store"
	"paper-trader/internal/types"
)

func newTestDecider(t *testing.T, handler http.HandlerFunc) *ClaudeDecider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("CLAUDE_API_KEY", "test-key")
	t.Setenv("CLAUDE_API_ENDPOINT", srv.URL+"/")

	cfg := store.Defaults()
	cfg.LLM.Model = "claude-test"
	d, err := NewClaudeDecider(cfg)
	require.NoError(t, err)
	return d
}

func TestDecideParsesTextBlock(t *testing.T) {
	d := newTestDecider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])
		assert.NotEmpty(t, body["system"])

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"action\":\"BUY\",\"reason\":\"dip\",\"confidence\":0.8}"}]}`))
	})

	dec, err := d.Decide(context.Background(), "ETHUSD", types.Candle{Open: 100, Close: 99, Low: 98}, types.MarketState{})
	require.NoError(t, err)
	assert.Equal(t, types.ActionBuy, dec.Action)
	assert.Equal(t, "dip", dec.Reason)
	assert.Equal(t, 0.8, dec.Confidence)
}

func TestDecideSurfacesHTTPErrors(t *testing.T) {
	d := newTestDecider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := d.Decide(context.Background(), "ETHUSD", types.Candle{Open: 1, Close: 1}, types.MarketState{})
	assert.Error(t, err)
}

func TestDecideRejectsReplyWithoutText(t *testing.T) {
	d := newTestDecider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})
	_, err := d.Decide(context.Background(), "ETHUSD", types.Candle{Open: 1, Close: 1}, types.MarketState{})
	assert.ErrorContains(t, err, "no text content")
}

func TestNewClaudeDeciderNeedsKey(t *testing.T) {
	t.Setenv("CLAUDE_API_KEY", "")
	_, err := NewClaudeDecider(store.Defaults())
	assert.Error(t, err)
}
