package claude

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"paper-trader/internal/api"
	"paper-trader/internal/interfaces"
	"paper-trader/internal/llm"
	"paper-trader/internal/logger"
	"paper-trader/internal/store"
	"paper-trader/internal/types"
)

const (
	defaultEndpoint  = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// ClaudeDecider asks the Anthropic Messages API for a decision.
type ClaudeDecider struct {
	cfg    *store.Config
	client *api.Client
}

var _ interfaces.Decider = (*ClaudeDecider)(nil)

// NewClaudeDecider reads CLAUDE_API_KEY and, for proxies, CLAUDE_API_ENDPOINT.
func NewClaudeDecider(cfg *store.Config, opts ...api.ClientOption) (*ClaudeDecider, error) {
	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return nil, errors.New("CLAUDE_API_KEY missing")
	}
	endpoint := defaultEndpoint
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = strings.TrimRight(ep, "/")
	}

	base := []api.ClientOption{
		api.WithBaseURL(endpoint),
		api.WithHeader("x-api-key", apiKey),
		api.WithHeader("anthropic-version", anthropicVersion),
		api.WithTimeout(cfg.DecisionTimeout()),
		api.WithLogging(logger.IsDebugEnabled()),
	}
	return &ClaudeDecider{
		cfg:    cfg,
		client: api.NewClient(append(base, opts...)...),
	}, nil
}

func (d *ClaudeDecider) Decide(ctx context.Context, asset string, latest types.Candle, state types.MarketState) (types.Decision, error) {
	system := d.cfg.LLM.System
	if system == "" {
		system = llm.DefaultSystem
	}

	body := map[string]any{
		"model":      d.cfg.LLM.Model,
		"system":     system,
		"max_tokens": d.cfg.LLM.MaxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": llm.UserPrompt(d.cfg.LLM.Schema, asset, latest, state)},
		},
		"temperature": d.cfg.LLM.Temperature,
	}

	resp, err := d.client.POST(ctx, "/v1/messages", body)
	if err != nil {
		return types.Decision{}, fmt.Errorf("claude: %w", err)
	}

	text := gjson.GetBytes(resp.Body, `content.#(type=="text").text`)
	if !text.Exists() {
		return types.Decision{}, fmt.Errorf("claude: no text content in reply: %s", truncate(resp.String(), 200))
	}
	return llm.ParseDecision(text.String()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
