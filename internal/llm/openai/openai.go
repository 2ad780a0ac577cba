package openai

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

const defaultBaseURL = "https://api.openai.com"

type OpenAIDecider struct {
	cfg    *store.Config
	client *api.Client
}

var _ interfaces.Decider = (*OpenAIDecider)(nil)

// NewOpenAIDecider reads OPENAI_API_KEY and an optional OPENAI_BASE_URL.
func NewOpenAIDecider(cfg *store.Config, opts ...api.ClientOption) (*OpenAIDecider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY missing")
	}
	baseURL := defaultBaseURL
	if u := os.Getenv("OPENAI_BASE_URL"); u != "" {
		baseURL = strings.TrimRight(u, "/")
	}

	base := []api.ClientOption{
		api.WithBaseURL(baseURL),
		api.WithHeader("Authorization", "Bearer "+apiKey),
		api.WithTimeout(cfg.DecisionTimeout()),
		api.WithLogging(logger.IsDebugEnabled()),
	}
	return &OpenAIDecider{cfg: cfg, client: api.NewClient(append(base, opts...)...)}, nil
}

func (d *OpenAIDecider) Decide(ctx context.Context, asset string, latest types.Candle, state types.MarketState) (types.Decision, error) {
	system := d.cfg.LLM.System
	if system == "" {
		system = llm.DefaultSystem
	}

	body := map[string]any{
		"model": d.cfg.LLM.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": llm.UserPrompt(d.cfg.LLM.Schema, asset, latest, state)},
		},
		"temperature": d.cfg.LLM.Temperature,
		"max_tokens":  d.cfg.LLM.MaxTokens,
	}

	resp, err := d.client.POST(ctx, "/v1/chat/completions", body)
	if err != nil {
		return types.Decision{}, fmt.Errorf("openai: %w", err)
	}

	content := gjson.GetBytes(resp.Body, "choices.0.message.content")
	if !content.Exists() {
		return types.Decision{}, errors.New("openai: no choices in reply")
	}
	return llm.ParseDecision(content.String()), nil
}
