// Package llm holds what the hosted deciders share: the prompt they send and
// the parser for what comes back.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"paper-trader/internal/ta"
	"paper-trader/internal/types"
)

const DefaultSystem = "You are a disciplined crypto trader running a paper account. " +
	"Reply with BUY, SELL or HOLD, or with compact JSON {\"action\":..,\"reason\":..,\"confidence\":..}."

// DefaultSchema is sent when the config leaves llm.schema empty.
const DefaultSchema = `{"action":"BUY|SELL|HOLD","reason":"string","confidence":0.0}`

type promptState struct {
	Asset    string      `json:"asset"`
	Open     float64     `json:"open"`
	Close    float64     `json:"close"`
	Low      float64     `json:"low"`
	TrendPct float64     `json:"trend_pct"`
	SMA      float64     `json:"window_sma,omitempty"`
	StdDev   float64     `json:"window_stddev,omitempty"`
	Vol      float64     `json:"window_volatility,omitempty"`
	OpenLots []types.Lot `json:"open_lots"`
}

// UserPrompt renders the per-tick question for the model.
func UserPrompt(schema, asset string, latest types.Candle, state types.MarketState) string {
	if schema == "" {
		schema = DefaultSchema
	}
	ps := promptState{
		Asset:    asset,
		Open:     latest.Open,
		Close:    latest.Close,
		Low:      latest.Low,
		TrendPct: state.TrendPct,
		OpenLots: state.Lots,
	}
	if len(state.Window) > 1 {
		closes := make([]float64, len(state.Window))
		for i, c := range state.Window {
			closes[i] = c.Close
		}
		ps.SMA = ta.SMA(closes, len(closes))
		ps.StdDev = ta.StdDev(closes, len(closes))
		ps.Vol = ta.Volatility(closes)
	}
	b, _ := json.Marshal(ps)
	return fmt.Sprintf("Should I buy, sell or hold %s given open=%g, close=%g, low=%g?\nSchema:%s\nState:%s",
		asset, latest.Open, latest.Close, latest.Low, schema, b)
}

// ParseDecision reads a model reply. It accepts a JSON object, possibly
// wrapped in prose or a code fence, or a bare action word. Anything else is
// a HOLD with reason "unparsable_reply".
func ParseDecision(text string) types.Decision {
	t := strings.TrimSpace(text)

	if start, end := strings.Index(t, "{"), strings.LastIndex(t, "}"); start >= 0 && end > start {
		obj := t[start : end+1]
		if gjson.Valid(obj) {
			res := gjson.Parse(obj)
			d := types.Decision{
				Action:     types.ParseAction(res.Get("action").String()),
				Reason:     res.Get("reason").String(),
				Confidence: res.Get("confidence").Float(),
			}
			if d.Confidence < 0 || d.Confidence > 1 {
				d.Confidence = 0
			}
			if d.Reason == "" {
				d.Reason = "model_reply"
			}
			return d
		}
	}

	if fields := strings.Fields(t); len(fields) > 0 {
		if a := types.ParseAction(fields[0]); a != types.ActionHold || strings.EqualFold(strings.Trim(fields[0], ".!\"'`"), "hold") {
			return types.Decision{Action: a, Reason: "model_reply: " + truncate(t, 120)}
		}
	}
	return types.Decision{Action: types.ActionHold, Reason: "unparsable_reply"}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
