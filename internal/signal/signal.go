// Package signal is the rule-based decision source: a trailing-dip buy rule
// and a per-lot profit-taking sell rule.
package signal

import (
	"context"
	"fmt"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/types"
)

type Thresholds struct {
	// BuyDrop is a negative fraction; a trailing trend below it is a buy.
	BuyDrop float64
	// SellGain is the per-lot gain above which the asset is sold.
	SellGain float64
}

type Input struct {
	Latest   types.Candle
	TrendPct float64
	Lots     []types.Lot
}

// Evaluate applies the rules in order; the first match wins. It has no side
// effects and does not look at cash or the trade cap.
func Evaluate(in Input, th Thresholds) (types.Action, string) {
	changePct, dipPct := candleShape(in.Latest)
	shape := fmt.Sprintf("change=%.4f dip=%.4f trend=%.4f", changePct, dipPct, in.TrendPct)

	if in.TrendPct < th.BuyDrop {
		return types.ActionBuy, "trailing_dip " + shape
	}

	for _, lot := range in.Lots {
		if lot.BuyPrice <= 0 {
			continue
		}
		gain := (in.Latest.Close - lot.BuyPrice) / lot.BuyPrice
		if gain > th.SellGain {
			return types.ActionSell, fmt.Sprintf("take_profit lot=%s gain=%.4f %s", lot.ID, gain, shape)
		}
	}

	return types.ActionHold, "no_signal " + shape
}

func candleShape(c types.Candle) (changePct, dipPct float64) {
	if c.Open == 0 {
		return 0, 0
	}
	return (c.Close - c.Open) / c.Open, (c.Low - c.Open) / c.Open
}

// RuleDecider adapts Evaluate to the Decider interface.
type RuleDecider struct {
	th Thresholds
}

var _ interfaces.Decider = (*RuleDecider)(nil)

func NewRuleDecider(th Thresholds) *RuleDecider {
	return &RuleDecider{th: th}
}

func (d *RuleDecider) Decide(ctx context.Context, asset string, latest types.Candle, state types.MarketState) (types.Decision, error) {
	action, reason := Evaluate(Input{Latest: latest, TrendPct: state.TrendPct, Lots: state.Lots}, d.th)
	return types.Decision{Action: action, Reason: reason, Confidence: 1.0}, nil
}
