package types

import (
	"strings"
	"time"
)

// Candle is one OHLC observation for an asset. The core only reads
// Open, Close and Low; the rest is carried for logs and decision sources.
type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Action is the output of a decision source.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ParseAction normalises free-form decider output. Anything that is not
// recognisably buy or sell is HOLD.
func ParseAction(s string) Action {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Trim(s, ".!\"'`")
	switch Action(s) {
	case ActionBuy, ActionSell, ActionHold:
		return Action(s)
	}
	return ActionHold
}

type Decision struct {
	Action     Action  `json:"action"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Lot is one discrete purchase. Lots are never merged.
type Lot struct {
	ID       string    `json:"id"`
	Quantity float64   `json:"quantity"`
	BuyPrice float64   `json:"buy_price"`
	OpenedAt time.Time `json:"opened_at"`
}

// MarketState is what a decision source sees besides the latest candle.
type MarketState struct {
	TrendPct float64  `json:"trend_pct"`
	Window   []Candle `json:"window"`
	Lots     []Lot    `json:"lots"`
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeRecord is emitted once per ledger mutation. RealizedPnL and Fee are
// only set on sells.
type TradeRecord struct {
	ID          string    `json:"id"`
	Asset       string    `json:"asset"`
	Side        Side      `json:"side"`
	LotID       string    `json:"lot_id"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	RealizedPnL float64   `json:"realized_pnl,omitempty"`
	Fee         float64   `json:"fee,omitempty"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// Valuation is the result of marking the ledger to a set of prices. Assets
// held without a price this tick are listed in Unpriced and left out of Total.
type Valuation struct {
	Cash     float64  `json:"cash"`
	Total    float64  `json:"total"`
	Unpriced []string `json:"unpriced,omitempty"`
}

// PositionView is a read-only copy of one asset's position.
type PositionView struct {
	Asset    string  `json:"asset"`
	Lots     []Lot   `json:"lots"`
	Quantity float64 `json:"quantity"`
}

// Snapshot is the synchronized view handed to the status surface.
type Snapshot struct {
	Cash           float64        `json:"cash"`
	TotalValue     float64        `json:"total_value"`
	TradeCount     int            `json:"trade_count"`
	MaxTrades      int            `json:"max_trades_per_day"`
	Day            string         `json:"day"`
	InitialCapital float64        `json:"initial_capital"`
	PctChange      float64        `json:"pct_change"`
	Unpriced       []string       `json:"unpriced,omitempty"`
	Positions      []PositionView `json:"positions"`
	MarkedAt       time.Time      `json:"marked_at"`
}

// DecisionRecord is what the decision journal keeps for every asset step.
type DecisionRecord struct {
	Time     time.Time `json:"time"`
	Asset    string    `json:"asset"`
	Decision Decision  `json:"decision"`
	Price    float64   `json:"price"`
	TrendPct float64   `json:"trend_pct"`
}

type EquitySnapshot struct {
	Time       time.Time `json:"time"`
	Cash       float64   `json:"cash"`
	Total      float64   `json:"total"`
	PctChange  float64   `json:"pct_change"`
	TradeCount int       `json:"trade_count"`
}

type StepResult struct {
	Symbol   string        `json:"symbol"`
	Decision Decision      `json:"decision"`
	Price    float64       `json:"price"`
	Time     int64         `json:"time"`
	TrendPct float64       `json:"trend_pct"`
	Trades   []TradeRecord `json:"trades"`
	Reason   string        `json:"reason"`
}

// TickReport summarises one pass of the simulation cycle.
type TickReport struct {
	Time      time.Time     `json:"time"`
	Skipped   bool          `json:"skipped"`
	Steps     []*StepResult `json:"steps"`
	Failed    []string      `json:"failed,omitempty"`
	Valuation Valuation     `json:"valuation"`
	PctChange float64       `json:"pct_change"`
}
