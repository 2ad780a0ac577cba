package engine

import (
	"context"
	"sync"
	"time"

	"paper-trader/internal/store"
	"paper-trader/internal/types"
)

var t0 = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func testConfig(assets ...string) *store.Config {
	cfg := store.Defaults()
	if len(assets) == 0 {
		assets = []string{"ETHUSD"}
	}
	cfg.Assets = assets
	return cfg
}

type fixedDecider struct {
	action types.Action
	err    error
}

func (d fixedDecider) Decide(ctx context.Context, asset string, latest types.Candle, state types.MarketState) (types.Decision, error) {
	if d.err != nil {
		return types.Decision{}, d.err
	}
	return types.Decision{Action: d.action, Reason: "fixed", Confidence: 1}, nil
}

type memSink struct {
	mu        sync.Mutex
	trades    []types.TradeRecord
	decisions []types.DecisionRecord
	equity    []types.EquitySnapshot
}

func (s *memSink) RecordDecision(_ context.Context, rec types.DecisionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, rec)
}

func (s *memSink) RecordTrade(_ context.Context, rec types.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, rec)
}

func (s *memSink) RecordEquity(_ context.Context, snap types.EquitySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equity = append(s.equity, snap)
}

func (s *memSink) Trades() []types.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.TradeRecord(nil), s.trades...)
}

func (s *memSink) Equity() []types.EquitySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.EquitySnapshot(nil), s.equity...)
}

func candle(open, close, low float64) types.Candle {
	return types.Candle{Ts: t0.Unix(), Open: open, High: max(open, close), Low: low, Close: close}
}
