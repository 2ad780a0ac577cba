// Package sink moves audit records off the simulation goroutine. Records are
// queued on a bounded channel and written to every target by one worker.
package sink

import (
	"context"
	"sync"
	"sync/atomic"

	"paper-trader/internal/interfaces"
	"paper-trader/internal/logger"
	"paper-trader/internal/tradelog"
	"paper-trader/internal/types"
)

// Target is a destination for audit records.
type Target interface {
	Name() string
	WriteTrade(ctx context.Context, rec types.TradeRecord) error
	WriteDecision(ctx context.Context, rec types.DecisionRecord) error
	WriteEquity(ctx context.Context, snap types.EquitySnapshot) error
}

type kind int

const (
	kindTrade kind = iota
	kindDecision
	kindEquity
)

type event struct {
	ctx      context.Context
	kind     kind
	trade    types.TradeRecord
	decision types.DecisionRecord
	equity   types.EquitySnapshot
}

type Async struct {
	ch      chan event
	targets []Target
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

var _ interfaces.TradeSink = (*Async)(nil)

func NewAsync(buffer int, targets ...Target) *Async {
	if buffer < 1 {
		buffer = 1
	}
	a := &Async{
		ch:      make(chan event, buffer),
		targets: targets,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) RecordTrade(ctx context.Context, rec types.TradeRecord) {
	a.enqueue(event{ctx: ctx, kind: kindTrade, trade: rec})
}

func (a *Async) RecordDecision(ctx context.Context, rec types.DecisionRecord) {
	a.enqueue(event{ctx: ctx, kind: kindDecision, decision: rec})
}

func (a *Async) RecordEquity(ctx context.Context, snap types.EquitySnapshot) {
	a.enqueue(event{ctx: ctx, kind: kindEquity, equity: snap})
}

// Dropped counts records discarded because the queue was full or closed.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// enqueue never blocks. The record is dropped with a warning when the
// worker has fallen behind.
func (a *Async) enqueue(ev event) {
	// Writes outlive the tick that produced them.
	ev.ctx = context.WithoutCancel(ev.ctx)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(ev, "closed")
		return
	}
	select {
	case a.ch <- ev:
	default:
		a.drop(ev, "queue_full")
	}
}

func (a *Async) drop(ev event, why string) {
	a.dropped.Add(1)
	fields := []any{"why", why, "kind", ev.kind.String()}
	if ev.kind == kindTrade {
		fields = append(fields, "trade_id", ev.trade.ID, "asset", ev.trade.Asset, "side", ev.trade.Side)
	}
	logger.Warn(ev.ctx, "Audit record dropped", fields...)
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.ch {
		for _, t := range a.targets {
			var err error
			switch ev.kind {
			case kindTrade:
				err = t.WriteTrade(ev.ctx, ev.trade)
			case kindDecision:
				err = t.WriteDecision(ev.ctx, ev.decision)
			case kindEquity:
				err = t.WriteEquity(ev.ctx, ev.equity)
			}
			if err != nil {
				logger.ErrorWithErr(ev.ctx, "Audit write failed", err, "target", t.Name(), "kind", ev.kind.String())
			}
		}
	}
}

// Close stops accepting records and waits for the queue to drain or ctx to
// end, whichever is first.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k kind) String() string {
	switch k {
	case kindTrade:
		return "trade"
	case kindDecision:
		return "decision"
	case kindEquity:
		return "equity"
	}
	return "unknown"
}

// TradeLog writes records to the daily JSON-lines files.
type TradeLog struct{}

func (TradeLog) Name() string { return "tradelog" }

func (TradeLog) WriteTrade(_ context.Context, rec types.TradeRecord) error {
	return tradelog.Append(rec)
}

func (TradeLog) WriteDecision(_ context.Context, rec types.DecisionRecord) error {
	return tradelog.AppendDecision(rec)
}

func (TradeLog) WriteEquity(_ context.Context, snap types.EquitySnapshot) error {
	return tradelog.AppendEquity(snap)
}
