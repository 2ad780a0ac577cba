// Package ledger holds the simulated account: cash, open lots per asset and
// the daily trade counter.
//
// The simulation cycle is the only writer. Every exported method takes the
// ledger lock, so the status surface may read a Snapshot concurrently.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"

	"paper-trader/internal/id"
	"paper-trader/internal/types"
)

var (
	ErrTradeCapReached  = errors.New("daily trade cap reached")
	ErrInsufficientCash = errors.New("insufficient cash")
	ErrInvalidLot       = errors.New("invalid lot")
	ErrUnknownLot       = errors.New("unknown lot")

	// ErrInvariant marks a state the controller should have made impossible.
	ErrInvariant = errors.New("ledger invariant violated")
)

// cashEpsilon absorbs float rounding when a buy spends the whole balance.
const cashEpsilon = 1e-9

type Ledger struct {
	mu sync.RWMutex

	initial    float64
	cash       float64
	maxTrades  int
	positions  map[string][]types.Lot
	tradeCount int
	day        time.Time

	marks    map[string]float64
	markedAt time.Time
}

func New(initialCash float64, maxTrades int, now time.Time) *Ledger {
	return &Ledger{
		initial:   initialCash,
		cash:      initialCash,
		maxTrades: maxTrades,
		positions: make(map[string][]types.Lot),
		day:       dayOf(now),
		marks:     make(map[string]float64),
	}
}

func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// RolloverIfNewDay resets the trade counter when now falls on a different UTC
// date than the current day marker. It reports whether a reset happened.
func (l *Ledger) RolloverIfNewDay(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := dayOf(now)
	if d.Equal(l.day) {
		return false
	}
	l.tradeCount = 0
	l.day = d
	return true
}

func (l *Ledger) Cash() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

func (l *Ledger) InitialCapital() float64 {
	return l.initial
}

func (l *Ledger) TradeCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tradeCount
}

func (l *Ledger) MaxTrades() int {
	return l.maxTrades
}

func (l *Ledger) Day() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.day
}

// RemainingSlots is how many more trades today's cap allows.
func (l *Ledger) RemainingSlots() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxTrades - l.tradeCount
}

func (l *Ledger) CapReached() bool {
	return l.RemainingSlots() <= 0
}

// Lots returns a copy of the asset's open lots in insertion order.
func (l *Ledger) Lots(asset string) []types.Lot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.Lot(nil), l.positions[asset]...)
}

// Assets lists assets with at least one open lot, sorted.
func (l *Ledger) Assets() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assetsLocked()
}

func (l *Ledger) assetsLocked() []string {
	out := make([]string, 0, len(l.positions))
	for a := range l.positions {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// OpenLot debits qty*price from cash and appends a new lot. It never merges
// into an existing lot.
func (l *Ledger) OpenLot(asset string, qty, price float64, reason string, now time.Time) (types.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tradeCount >= l.maxTrades {
		return types.TradeRecord{}, ErrTradeCapReached
	}
	if !positive(qty) || !positive(price) {
		return types.TradeRecord{}, fmt.Errorf("%w: qty=%v price=%v", ErrInvalidLot, qty, price)
	}
	cost := qty * price
	if cost > l.cash+cashEpsilon {
		return types.TradeRecord{}, fmt.Errorf("%w: cost %.8f exceeds cash %.8f", ErrInsufficientCash, cost, l.cash)
	}

	l.cash -= cost
	if l.cash < 0 {
		l.cash = 0
	}

	lot := types.Lot{ID: id.New(now), Quantity: qty, BuyPrice: price, OpenedAt: now}
	l.positions[asset] = append(l.positions[asset], lot)
	l.tradeCount++

	return types.TradeRecord{
		ID:        id.New(now),
		Asset:     asset,
		Side:      types.SideBuy,
		LotID:     lot.ID,
		Quantity:  qty,
		Price:     price,
		Reason:    reason,
		Timestamp: now,
	}, nil
}

// CloseLot sells the whole lot at price. The fee is charged on the lot's cost
// basis, so a round trip with no price move loses exactly qty*buy*fee.
func (l *Ledger) CloseLot(asset, lotID string, price, fee float64, reason string, now time.Time) (types.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tradeCount >= l.maxTrades {
		return types.TradeRecord{}, ErrTradeCapReached
	}
	if !positive(price) {
		return types.TradeRecord{}, fmt.Errorf("%w: price=%v", ErrInvalidLot, price)
	}

	lots := l.positions[asset]
	idx := -1
	for i := range lots {
		if lots[i].ID == lotID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return types.TradeRecord{}, fmt.Errorf("%w: %s/%s", ErrUnknownLot, asset, lotID)
	}
	lot := lots[idx]

	change := (price - lot.BuyPrice) / lot.BuyPrice
	pnlPct := change - fee
	feeAmt := lot.Quantity * lot.BuyPrice * fee

	l.cash += lot.Quantity*price - feeAmt

	rest := append(lots[:idx:idx], lots[idx+1:]...)
	if len(rest) == 0 {
		delete(l.positions, asset)
	} else {
		l.positions[asset] = rest
	}
	l.tradeCount++

	return types.TradeRecord{
		ID:          id.New(now),
		Asset:       asset,
		Side:        types.SideSell,
		LotID:       lot.ID,
		Quantity:    lot.Quantity,
		Price:       price,
		RealizedPnL: lot.Quantity * lot.BuyPrice * pnlPct,
		Fee:         feeAmt,
		Reason:      reason,
		Timestamp:   now,
	}, nil
}

// TotalValue marks every open lot to prices. Assets held without a price are
// reported in Unpriced and contribute nothing to Total.
func (l *Ledger) TotalValue(prices map[string]float64) types.Valuation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.valueLocked(prices)
}

func (l *Ledger) valueLocked(prices map[string]float64) types.Valuation {
	v := types.Valuation{Cash: l.cash, Total: l.cash}
	for _, asset := range l.assetsLocked() {
		p, ok := prices[asset]
		if !ok || !positive(p) {
			v.Unpriced = append(v.Unpriced, asset)
			continue
		}
		for _, lot := range l.positions[asset] {
			v.Total += lot.Quantity * p
		}
	}
	return v
}

// Mark records this tick's prices for the status surface.
func (l *Ledger) Mark(prices map[string]float64, now time.Time) types.Valuation {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.marks = make(map[string]float64, len(prices))
	for k, v := range prices {
		l.marks[k] = v
	}
	l.markedAt = now
	return l.valueLocked(l.marks)
}

// Snapshot is a consistent copy of the ledger valued at the last marked prices.
func (l *Ledger) Snapshot() types.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v := l.valueLocked(l.marks)
	s := types.Snapshot{
		Cash:           l.cash,
		TotalValue:     v.Total,
		TradeCount:     l.tradeCount,
		MaxTrades:      l.maxTrades,
		Day:            l.day.Format("2006-01-02"),
		InitialCapital: l.initial,
		PctChange:      PctChange(l.initial, v.Total),
		Unpriced:       v.Unpriced,
		Positions:      make([]types.PositionView, 0, len(l.positions)),
		MarkedAt:       l.markedAt,
	}
	for _, asset := range l.assetsLocked() {
		lots := append([]types.Lot(nil), l.positions[asset]...)
		pv := types.PositionView{Asset: asset, Lots: lots}
		for _, lot := range lots {
			pv.Quantity += lot.Quantity
		}
		s.Positions = append(s.Positions, pv)
	}
	return s
}

// CheckInvariants reports the first structural problem found, wrapped in
// ErrInvariant.
func (l *Ledger) CheckInvariants() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.tradeCount < 0 || l.tradeCount > l.maxTrades {
		return fmt.Errorf("%w: trade_count %d outside [0,%d]", ErrInvariant, l.tradeCount, l.maxTrades)
	}
	if l.cash < 0 || math.IsNaN(l.cash) {
		return fmt.Errorf("%w: cash %.8f", ErrInvariant, l.cash)
	}
	for asset, lots := range l.positions {
		if len(lots) == 0 {
			return fmt.Errorf("%w: empty position for %s", ErrInvariant, asset)
		}
		for _, lot := range lots {
			if !positive(lot.Quantity) || !positive(lot.BuyPrice) {
				return fmt.Errorf("%w: bad lot %s in %s", ErrInvariant, lot.ID, asset)
			}
		}
	}
	return nil
}

// Dump renders the full ledger state for fatal-error logs.
func (l *Ledger) Dump() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return spew.Sdump(struct {
		Cash       float64
		TradeCount int
		Day        time.Time
		Positions  map[string][]types.Lot
	}{l.cash, l.tradeCount, l.day, l.positions})
}

// PctChange is the fractional change from base to v.
func PctChange(base, v float64) float64 {
	if base == 0 {
		return 0
	}
	return (v - base) / base
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}
