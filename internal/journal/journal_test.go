package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-trader/internal/types"
)

func newTestJournal(t *testing.T, runID string) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "journal.db")
	j, err := Open(path, runID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestSchemaCreated(t *testing.T) {
	j, path := newTestJournal(t, "run-1")
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())
	assert.True(t, found["trades"])
	assert.True(t, found["decisions"])
	assert.True(t, found["equity"])
}

func TestTradesRoundTripPerRun(t *testing.T) {
	ctx := context.Background()
	j, path := newTestJournal(t, "run-1")
	t0 := time.Date(2024, 5, 10, 9, 30, 0, 123000000, time.UTC)

	want := []types.TradeRecord{
		{ID: "01A", Asset: "ETHUSD", Side: types.SideBuy, LotID: "L1", Quantity: 1.5, Price: 100, Reason: "dip", Timestamp: t0},
		{ID: "01B", Asset: "ETHUSD", Side: types.SideSell, LotID: "L1", Quantity: 1.5, Price: 102, RealizedPnL: 2.22, Fee: 0.78, Reason: "SIGNAL_SELL", Timestamp: t0.Add(time.Minute)},
	}
	for _, r := range want {
		require.NoError(t, j.WriteTrade(ctx, r))
	}

	other, err := Open(path, "run-2")
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.WriteTrade(ctx, types.TradeRecord{ID: "02A", Asset: "XBTUSD", Side: types.SideBuy, Timestamp: t0}))

	got, err := j.ListTrades(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trades mismatch (-want +got):\n%s", diff)
	}

	got, err = j.ListTrades(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "XBTUSD", got[0].Asset)
}

func TestEquityAndDecisions(t *testing.T) {
	ctx := context.Background()
	j, _ := newTestJournal(t, "run-1")
	t0 := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

	require.NoError(t, j.WriteDecision(ctx, types.DecisionRecord{
		Time: t0, Asset: "ETHUSD", Price: 100, TrendPct: -0.015,
		Decision: types.Decision{Action: types.ActionBuy, Reason: "dip", Confidence: 1},
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, j.WriteEquity(ctx, types.EquitySnapshot{
			Time: t0.Add(time.Duration(i) * time.Minute), Cash: 5000, Total: 5000 + float64(i), TradeCount: i,
		}))
	}

	eq, err := j.ListEquity(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, eq, 3)
	assert.Equal(t, 5002.0, eq[2].Total)
	assert.True(t, eq[0].Time.Equal(t0))
	assert.Equal(t, "run-1", j.RunID())
}

func TestListsOrderSubSecondTimes(t *testing.T) {
	ctx := context.Background()
	j, _ := newTestJournal(t, "run-1")
	t0 := time.Date(2024, 5, 10, 9, 30, 5, 0, time.UTC)
	later := t0.Add(500 * time.Millisecond)

	require.NoError(t, j.WriteTrade(ctx, types.TradeRecord{ID: "01", Asset: "ETHUSD", Side: types.SideSell, Timestamp: later}))
	require.NoError(t, j.WriteTrade(ctx, types.TradeRecord{ID: "02", Asset: "ETHUSD", Side: types.SideBuy, Timestamp: t0}))
	require.NoError(t, j.WriteEquity(ctx, types.EquitySnapshot{Time: later, Total: 2}))
	require.NoError(t, j.WriteEquity(ctx, types.EquitySnapshot{Time: t0, Total: 1}))

	trades, err := j.ListTrades(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "02", trades[0].ID)
	assert.True(t, trades[1].Timestamp.Equal(later))

	eq, err := j.ListEquity(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, eq, 2)
	assert.Equal(t, 1.0, eq[0].Total)
	assert.Equal(t, 2.0, eq[1].Total)
}

func TestDuplicateTradeIDRejected(t *testing.T) {
	ctx := context.Background()
	j, _ := newTestJournal(t, "run-1")
	rec := types.TradeRecord{ID: "dup", Asset: "ETHUSD", Side: types.SideBuy, Timestamp: time.Now()}
	require.NoError(t, j.WriteTrade(ctx, rec))
	assert.Error(t, j.WriteTrade(ctx, rec))
}
