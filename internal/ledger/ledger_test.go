package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-trader/internal/types"
)

var t0 = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func TestRolloverIfNewDay(t *testing.T) {
	l := New(1000, 5, t0)
	for i := 0; i < 3; i++ {
		_, err := l.OpenLot("ETHUSD", 1, 10, "test", t0)
		require.NoError(t, err)
	}
	require.Equal(t, 3, l.TradeCount())

	assert.False(t, l.RolloverIfNewDay(t0.Add(10*time.Hour)), "same UTC date")
	assert.Equal(t, 3, l.TradeCount())

	next := time.Date(2024, 5, 11, 0, 0, 1, 0, time.UTC)
	assert.True(t, l.RolloverIfNewDay(next))
	assert.Equal(t, 0, l.TradeCount())
	assert.Equal(t, "2024-05-11", l.Day().Format("2006-01-02"))

	assert.False(t, l.RolloverIfNewDay(next.Add(time.Hour)), "reset happens once")
}

func TestRolloverUsesUTCDate(t *testing.T) {
	l := New(1000, 5, t0)
	_, err := l.OpenLot("ETHUSD", 1, 10, "test", t0)
	require.NoError(t, err)

	// 23:30 in UTC-2 is already the next UTC day.
	zone := time.FixedZone("UTC-2", -2*3600)
	local := time.Date(2024, 5, 10, 23, 30, 0, 0, zone)
	assert.True(t, l.RolloverIfNewDay(local))
	assert.Equal(t, 0, l.TradeCount())
}

func TestOpenLotDebitsCashAndKeepsLotsSeparate(t *testing.T) {
	l := New(1000, 10, t0)

	rec1, err := l.OpenLot("ETHUSD", 2, 100, "dip", t0)
	require.NoError(t, err)
	rec2, err := l.OpenLot("ETHUSD", 1, 110, "dip", t0.Add(time.Minute))
	require.NoError(t, err)

	assert.InDelta(t, 1000-200-110, l.Cash(), 1e-9)
	assert.Equal(t, 2, l.TradeCount())

	lots := l.Lots("ETHUSD")
	require.Len(t, lots, 2)
	assert.Equal(t, rec1.LotID, lots[0].ID)
	assert.Equal(t, rec2.LotID, lots[1].ID)
	assert.Equal(t, 100.0, lots[0].BuyPrice)
	assert.Equal(t, 110.0, lots[1].BuyPrice)

	assert.Equal(t, types.SideBuy, rec1.Side)
	assert.Equal(t, "dip", rec1.Reason)
	assert.NotEmpty(t, rec1.ID)
	assert.NotEqual(t, rec1.ID, rec1.LotID)
}

func TestOpenLotRejections(t *testing.T) {
	l := New(100, 1, t0)

	_, err := l.OpenLot("ETHUSD", 0, 10, "", t0)
	assert.ErrorIs(t, err, ErrInvalidLot)
	_, err = l.OpenLot("ETHUSD", 1, -1, "", t0)
	assert.ErrorIs(t, err, ErrInvalidLot)
	_, err = l.OpenLot("ETHUSD", 2, 100, "", t0)
	assert.ErrorIs(t, err, ErrInsufficientCash)

	assert.Equal(t, 100.0, l.Cash())
	assert.Equal(t, 0, l.TradeCount())
	assert.Empty(t, l.Assets())

	_, err = l.OpenLot("ETHUSD", 1, 50, "", t0)
	require.NoError(t, err)
	_, err = l.OpenLot("ETHUSD", 1, 10, "", t0)
	assert.ErrorIs(t, err, ErrTradeCapReached)
	assert.Equal(t, 50.0, l.Cash())
}

func TestOpenLotSpendingWholeBalance(t *testing.T) {
	l := New(5000, 30, t0)
	qty := 5000.0 / 3.0
	_, err := l.OpenLot("ETHUSD", qty, 3, "", t0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, l.Cash(), 0.0)
	assert.InDelta(t, 0, l.Cash(), 1e-9)
}

func TestRoundTripCostsOnlyTheFee(t *testing.T) {
	const fee = 0.0052
	l := New(5000, 30, t0)
	before := l.Cash()

	buy, err := l.OpenLot("ETHUSD", 1.5, 100, "", t0)
	require.NoError(t, err)
	sell, err := l.CloseLot("ETHUSD", buy.LotID, 100, fee, "", t0)
	require.NoError(t, err)

	assert.InDelta(t, -1.5*100*fee, l.Cash()-before, 1e-9)
	assert.InDelta(t, -1.5*100*fee, sell.RealizedPnL, 1e-9)
	assert.InDelta(t, 1.5*100*fee, sell.Fee, 1e-9)
	assert.Equal(t, 2, l.TradeCount())
}

func TestCloseLotRealizesPnLAndRemovesEmptyPosition(t *testing.T) {
	l := New(1000, 10, t0)
	a, err := l.OpenLot("ETHUSD", 1, 100, "", t0)
	require.NoError(t, err)
	b, err := l.OpenLot("ETHUSD", 2, 90, "", t0)
	require.NoError(t, err)

	rec, err := l.CloseLot("ETHUSD", a.LotID, 110, 0.01, "take_profit", t0)
	require.NoError(t, err)
	assert.Equal(t, types.SideSell, rec.Side)
	assert.InDelta(t, 1*100*(0.10-0.01), rec.RealizedPnL, 1e-9)
	assert.InDelta(t, 1000-100-180+110-1, l.Cash(), 1e-9)

	lots := l.Lots("ETHUSD")
	require.Len(t, lots, 1)
	assert.Equal(t, b.LotID, lots[0].ID)

	_, err = l.CloseLot("ETHUSD", b.LotID, 80, 0.01, "stop_loss", t0)
	require.NoError(t, err)
	assert.Empty(t, l.Assets())
	assert.Nil(t, l.Lots("ETHUSD"))
	assert.NoError(t, l.CheckInvariants())
}

func TestCloseLotErrors(t *testing.T) {
	l := New(1000, 2, t0)
	rec, err := l.OpenLot("ETHUSD", 1, 100, "", t0)
	require.NoError(t, err)

	_, err = l.CloseLot("ETHUSD", "nope", 100, 0, "", t0)
	assert.ErrorIs(t, err, ErrUnknownLot)
	_, err = l.CloseLot("XBTUSD", rec.LotID, 100, 0, "", t0)
	assert.ErrorIs(t, err, ErrUnknownLot)
	_, err = l.CloseLot("ETHUSD", rec.LotID, 0, 0, "", t0)
	assert.ErrorIs(t, err, ErrInvalidLot)

	_, err = l.OpenLot("ETHUSD", 1, 100, "", t0)
	require.NoError(t, err)
	_, err = l.CloseLot("ETHUSD", rec.LotID, 100, 0, "", t0)
	assert.ErrorIs(t, err, ErrTradeCapReached)
	assert.Len(t, l.Lots("ETHUSD"), 2)
}

func TestTotalValueReportsUnpricedAssets(t *testing.T) {
	l := New(1000, 10, t0)
	_, err := l.OpenLot("ETHUSD", 2, 100, "", t0)
	require.NoError(t, err)
	_, err = l.OpenLot("XBTUSD", 1, 300, "", t0)
	require.NoError(t, err)

	v := l.TotalValue(map[string]float64{"ETHUSD": 120})
	assert.InDelta(t, 500, v.Cash, 1e-9)
	assert.InDelta(t, 500+240, v.Total, 1e-9)
	assert.Equal(t, []string{"XBTUSD"}, v.Unpriced)

	v = l.TotalValue(map[string]float64{"ETHUSD": 120, "XBTUSD": 310})
	assert.InDelta(t, 500+240+310, v.Total, 1e-9)
	assert.Empty(t, v.Unpriced)
}

func TestSnapshotUsesLastMark(t *testing.T) {
	l := New(1000, 10, t0)
	_, err := l.OpenLot("ETHUSD", 2, 100, "", t0)
	require.NoError(t, err)

	l.Mark(map[string]float64{"ETHUSD": 150}, t0)
	s := l.Snapshot()
	assert.InDelta(t, 800, s.Cash, 1e-9)
	assert.InDelta(t, 1100, s.TotalValue, 1e-9)
	assert.InDelta(t, 0.1, s.PctChange, 1e-9)
	assert.Equal(t, 1, s.TradeCount)
	assert.Equal(t, 10, s.MaxTrades)
	require.Len(t, s.Positions, 1)
	assert.Equal(t, 2.0, s.Positions[0].Quantity)

	// The snapshot is a copy.
	s.Positions[0].Lots[0].Quantity = 99
	assert.Equal(t, 2.0, l.Lots("ETHUSD")[0].Quantity)
}

func TestConcurrentSnapshotReads(t *testing.T) {
	l := New(100000, 1000, t0)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s := l.Snapshot()
				assert.GreaterOrEqual(t, s.Cash, 0.0)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		rec, err := l.OpenLot("ETHUSD", 1, 10, "", t0)
		require.NoError(t, err)
		l.Mark(map[string]float64{"ETHUSD": 11}, t0)
		if i%2 == 0 {
			_, err = l.CloseLot("ETHUSD", rec.LotID, 11, 0.001, "", t0)
			require.NoError(t, err)
		}
	}
	close(stop)
	wg.Wait()
	assert.NoError(t, l.CheckInvariants())
}

func TestCheckInvariantsFlagsEmptyPosition(t *testing.T) {
	l := New(10, 1, t0)
	l.positions["ETHUSD"] = nil
	err := l.CheckInvariants()
	assert.True(t, errors.Is(err, ErrInvariant))
	assert.Contains(t, l.Dump(), "ETHUSD")
}
