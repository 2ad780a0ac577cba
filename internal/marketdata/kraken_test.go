package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-trader/internal/store"
	"paper-trader/internal/types"
)

const ohlcReply = `{"error":[],"result":{"XETHZUSD":[
 [1715333400,"3000.10","3005.00","2998.00","3002.50","3001.00","12.5",40],
 [1715333460,"3002.50","3010.00","3001.00","3008.00","3006.00","8.25",31],
 [1715333520,"3008.00","3009.00","2990.00","2995.00","2999.00","20.0",55]
],"last":1715333460}}`

func newTestKraken(t *testing.T, h http.HandlerFunc) *Kraken {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := store.Defaults()
	cfg.Fetch.BaseURL = srv.URL
	return NewKraken(cfg)
}

func TestKrakenRecentCandles(t *testing.T) {
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/OHLC", r.URL.Path)
		assert.Equal(t, "ETHUSD", r.URL.Query().Get("pair"))
		assert.Equal(t, "1", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(ohlcReply))
	})

	got, err := k.RecentCandles(context.Background(), "ETHUSD", 2)
	require.NoError(t, err)

	want := []types.Candle{
		{Ts: 1715333460, Open: 3002.5, High: 3010, Low: 3001, Close: 3008, Vol: 8.25},
		{Ts: 1715333520, Open: 3008, High: 3009, Low: 2990, Close: 2995, Vol: 20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candles mismatch (-want +got):\n%s", diff)
	}
}

func TestKrakenReportsAPIError(t *testing.T) {
	k := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":["EQuery:Unknown asset pair"]}`))
	})
	_, err := k.RecentCandles(context.Background(), "NOPE", 1)
	assert.ErrorContains(t, err, "Unknown asset pair")
}

func TestParseOHLCRejectsMalformed(t *testing.T) {
	_, err := parseOHLC([]byte(`not json`))
	assert.Error(t, err)

	_, err = parseOHLC([]byte(`{"error":[],"result":{"last":1}}`))
	assert.ErrorIs(t, err, errNoSeries)

	_, err = parseOHLC([]byte(`{"error":[],"result":{"X":[[1,"1","2"]]}}`))
	assert.ErrorContains(t, err, "row 0")
}
