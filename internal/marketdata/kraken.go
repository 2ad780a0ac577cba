// Package marketdata provides the candle feeds the simulation reads from.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"paper-trader/internal/api"
	"paper-trader/internal/interfaces"
	"paper-trader/internal/logger"
	"paper-trader/internal/store"
	"paper-trader/internal/types"
)

// Kraken reads public OHLC candles. No credentials are needed.
type Kraken struct {
	client   *api.Client
	interval int
	retry    *api.RetryConfig
	limiter  *rateLimiter
}

var _ interfaces.MarketData = (*Kraken)(nil)

func NewKraken(cfg *store.Config, opts ...api.ClientOption) *Kraken {
	base := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(cfg.Fetch.BaseURL, "/")),
		api.WithTimeout(cfg.FetchTimeout()),
		api.WithLogging(logger.IsDebugEnabled()),
	}
	return &Kraken{
		client:   api.NewClient(append(base, opts...)...),
		interval: cfg.CandleInterval,
		retry:    api.DefaultRetryConfig(),
		limiter:  newRateLimiter(cfg.Fetch.RateBurst, cfg.RateRefill()),
	}
}

// RecentCandles returns up to n of the most recent candles, oldest first.
// Kraken's last row is the candle still forming; it is what the bot trades on.
func (k *Kraken) RecentCandles(ctx context.Context, asset string, n int) ([]types.Candle, error) {
	if err := k.limiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("kraken ohlc %s: %w", asset, err)
	}

	q := url.Values{}
	q.Set("pair", asset)
	q.Set("interval", strconv.Itoa(k.interval))

	req := api.NewRequest(http.MethodGet, "/0/public/OHLC?"+q.Encode()).WithContext(ctx)
	resp, err := k.client.DoWithRetry(req, k.retry)
	if err != nil {
		return nil, fmt.Errorf("kraken ohlc %s: %w", asset, err)
	}
	candles, err := parseOHLC(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kraken ohlc %s: %w", asset, err)
	}
	if n > 0 && len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}

var errNoSeries = errors.New("no OHLC series in result")

// parseOHLC reads {"error":[],"result":{"<pair>":[[time,o,h,l,c,vwap,vol,count],...],"last":..}}.
// The pair key in the reply is Kraken's canonical name, which can differ from
// the one requested, so the first array under result is taken.
func parseOHLC(body []byte) ([]types.Candle, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON reply")
	}
	if errs := gjson.GetBytes(body, "error").Array(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.String()
		}
		return nil, fmt.Errorf("kraken error: %s", strings.Join(msgs, "; "))
	}

	var rows []gjson.Result
	gjson.GetBytes(body, "result").ForEach(func(key, value gjson.Result) bool {
		if key.String() == "last" || !value.IsArray() {
			return true
		}
		rows = value.Array()
		return false
	})
	if rows == nil {
		return nil, errNoSeries
	}

	candles := make([]types.Candle, 0, len(rows))
	for i, row := range rows {
		f := row.Array()
		if len(f) < 7 {
			return nil, fmt.Errorf("row %d: short row with %d fields", i, len(f))
		}
		candles = append(candles, types.Candle{
			Ts:    f[0].Int(),
			Open:  f[1].Float(),
			High:  f[2].Float(),
			Low:   f[3].Float(),
			Close: f[4].Float(),
			Vol:   f[6].Float(),
		})
	}
	return candles, nil
}
