package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"paper-trader/internal/tradelog"
)

type eodSummarizer struct {
	now func() time.Time
}

// CSVPath is where the summary for t's UTC date is written.
func CSVPath(t time.Time) string {
	return filepath.Join(tradelog.Dir(), "eod", t.UTC().Format("2006-01-02")+".csv")
}

// SummarizeDay aggregates the day's fills per asset. It returns "" and no
// error when there were no trades.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	f, err := os.Open(tradelog.TradeFile(t))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var tl tradeLine
		if err := json.Unmarshal(sc.Bytes(), &tl); err != nil || tl.Asset == "" {
			continue
		}
		row := aggs[tl.Asset]
		if row == nil {
			row = &aggRow{Asset: tl.Asset}
			aggs[tl.Asset] = row
		}
		row.add(tl)
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := CSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"asset", "buys", "buy_qty", "buy_avg", "sells", "sell_qty", "sell_avg", "gross_buy_value", "gross_sell_value", "fees", "realized_pnl"}
	if err := w.Write(headers); err != nil {
		return "", err
	}

	total := aggRow{Asset: "TOTAL"}
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write(r.record()); err != nil {
			return "", err
		}
		total.Buys += r.Buys
		total.Sells += r.Sells
		total.BuyValue = total.BuyValue.Add(r.BuyValue)
		total.SellValue = total.SellValue.Add(r.SellValue)
		total.Fees = total.Fees.Add(r.Fees)
		total.RealizedPnL = total.RealizedPnL.Add(r.RealizedPnL)
	}
	if err := w.Write([]string{
		total.Asset, strconv.Itoa(total.Buys), "", "", strconv.Itoa(total.Sells), "", "",
		total.BuyValue.StringFixed(2), total.SellValue.StringFixed(2),
		total.Fees.StringFixed(2), total.RealizedPnL.StringFixed(2),
	}); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

func (s *eodSummarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.now())
}

func (r *aggRow) record() []string {
	return []string{
		r.Asset,
		strconv.Itoa(r.Buys),
		r.BuyQty.StringFixed(8),
		avg(r.BuyValue, r.BuyQty).StringFixed(4),
		strconv.Itoa(r.Sells),
		r.SellQty.StringFixed(8),
		avg(r.SellValue, r.SellQty).StringFixed(4),
		r.BuyValue.StringFixed(2),
		r.SellValue.StringFixed(2),
		r.Fees.StringFixed(2),
		r.RealizedPnL.StringFixed(2),
	}
}

func avg(value, qty decimal.Decimal) decimal.Decimal {
	if qty.IsZero() {
		return decimal.Zero
	}
	return value.DivRound(qty, 8)
}
