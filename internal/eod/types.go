package eod

import "github.com/shopspring/decimal"

// tradeLine mirrors tradelog.Entry as written to the daily fills file.
type tradeLine struct {
	Time, ID, Asset, Side, LotID, Reason string
	Qty, Price                           float64
	RealizedPnL                          float64
	Fee                                  float64
}

// aggRow accumulates one asset's fills for the day.
type aggRow struct {
	Asset       string
	Buys        int
	BuyQty      decimal.Decimal
	BuyValue    decimal.Decimal
	Sells       int
	SellQty     decimal.Decimal
	SellValue   decimal.Decimal
	RealizedPnL decimal.Decimal
	Fees        decimal.Decimal
}

func (r *aggRow) add(tl tradeLine) {
	qty := decimal.NewFromFloat(tl.Qty)
	value := qty.Mul(decimal.NewFromFloat(tl.Price))
	switch tl.Side {
	case "BUY":
		r.Buys++
		r.BuyQty = r.BuyQty.Add(qty)
		r.BuyValue = r.BuyValue.Add(value)
	case "SELL":
		r.Sells++
		r.SellQty = r.SellQty.Add(qty)
		r.SellValue = r.SellValue.Add(value)
		r.RealizedPnL = r.RealizedPnL.Add(decimal.NewFromFloat(tl.RealizedPnL))
		r.Fees = r.Fees.Add(decimal.NewFromFloat(tl.Fee))
	}
}
