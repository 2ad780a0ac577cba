// Package tradelog appends JSON lines to per-day files under TRADER_LOG_DIR:
//
//	<dir>/<date>.txt            fills
//	<dir>/decisions/<date>.txt  one line per asset step
//	<dir>/equity/<date>.txt     one line per tick
//
// Dates are UTC, matching the trading day.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"paper-trader/internal/types"
)

var mu sync.Mutex

const timeLayout = "2006-01-02 15:04:05"

type Entry struct {
	Time, ID, Asset, Side, LotID, Reason string
	Qty, Price                           float64
	RealizedPnL                          float64 `json:",omitempty"`
	Fee                                  float64 `json:",omitempty"`
}

type DecisionEntry struct {
	Time, Asset, Action, Reason string
	Confidence                  float64
	Price                       float64
	TrendPct                    float64
}

type EquityEntry struct {
	Time       string
	Cash       float64
	Total      float64
	PctChange  float64
	TradeCount int
}

// Dir is the log root, TRADER_LOG_DIR or "logs".
func Dir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func day(t time.Time) string { return t.UTC().Format("2006-01-02") }

// TradeFile is the fills file for t's UTC date.
func TradeFile(t time.Time) string {
	return filepath.Join(Dir(), day(t)+".txt")
}

func decisionsFile(t time.Time) string {
	return filepath.Join(Dir(), "decisions", day(t)+".txt")
}

func equityFile(t time.Time) string {
	return filepath.Join(Dir(), "equity", day(t)+".txt")
}

func Append(rec types.TradeRecord) error {
	return appendLine(TradeFile(rec.Timestamp), Entry{
		Time:        rec.Timestamp.UTC().Format(timeLayout),
		ID:          rec.ID,
		Asset:       rec.Asset,
		Side:        string(rec.Side),
		LotID:       rec.LotID,
		Reason:      rec.Reason,
		Qty:         rec.Quantity,
		Price:       rec.Price,
		RealizedPnL: rec.RealizedPnL,
		Fee:         rec.Fee,
	})
}

func AppendDecision(rec types.DecisionRecord) error {
	return appendLine(decisionsFile(rec.Time), DecisionEntry{
		Time:       rec.Time.UTC().Format(timeLayout),
		Asset:      rec.Asset,
		Action:     string(rec.Decision.Action),
		Reason:     rec.Decision.Reason,
		Confidence: rec.Decision.Confidence,
		Price:      rec.Price,
		TrendPct:   rec.TrendPct,
	})
}

func AppendEquity(snap types.EquitySnapshot) error {
	return appendLine(equityFile(snap.Time), EquityEntry{
		Time:       snap.Time.UTC().Format(timeLayout),
		Cash:       snap.Cash,
		Total:      snap.Total,
		PctChange:  snap.PctChange,
		TradeCount: snap.TradeCount,
	})
}

func appendLine(p string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("tradelog: encode: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(f, string(b)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CompressOlder gzips .txt logs last modified more than retentionDays ago
// and removes the originals. Files that fail are left in place and reported.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	var errs []error
	err := filepath.WalkDir(Dir(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" || filepath.Base(filepath.Dir(p)) == "eod" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := gzipFile(p); err != nil {
			errs = append(errs, err)
		}
		return nil
	})
	return errors.Join(append(errs, err)...)
}

func gzipFile(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := errors.Join(gw.Close(), out.Close())
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(gz)
		return fmt.Errorf("compress %s: %w", p, err)
	}
	return os.Remove(p)
}
