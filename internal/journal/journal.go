// Package journal keeps an append-only SQLite audit trail of a run. It is
// never read back into the ledger.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"paper-trader/internal/types"
)

type SQLite struct {
	db    *sql.DB
	runID string
}

// Open creates the database and schema if needed. Records are tagged with runID.
func Open(path, runID string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLite{db: db, runID: runID}, nil
}

func (j *SQLite) RunID() string { return j.runID }

func (j *SQLite) Name() string { return "journal" }

func (j *SQLite) WriteTrade(ctx context.Context, rec types.TradeRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, run_id, asset, side, lot_id, quantity, price, realized_pnl, fee, reason, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, j.runID, rec.Asset, string(rec.Side), rec.LotID, rec.Quantity, rec.Price,
		rec.RealizedPnL, rec.Fee, rec.Reason, formatTime(rec.Timestamp),
	)
	return err
}

func (j *SQLite) WriteDecision(ctx context.Context, rec types.DecisionRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO decisions
		(run_id, asset, action, reason, confidence, price, trend_pct, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, rec.Asset, string(rec.Decision.Action), rec.Decision.Reason, rec.Decision.Confidence,
		rec.Price, rec.TrendPct, formatTime(rec.Time),
	)
	return err
}

func (j *SQLite) WriteEquity(ctx context.Context, snap types.EquitySnapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO equity
		(run_id, time, cash, total, pct_change, trade_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		j.runID, formatTime(snap.Time), snap.Cash, snap.Total, snap.PctChange, snap.TradeCount,
	)
	return err
}

// ListTrades returns a run's trades in execution order.
func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]types.TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, asset, side, lot_id, quantity, price, realized_pnl, fee, reason, time
		FROM trades
		WHERE run_id = ?
		ORDER BY time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TradeRecord
	for rows.Next() {
		var (
			rec  types.TradeRecord
			side string
			ts   string
		)
		if err := rows.Scan(&rec.ID, &rec.Asset, &side, &rec.LotID, &rec.Quantity, &rec.Price,
			&rec.RealizedPnL, &rec.Fee, &rec.Reason, &ts); err != nil {
			return nil, err
		}
		rec.Side = types.Side(side)
		if rec.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("trade %s: bad time %q: %w", rec.ID, ts, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListEquity returns a run's equity curve in time order.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]types.EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, cash, total, pct_change, trade_count
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.EquitySnapshot
	for rows.Next() {
		var (
			snap types.EquitySnapshot
			ts   string
		)
		if err := rows.Scan(&ts, &snap.Cash, &snap.Total, &snap.PctChange, &snap.TradeCount); err != nil {
			return nil, err
		}
		if snap.Time, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("equity: bad time %q: %w", ts, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// timeLayout is fixed width so ORDER BY time on the text column is
// chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
