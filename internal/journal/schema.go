package journal

// Times are stored as RFC 3339 text in UTC so they sort lexically.
const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id     TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	asset        TEXT NOT NULL,
	side         TEXT NOT NULL,
	lot_id       TEXT NOT NULL,
	quantity     REAL NOT NULL,
	price        REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	fee          REAL NOT NULL,
	reason       TEXT NOT NULL,
	time         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	run_id     TEXT NOT NULL,
	asset      TEXT NOT NULL,
	action     TEXT NOT NULL,
	reason     TEXT NOT NULL,
	confidence REAL NOT NULL,
	price      REAL NOT NULL,
	trend_pct  REAL NOT NULL,
	time       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id      TEXT NOT NULL,
	time        TEXT NOT NULL,
	cash        REAL NOT NULL,
	total       REAL NOT NULL,
	pct_change  REAL NOT NULL,
	trade_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, time);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
`
