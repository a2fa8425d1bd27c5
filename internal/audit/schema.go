package audit

// Schema creates the analytics tables. Idempotent.
// ⭐ SSOT: perf 스키마 정의는 여기서만
const Schema = `
CREATE SCHEMA IF NOT EXISTS perf;

CREATE TABLE IF NOT EXISTS perf.trades (
	id            TEXT PRIMARY KEY,
	portfolio_id  TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	side          TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
	quantity      NUMERIC NOT NULL,
	price         NUMERIC NOT NULL,
	fee           NUMERIC NOT NULL DEFAULT 0,
	realized_pnl  NUMERIC,
	executed_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_portfolio_time ON perf.trades (portfolio_id, executed_at);

CREATE TABLE IF NOT EXISTS perf.equity_points (
	portfolio_id  TEXT NOT NULL,
	ts            TIMESTAMPTZ NOT NULL,
	value         DOUBLE PRECISION NOT NULL CHECK (value > 0),
	PRIMARY KEY (portfolio_id, ts)
);

CREATE TABLE IF NOT EXISTS perf.benchmarks (
	symbol  TEXT PRIMARY KEY,
	name    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS perf.benchmark_points (
	symbol  TEXT NOT NULL REFERENCES perf.benchmarks (symbol),
	ts      TIMESTAMPTZ NOT NULL,
	value   DOUBLE PRECISION NOT NULL CHECK (value > 0),
	PRIMARY KEY (symbol, ts)
);

CREATE TABLE IF NOT EXISTS perf.category_allocations (
	portfolio_id      TEXT NOT NULL,
	period_start      TIMESTAMPTZ NOT NULL,
	period_end        TIMESTAMPTZ NOT NULL,
	category          TEXT NOT NULL,
	portfolio_weight  DOUBLE PRECISION NOT NULL,
	portfolio_return  DOUBLE PRECISION NOT NULL,
	benchmark_weight  DOUBLE PRECISION NOT NULL,
	benchmark_return  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (portfolio_id, period_end, category)
);

CREATE TABLE IF NOT EXISTS perf.reports (
	id            UUID PRIMARY KEY,
	portfolio_id  TEXT NOT NULL,
	range_from    TIMESTAMPTZ,
	range_to      TIMESTAMPTZ,
	generated_at  TIMESTAMPTZ NOT NULL,
	report        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reports_portfolio_generated ON perf.reports (portfolio_id, generated_at DESC);
`
