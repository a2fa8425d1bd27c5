package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// Store is the data the Analyzer reads and writes
type Store interface {
	contracts.ReportStore
	GetTrades(ctx context.Context, portfolioID string, from, to time.Time) ([]contracts.Trade, error)
	GetEquityCurve(ctx context.Context, portfolioID string, from, to time.Time) (contracts.TimeSeries, error)
	GetBenchmarks(ctx context.Context, symbols []string, from, to time.Time) ([]contracts.BenchmarkSeries, error)
	GetCategoryAllocations(ctx context.Context, portfolioID string, from, to time.Time) ([]contracts.CategoryInput, error)
}

// Repository handles analytics data persistence
// ⭐ SSOT: 성과 분석 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new analytics repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the perf tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// nullTime maps a zero bound to SQL NULL (open range)
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// GetTrades retrieves executed trades for a period, oldest first
// NUMERIC 컬럼은 text로 읽어 decimal 정밀도 유지
func (r *Repository) GetTrades(ctx context.Context, portfolioID string, from, to time.Time) ([]contracts.Trade, error) {
	query := `
		SELECT id, symbol, side, quantity::text, price::text, fee::text, realized_pnl::text, executed_at
		FROM perf.trades
		WHERE portfolio_id = $1
		  AND ($2::timestamptz IS NULL OR executed_at >= $2)
		  AND ($3::timestamptz IS NULL OR executed_at <= $3)
		ORDER BY executed_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]contracts.Trade, 0)
	for rows.Next() {
		var (
			t               contracts.Trade
			side            string
			qty, price, fee string
			realized        *string
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &qty, &price, &fee, &realized, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		t.Side = contracts.Side(side)
		if t.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("trade %s quantity: %w", t.ID, err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("trade %s price: %w", t.ID, err)
		}
		if t.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("trade %s fee: %w", t.ID, err)
		}
		if realized != nil {
			pnl, err := decimal.NewFromString(*realized)
			if err != nil {
				return nil, fmt.Errorf("trade %s realized_pnl: %w", t.ID, err)
			}
			t.RealizedPnL = &pnl
		}

		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return trades, nil
}

// GetEquityCurve retrieves the portfolio value series for a period
func (r *Repository) GetEquityCurve(ctx context.Context, portfolioID string, from, to time.Time) (contracts.TimeSeries, error) {
	query := `
		SELECT ts, value
		FROM perf.equity_points
		WHERE portfolio_id = $1
		  AND ($2::timestamptz IS NULL OR ts >= $2)
		  AND ($3::timestamptz IS NULL OR ts <= $3)
		ORDER BY ts ASC
	`

	points, err := r.queryPoints(ctx, query, portfolioID, nullTime(from), nullTime(to))
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("failed to get equity curve: %w", err)
	}
	return contracts.NewTimeSeries(points)
}

// GetBenchmarks retrieves benchmark series in the order of symbols.
// An unknown symbol comes back with an empty series and is flagged by the comparison.
func (r *Repository) GetBenchmarks(ctx context.Context, symbols []string, from, to time.Time) ([]contracts.BenchmarkSeries, error) {
	names, err := r.benchmarkNames(ctx, symbols)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ts, value
		FROM perf.benchmark_points
		WHERE symbol = $1
		  AND ($2::timestamptz IS NULL OR ts >= $2)
		  AND ($3::timestamptz IS NULL OR ts <= $3)
		ORDER BY ts ASC
	`

	out := make([]contracts.BenchmarkSeries, 0, len(symbols))
	for _, symbol := range symbols {
		points, err := r.queryPoints(ctx, query, symbol, nullTime(from), nullTime(to))
		if err != nil {
			return nil, fmt.Errorf("failed to get benchmark %s: %w", symbol, err)
		}
		series, err := contracts.NewTimeSeries(points)
		if err != nil {
			return nil, fmt.Errorf("benchmark %s: %w", symbol, err)
		}

		name := names[symbol]
		if name == "" {
			name = symbol
		}
		out = append(out, contracts.BenchmarkSeries{Name: name, Symbol: symbol, Series: series})
	}

	return out, nil
}

func (r *Repository) benchmarkNames(ctx context.Context, symbols []string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT symbol, name FROM perf.benchmarks WHERE symbol = ANY($1)`, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to query benchmarks: %w", err)
	}

	names := make(map[string]string, len(symbols))
	var symbol, name string
	_, err = pgx.ForEachRow(rows, []any{&symbol, &name}, func() error {
		names[symbol] = name
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan benchmark: %w", err)
	}
	return names, nil
}

func (r *Repository) queryPoints(ctx context.Context, query string, args ...any) ([]contracts.EquityPoint, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.EquityPoint, error) {
		var p contracts.EquityPoint
		err := row.Scan(&p.Timestamp, &p.Value)
		return p, err
	})
}

// GetCategoryAllocations retrieves the latest attribution period ending inside the range
func (r *Repository) GetCategoryAllocations(ctx context.Context, portfolioID string, from, to time.Time) ([]contracts.CategoryInput, error) {
	query := `
		SELECT category, portfolio_weight, portfolio_return, benchmark_weight, benchmark_return
		FROM perf.category_allocations
		WHERE portfolio_id = $1
		  AND period_end = (
			SELECT MAX(period_end) FROM perf.category_allocations
			WHERE portfolio_id = $1
			  AND ($2::timestamptz IS NULL OR period_start >= $2)
			  AND ($3::timestamptz IS NULL OR period_end <= $3)
		  )
		ORDER BY category ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query category allocations: %w", err)
	}

	categories, err := pgx.CollectRows(rows, pgx.RowToStructByPos[contracts.CategoryInput])
	if err != nil {
		return nil, fmt.Errorf("failed to scan category allocation: %w", err)
	}
	return categories, nil
}

// SaveReport stores the report JSON; the deterministic ID makes re-saves idempotent
func (r *Repository) SaveReport(ctx context.Context, report *contracts.PerformanceReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO perf.reports (id, portfolio_id, range_from, range_to, generated_at, report)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			report = EXCLUDED.report
	`

	_, err = r.pool.Exec(ctx, query,
		report.ID, report.PortfolioID, nullTime(report.Range.From), nullTime(report.Range.To),
		report.GeneratedAt, reportJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// GetLatestReport retrieves the most recently generated report of a portfolio
func (r *Repository) GetLatestReport(ctx context.Context, portfolioID string) (*contracts.PerformanceReport, error) {
	query := `
		SELECT report
		FROM perf.reports
		WHERE portfolio_id = $1
		ORDER BY generated_at DESC, created_at DESC
		LIMIT 1
	`

	var reportJSON []byte
	err := r.pool.QueryRow(ctx, query, portfolioID).Scan(&reportJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no report for portfolio %s", contracts.ErrNotFound, portfolioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}

	var report contracts.PerformanceReport
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}
