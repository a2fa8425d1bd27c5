// Package audit runs portfolio analyses: it loads trades, equity curve,
// benchmarks and category allocations, computes the report and persists,
// publishes and caches it.
package audit

import (
	"fmt"
	"time"

	"github.com/wonny/aegis/v13/perf/internal/attribution"
	"github.com/wonny/aegis/v13/perf/internal/benchmark"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/profile"
	"github.com/wonny/aegis/v13/perf/internal/report"
	"github.com/wonny/aegis/v13/perf/internal/risk"
	"github.com/wonny/aegis/v13/perf/internal/timeseries"
	"github.com/wonny/aegis/v13/perf/internal/tradestats"
)

// Input is everything one analysis needs, already fetched
// ⭐ 데이터 조립은 호출자(Analyzer/API/CLI)에서, 계산은 Compute에서
type Input struct {
	PortfolioID string                      `json:"portfolio_id"`
	Range       contracts.TimeRange         `json:"range"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Trades      []contracts.Trade           `json:"trades"`
	Equity      contracts.TimeSeries        `json:"equity"`
	Benchmarks  []contracts.BenchmarkSeries `json:"benchmarks"`
	Categories  []contracts.CategoryInput   `json:"categories"`
}

// Result is the report plus the profile-driven risk checks
type Result struct {
	Report *contracts.PerformanceReport `json:"report"`
	Limits *risk.LimitCheck             `json:"limits"`
	Stress []risk.StressResult          `json:"stress"`
}

// Compute runs trade aggregation, series analysis, risk, benchmark comparison
// and attribution, then assembles the report. Pure: no I/O, no clock.
// A zero Range analyzes the whole input.
func Compute(in Input, p *profile.Profile) (*Result, error) {
	if p == nil {
		p = profile.Default()
	}
	if !in.Range.Valid() {
		return nil, fmt.Errorf("%w: range from %s is after to %s",
			contracts.ErrInvalidRequest, in.Range.From.Format(time.RFC3339), in.Range.To.Format(time.RFC3339))
	}

	equity, trades, benchmarks := window(in)
	a := p.Analysis

	// 1. 거래 통계
	stats, err := tradestats.Aggregate(trades)
	if err != nil {
		return nil, fmt.Errorf("aggregate trades: %w", err)
	}
	bySymbol, err := tradestats.AggregateBySymbol(trades)
	if err != nil {
		return nil, fmt.Errorf("aggregate trades by symbol: %w", err)
	}

	// 2. 시계열 지표 (연환산 계수는 한 번만 결정)
	ppy, _ := timeseries.ResolvePeriodsPerYear(equity, a.PeriodsPerYear)
	series := timeseries.Analyze(equity, a.RiskFreeRate, ppy)

	// 3. 리스크 (겹치는 구간이 충분한 벤치마크만 beta/상관 대상)
	riskProfile, err := risk.ComputeRisk(equity, overlapping(equity, benchmarks), a.ConfidenceLevels, a.RiskFreeRate, ppy)
	if err != nil {
		return nil, fmt.Errorf("compute risk: %w", err)
	}

	// 4. 벤치마크 비교 (각 비교는 교집합 구간에서 ppy 재결정)
	comparisons := benchmark.Compare(equity, benchmarks, a.RiskFreeRate, a.PeriodsPerYear)

	// 5. 기여도 분석 (배분 미등록이면 에러 대신 no_categories 표시)
	attr := attribution.Unavailable()
	if len(in.Categories) > 0 {
		if attr, err = attribution.Compute(in.Categories); err != nil {
			return nil, fmt.Errorf("compute attribution: %w", err)
		}
	}

	// 6. 리포트 조립
	rep, err := report.Assemble(report.Input{
		PortfolioID: in.PortfolioID,
		Range:       in.Range,
		GeneratedAt: in.GeneratedAt,
		Performance: &contracts.PerformanceMetrics{
			Trades:   *stats,
			BySymbol: bySymbol,
			Series:   *series,
		},
		Risk:        riskProfile,
		Comparisons: comparisons,
		Attribution: attr,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}

	engine := p.RiskEngine()
	return &Result{
		Report: rep,
		Limits: engine.CheckLimits(riskProfile, series.MaxDrawdown),
		Stress: engine.StressTest(risk.ExposuresFromCategories(in.Categories), riskProfile.PortfolioValue),
	}, nil
}

// window truncates equity, trades and benchmarks to in.Range
func window(in Input) (contracts.TimeSeries, []contracts.Trade, []contracts.BenchmarkSeries) {
	from, to := in.Range.From, in.Range.To
	if from.IsZero() && to.IsZero() {
		return in.Equity, in.Trades, in.Benchmarks
	}

	trades := make([]contracts.Trade, 0, len(in.Trades))
	for _, t := range in.Trades {
		if !from.IsZero() && t.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && t.Timestamp.After(to) {
			continue
		}
		trades = append(trades, t)
	}

	benchmarks := make([]contracts.BenchmarkSeries, len(in.Benchmarks))
	for i, b := range in.Benchmarks {
		benchmarks[i] = contracts.BenchmarkSeries{Name: b.Name, Symbol: b.Symbol, Series: b.Series.Between(from, to)}
	}

	return in.Equity.Between(from, to), trades, benchmarks
}

// overlapping keeps the benchmarks sharing enough timestamps with equity
func overlapping(equity contracts.TimeSeries, benchmarks []contracts.BenchmarkSeries) []contracts.BenchmarkSeries {
	out := make([]contracts.BenchmarkSeries, 0, len(benchmarks))
	for _, b := range benchmarks {
		if contracts.Intersect(equity, b.Series)[0].Len() >= benchmark.MinOverlapPoints {
			out = append(out, b)
		}
	}
	return out
}
