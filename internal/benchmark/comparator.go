// Package benchmark compares the portfolio equity curve with external reference series.
package benchmark

import (
	"fmt"
	"math"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/risk"
	"github.com/wonny/aegis/v13/perf/internal/timeseries"
)

// MinOverlapPoints is the fewest common timestamps a comparison needs
const MinOverlapPoints = 2

// Compare analyzes portfolio and each benchmark over their common timestamps.
// A benchmark with too little overlap is returned flagged, the others still proceed.
// Results keep the order of benchmarks.
func Compare(
	portfolio contracts.TimeSeries,
	benchmarks []contracts.BenchmarkSeries,
	riskFreeRate float64,
	periodsPerYear float64,
) []contracts.ComparisonResult {
	results := make([]contracts.ComparisonResult, 0, len(benchmarks))
	for _, b := range benchmarks {
		results = append(results, compareOne(portfolio, b, riskFreeRate, periodsPerYear))
	}
	return results
}

func compareOne(
	portfolio contracts.TimeSeries,
	b contracts.BenchmarkSeries,
	riskFreeRate float64,
	periodsPerYear float64,
) contracts.ComparisonResult {
	aligned := contracts.Intersect(portfolio, b.Series)
	p, bs := aligned[0], aligned[1]

	result := contracts.ComparisonResult{
		Benchmark:     b.Label(),
		Symbol:        b.Symbol,
		OverlapPoints: p.Len(),
		Metrics:       []contracts.Outperformance{},
	}

	if p.Len() < MinOverlapPoints {
		result.InsufficientOverlap = true
		result.Reason = fmt.Sprintf("%s: %d common timestamps, need %d",
			contracts.ErrInsufficientOverlap, p.Len(), MinOverlapPoints)
		return result
	}

	first, _ := p.First()
	last, _ := p.Last()
	result.Start, result.End = first.Timestamp, last.Timestamp

	// 두 시계열 모두 같은 연환산 계수 사용
	ppy, _ := timeseries.ResolvePeriodsPerYear(p, periodsPerYear)
	pm := timeseries.Analyze(p, riskFreeRate, ppy)
	bm := timeseries.Analyze(bs, riskFreeRate, ppy)

	result.Portfolio = pm
	result.BenchmarkMetrics = bm
	result.Metrics = Outperformances(pm, bm)
	result.Relative = Relative(pm, bm)
	return result
}

// Outperformances lists the per-metric outperformance, positive meaning the portfolio did better
func Outperformances(p, b *contracts.TimeSeriesMetrics) []contracts.Outperformance {
	return []contracts.Outperformance{
		diff(contracts.MetricTotalReturn, p.TotalReturn, b.TotalReturn, p.TotalReturn-b.TotalReturn),
		ratioDiff(contracts.MetricAnnualizedReturn, p.Annualized(), b.Annualized()),
		diff(contracts.MetricVolatility, p.Volatility, b.Volatility, b.Volatility-p.Volatility),
		ratioDiff(contracts.MetricSharpe, p.Sharpe, b.Sharpe),
		ratioDiff(contracts.MetricSortino, p.Sortino, b.Sortino),
		ratioDiff(contracts.MetricCalmar, p.Calmar, b.Calmar),
		// 낙폭은 음수: 얕을수록 우수
		diff(contracts.MetricMaxDrawdown, p.MaxDrawdown, b.MaxDrawdown, math.Abs(b.MaxDrawdown)-math.Abs(p.MaxDrawdown)),
	}
}

func ratioDiff(metric string, p, b contracts.Ratio) contracts.Outperformance {
	if p.Status != contracts.RatioOK || b.Status != contracts.RatioOK {
		return contracts.Outperformance{
			Metric:    metric,
			Portfolio: finiteOrZero(p.Value),
			Benchmark: finiteOrZero(b.Value),
			Status:    contracts.ComparisonNotComparable,
		}
	}
	return diff(metric, p.Value, b.Value, p.Value-b.Value)
}

func diff(metric string, p, b, outperformance float64) contracts.Outperformance {
	if !isFinite(p) || !isFinite(b) {
		return contracts.Outperformance{
			Metric:    metric,
			Portfolio: finiteOrZero(p),
			Benchmark: finiteOrZero(b),
			Status:    contracts.ComparisonNotComparable,
		}
	}
	return contracts.Outperformance{
		Metric:         metric,
		Portfolio:      p,
		Benchmark:      b,
		Outperformance: outperformance,
		Status:         contracts.ComparisonOK,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if isFinite(v) {
		return v
	}
	return 0
}

// =============================================================================
// Relative statistics
// =============================================================================

// Relative computes beta, correlation, tracking error and capture ratios from aligned metrics
func Relative(p, b *contracts.TimeSeriesMetrics) *contracts.RelativeStats {
	pr, br := p.Returns, b.Returns
	n := len(pr)
	if len(br) < n {
		n = len(br)
	}
	pr, br = pr[:n], br[:n]

	rel := &contracts.RelativeStats{
		ActiveReturn:     p.TotalReturn - b.TotalReturn,
		TotalPeriods:     n,
		InformationRatio: contracts.InsufficientRatio(),
	}
	if n < risk.MinOverlapReturns {
		return rel
	}

	if beta, ok := risk.Beta(pr, br); ok {
		rel.Beta = &beta
	}
	if corr, ok := timeseries.Correlation(pr, br); ok {
		rel.Correlation = &corr
	}

	active := make([]float64, n)
	var upP, upB, downP, downB []float64
	for i := 0; i < n; i++ {
		active[i] = pr[i] - br[i]
		if pr[i] > br[i] {
			rel.OutperformPeriods++
		}
		switch {
		case br[i] > 0:
			upP, upB = append(upP, pr[i]), append(upB, br[i])
		case br[i] < 0:
			downP, downB = append(downP, pr[i]), append(downB, br[i])
		}
	}

	ppy := p.PeriodsPerYear
	activeStd := timeseries.StdDev(active)
	rel.TrackingError = activeStd * math.Sqrt(ppy)
	if timeseries.IsZeroRisk(activeStd) {
		rel.InformationRatio = contracts.DegenerateRatio()
	} else {
		rel.InformationRatio = contracts.RatioOf(timeseries.Mean(active) / activeStd * math.Sqrt(ppy))
	}

	rel.UpCapture = capture(upP, upB)
	rel.DownCapture = capture(downP, downB)
	return rel
}

// capture returns mean(portfolio)/mean(benchmark) over the selected periods, nil when none
func capture(p, b []float64) *float64 {
	if len(b) == 0 {
		return nil
	}
	mb := timeseries.Mean(b)
	if mb == 0 {
		return nil
	}
	c := timeseries.Mean(p) / mb
	return &c
}
