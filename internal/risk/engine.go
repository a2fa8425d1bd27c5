// Package risk computes historical VaR/ES, beta and correlation for an equity curve.
package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/timeseries"
)

// =============================================================================
// ComputeRisk - 순수 계산
// =============================================================================

// ComputeRisk builds the RiskProfile of series against the reference series.
// confidenceLevels defaults to 0.95/0.99; a level outside (0, 1) is a hard error.
// Fewer than two points yields Status insufficient_data without VaR figures.
// riskFreeRate does not enter historical VaR.
func ComputeRisk(
	series contracts.TimeSeries,
	references []contracts.BenchmarkSeries,
	confidenceLevels []float64,
	riskFreeRate float64,
	periodsPerYear float64,
) (*contracts.RiskProfile, error) {
	levels, err := ValidateConfidence(confidenceLevels)
	if err != nil {
		return nil, err
	}

	ppy, _ := timeseries.ResolvePeriodsPerYear(series, periodsPerYear)
	returns := timeseries.Returns(series.Values())

	profile := &contracts.RiskProfile{
		Status:      contracts.SeriesOK,
		SampleCount: len(returns),
		Method:      contracts.PercentileMethod,
		VaR:         []contracts.VaRResult{},
		Betas:       Betas(series, references),
		Correlation: Correlation(series, references),
	}
	if last, ok := series.Last(); ok {
		profile.PortfolioValue = last.Value
	}
	if len(profile.Betas) > 0 {
		profile.Beta = profile.Betas[0].Beta
	}

	if series.Len() < 2 {
		profile.Status = contracts.SeriesInsufficientData
		return profile, nil
	}

	for _, p := range levels {
		profile.VaR = append(profile.VaR, HistoricalVaR(returns, p, profile.PortfolioValue))
	}
	profile.Volatility = timeseries.StdDev(returns) * math.Sqrt(ppy)

	return profile, nil
}

// ValidateConfidence returns the sorted, de-duplicated levels or ErrInvalidConfidence
func ValidateConfidence(levels []float64) ([]float64, error) {
	if len(levels) == 0 {
		return append([]float64(nil), DefaultConfidenceLevels...), nil
	}

	seen := make(map[float64]bool, len(levels))
	out := make([]float64, 0, len(levels))
	for _, p := range levels {
		if math.IsNaN(p) || p <= 0 || p >= 1 {
			return nil, fmt.Errorf("%w: %v must be in (0, 1)", contracts.ErrInvalidConfidence, p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Float64s(out)
	return out, nil
}

// =============================================================================
// Beta / Correlation
// =============================================================================

// Betas computes cov(portfolio, ref)/var(ref) per reference over their common timestamps.
// Beta is nil when the reference has zero variance or fewer than MinOverlapReturns returns overlap.
func Betas(series contracts.TimeSeries, references []contracts.BenchmarkSeries) []contracts.ReferenceBeta {
	out := make([]contracts.ReferenceBeta, 0, len(references))
	for _, ref := range references {
		aligned := contracts.Intersect(series, ref.Series)
		pr := timeseries.Returns(aligned[0].Values())
		rr := timeseries.Returns(aligned[1].Values())

		rb := contracts.ReferenceBeta{Name: ref.Label(), Overlap: aligned[0].Len()}
		if len(rr) >= MinOverlapReturns {
			if b, ok := Beta(pr, rr); ok {
				rb.Beta = &b
			}
		}
		out = append(out, rb)
	}
	return out
}

// Beta returns cov(a, ref)/var(ref); ok is false when ref has zero variance
func Beta(a, ref []float64) (float64, bool) {
	if timeseries.IsZeroRisk(timeseries.StdDev(ref)) {
		return 0, false
	}
	return timeseries.Covariance(a, ref) / timeseries.Variance(ref), true
}

// Correlation builds the Pearson matrix of the portfolio and every reference
// over the timestamps present in all of them. Only the upper triangle is
// computed; the lower triangle is mirrored. Zero-variance series are flagged
// and their row/column (diagonal included) stays 0.
func Correlation(series contracts.TimeSeries, references []contracts.BenchmarkSeries) contracts.CorrelationMatrix {
	all := make([]contracts.TimeSeries, 0, len(references)+1)
	labels := make([]string, 0, len(references)+1)

	all = append(all, series)
	labels = append(labels, PortfolioLabel)
	for _, ref := range references {
		all = append(all, ref.Series)
		labels = append(labels, ref.Label())
	}

	aligned := contracts.Intersect(all...)
	n := len(aligned)

	returns := make([][]float64, n)
	degenerate := make([]bool, n)
	for i, s := range aligned {
		returns[i] = timeseries.Returns(s.Values())
		degenerate[i] = len(returns[i]) < MinOverlapReturns || timeseries.IsZeroRisk(timeseries.StdDev(returns[i]))
	}

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		if degenerate[i] {
			continue
		}
		values[i][i] = 1
		for j := i + 1; j < n; j++ {
			if degenerate[j] {
				continue
			}
			c, _ := timeseries.Correlation(returns[i], returns[j])
			values[i][j] = c
			values[j][i] = c
		}
	}

	overlap := 0
	if n > 0 {
		overlap = aligned[0].Len()
	}

	return contracts.CorrelationMatrix{
		Labels:     labels,
		Values:     values,
		Degenerate: degenerate,
		Overlap:    overlap,
	}
}

// =============================================================================
// Engine - 한도/스트레스 (순수 계산)
// =============================================================================

// Engine 리스크 엔진 (순수 계산기)
// ⭐ SSOT: 한도 정책/시나리오는 상위 레이어(profile)에서 주입
type Engine struct {
	limits    RiskLimits
	scenarios []Scenario
}

// NewEngine 새 리스크 엔진 생성
func NewEngine(limits RiskLimits, scenarios []Scenario) *Engine {
	return &Engine{limits: limits, scenarios: scenarios}
}

// Limits returns the configured limits
func (e *Engine) Limits() RiskLimits {
	return e.limits
}

// CheckLimits 리스크 한도 체크
// maxDrawdown: 시계열 MDD (<= 0)
func (e *Engine) CheckLimits(profile *contracts.RiskProfile, maxDrawdown float64) *LimitCheck {
	result := &LimitCheck{
		Passed:      true,
		MaxDrawdown: maxDrawdown,
		Limits:      e.limits,
		Violations:  make([]string, 0),
		Breached:    make([]string, 0),
	}
	if profile == nil || profile.Status != contracts.SeriesOK {
		return result
	}

	v95 := profile.VaR95()
	result.VaR95 = v95.VaR
	result.ES95 = v95.ExpectedShortfall
	result.Volatility = profile.Volatility

	if e.limits.MaxVaR95 > 0 && result.VaR95 > e.limits.MaxVaR95 {
		result.breach(LimitVaR95, fmt.Sprintf("VaR95 %.4f exceeds limit %.4f", result.VaR95, e.limits.MaxVaR95))
	}
	if e.limits.MaxES95 > 0 && result.ES95 > e.limits.MaxES95 {
		result.breach(LimitES95, fmt.Sprintf("ES95 %.4f exceeds limit %.4f", result.ES95, e.limits.MaxES95))
	}
	if e.limits.MaxDrawdown > 0 && -maxDrawdown > e.limits.MaxDrawdown {
		result.breach(LimitMaxDrawdown, fmt.Sprintf("MaxDrawdown %.4f exceeds limit %.4f", -maxDrawdown, e.limits.MaxDrawdown))
	}
	if e.limits.MaxVolatility > 0 && result.Volatility > e.limits.MaxVolatility {
		result.breach(LimitVolatility, fmt.Sprintf("Volatility %.4f exceeds limit %.4f", result.Volatility, e.limits.MaxVolatility))
	}

	return result
}

func (c *LimitCheck) breach(key, message string) {
	c.Passed = false
	c.Breached = append(c.Breached, key)
	c.Violations = append(c.Violations, message)
}

// StressTest 스트레스 시나리오 테스트
// exposures: 카테고리별 비중
// 반환: 시나리오 순서대로 포트폴리오 수익률 (음수 = 손실)
func (e *Engine) StressTest(exposures []Exposure, portfolioValue float64) []StressResult {
	results := make([]StressResult, 0, len(e.scenarios))

	for _, scenario := range e.scenarios {
		var portfolioReturn float64

		for _, exp := range exposures {
			shock, exists := scenario.Shocks[exp.Category]
			if !exists {
				// 전체 시장 충격 확인
				shock, exists = scenario.Shocks["*"]
				if !exists {
					continue
				}
			}
			portfolioReturn += exp.Weight * shock
		}

		results = append(results, StressResult{
			Scenario: scenario.Name,
			Return:   portfolioReturn,
			Amount:   portfolioReturn * portfolioValue,
		})
	}

	return results
}
