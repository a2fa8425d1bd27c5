// Package timeseries derives return, volatility and drawdown metrics from an equity curve.
package timeseries

import (
	"math"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// Analyze computes TimeSeriesMetrics for series.
// riskFreeRate is annual. periodsPerYear <= 0 detects the frequency from the timestamps.
// Fewer than two points yields Status insufficient_data, never an error.
func Analyze(series contracts.TimeSeries, riskFreeRate, periodsPerYear float64) *contracts.TimeSeriesMetrics {
	ppy, freq := ResolvePeriodsPerYear(series, periodsPerYear)

	m := &contracts.TimeSeriesMetrics{
		Points:         series.Len(),
		Frequency:      freq,
		PeriodsPerYear: ppy,
		RiskFreeRate:   riskFreeRate,
		Returns:        []float64{},
		Drawdowns:      []float64{},
	}
	if first, ok := series.First(); ok {
		m.Start = first.Timestamp
	}
	if last, ok := series.Last(); ok {
		m.End = last.Timestamp
	}

	if series.Len() < 2 {
		m.Status = contracts.SeriesInsufficientData
		m.Sharpe = contracts.InsufficientRatio()
		m.Sortino = contracts.InsufficientRatio()
		m.Calmar = contracts.InsufficientRatio()
		m.AnnualizedStatus = contracts.RatioInsufficientData
		if series.Len() == 1 {
			m.Drawdowns = []float64{0}
		}
		return m
	}
	m.Status = contracts.SeriesOK

	values := series.Values()
	returns := Returns(values)
	m.Returns = returns

	// 1. Drawdown
	m.Drawdowns, m.MaxDrawdown = Drawdowns(values)
	m.Episodes = Episodes(series, m.Drawdowns)
	for _, ep := range m.Episodes {
		if ep.Periods > m.LongestDrawdownPeriods {
			m.LongestDrawdownPeriods = ep.Periods
		}
	}

	// 2. Return
	m.TotalReturn = values[len(values)-1]/values[0] - 1
	m.AnnualizedReturn, m.AnnualizedStatus = annualizeChecked(m.TotalReturn, len(returns), ppy)
	m.MeanReturn = Mean(returns)

	// 3. Risk
	m.StdDev = StdDev(returns)
	m.Volatility = m.StdDev * math.Sqrt(ppy)
	downside, negatives := downsideDeviation(returns)
	m.DownsideDev = downside * math.Sqrt(ppy)
	m.Degenerate = IsZeroRisk(m.StdDev)

	// 4. Ratios
	excess := m.MeanReturn - riskFreeRate/ppy

	switch {
	case m.Degenerate:
		m.Sharpe = contracts.DegenerateRatio()
	default:
		m.Sharpe = contracts.RatioOf(excess / m.StdDev * math.Sqrt(ppy))
	}

	// 손실 없음 + 양의 초과수익 → 변동성 0이어도 unbounded
	switch {
	case negatives == 0 && (excess > 0 || !m.Degenerate):
		m.Sortino = contracts.UnboundedRatio()
	case m.Degenerate:
		m.Sortino = contracts.DegenerateRatio()
	default:
		m.Sortino = contracts.RatioOf(excess / downside * math.Sqrt(ppy))
	}

	switch {
	case m.AnnualizedStatus == contracts.RatioUnbounded:
		m.Calmar = contracts.UnboundedRatio()
	case m.MaxDrawdown == 0 && m.AnnualizedReturn == 0:
		m.Calmar = contracts.DegenerateRatio()
	case m.MaxDrawdown == 0:
		m.Calmar = contracts.UnboundedRatio()
	default:
		m.Calmar = contracts.RatioOf(m.AnnualizedReturn / math.Abs(m.MaxDrawdown))
	}

	return m
}

// Annualize compounds a total return earned over periods up to one year
func Annualize(totalReturn float64, periods int, periodsPerYear float64) float64 {
	if periods <= 0 || periodsPerYear <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, periodsPerYear/float64(periods)) - 1
}

// annualizeChecked keeps AnnualizedReturn finite: an overflow is reported as unbounded with value 0
func annualizeChecked(totalReturn float64, periods int, periodsPerYear float64) (float64, contracts.RatioStatus) {
	v := Annualize(totalReturn, periods, periodsPerYear)
	switch {
	case math.IsInf(v, 1):
		return 0, contracts.RatioUnbounded
	case math.IsNaN(v) || math.IsInf(v, -1):
		return 0, contracts.RatioDegenerate
	}
	return v, contracts.RatioOK
}

// Drawdowns returns the per-point drawdown from the running peak (all <= 0) and its minimum
func Drawdowns(values []float64) ([]float64, float64) {
	out := make([]float64, len(values))
	var peak, maxDD float64
	for i, v := range values {
		if i == 0 || v > peak {
			peak = v
		}
		out[i] = (v - peak) / peak
		if out[i] < maxDD {
			maxDD = out[i]
		}
	}
	return out, maxDD
}

// downsideDeviation returns sqrt(sum(r^2 for r<0) / n_neg) per period and n_neg
func downsideDeviation(returns []float64) (float64, int) {
	var sumSq float64
	n := 0
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return math.Sqrt(sumSq / float64(n)), n
}
