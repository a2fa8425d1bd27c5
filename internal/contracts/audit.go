package contracts

import "time"

// PerformanceReport is the immutable snapshot handed to presentation and export collaborators
// ⭐ SSOT: 성과/리스크/벤치마크/기여도 결과는 이 구조체 하나로만 전달
type PerformanceReport struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	Range       TimeRange `json:"range"`
	GeneratedAt time.Time `json:"generated_at"`

	Performance PerformanceMetrics `json:"performance"`
	Risk        RiskProfile        `json:"risk"`
	Comparisons []ComparisonResult `json:"comparisons"`
	Attribution AttributionResult  `json:"attribution"`
}

// IsOutperforming checks if the portfolio beat every comparable benchmark on total return
func (pr *PerformanceReport) IsOutperforming() bool {
	compared := 0
	for i := range pr.Comparisons {
		c := &pr.Comparisons[i]
		if c.InsufficientOverlap {
			continue
		}
		compared++
		if !c.IsOutperforming() {
			return false
		}
	}
	return compared > 0
}

// IsHealthy checks if the strategy has healthy risk metrics
func (pr *PerformanceReport) IsHealthy() bool {
	return pr.Performance.IsHealthy()
}

// ExcludedBenchmarks lists benchmarks left out for insufficient overlap
func (pr *PerformanceReport) ExcludedBenchmarks() []string {
	var out []string
	for _, c := range pr.Comparisons {
		if c.InsufficientOverlap {
			out = append(out, c.Benchmark)
		}
	}
	return out
}
