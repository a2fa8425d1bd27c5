package contracts

// CategoryInput is the per-category weight and return of portfolio and benchmark for one period.
// Weights and returns are fractions (0.40 == 40%).
type CategoryInput struct {
	Category        string  `json:"category" yaml:"category"`
	PortfolioWeight float64 `json:"portfolio_weight" yaml:"portfolio_weight"`
	PortfolioReturn float64 `json:"portfolio_return" yaml:"portfolio_return"`
	BenchmarkWeight float64 `json:"benchmark_weight" yaml:"benchmark_weight"`
	BenchmarkReturn float64 `json:"benchmark_return" yaml:"benchmark_return"`
}

// AttributionRecord is the Brinson-Fachler decomposition for one category.
// Contribution == Allocation + Selection + Interaction.
type AttributionRecord struct {
	Category     string  `json:"category"`
	Contribution float64 `json:"contribution"`
	Allocation   float64 `json:"allocation"`
	Selection    float64 `json:"selection"`
	Interaction  float64 `json:"interaction"`

	PortfolioWeight float64 `json:"portfolio_weight"`
	BenchmarkWeight float64 `json:"benchmark_weight"`
	PortfolioReturn float64 `json:"portfolio_return"`
	BenchmarkReturn float64 `json:"benchmark_return"`
}

// AttributionStatus tells whether an attribution was computed
type AttributionStatus string

const (
	AttributionOK           AttributionStatus = "ok"
	AttributionNoCategories AttributionStatus = "no_categories" // 카테고리 배분 미등록, 값은 모두 0
)

// AttributionResult is the attribution of one period.
// Residual is sum(contribution) - ActiveReturn and stays within floating-point tolerance.
type AttributionResult struct {
	Status           AttributionStatus   `json:"status"`
	Records          []AttributionRecord `json:"records"`
	PortfolioReturn  float64             `json:"portfolio_return"`
	BenchmarkReturn  float64             `json:"benchmark_return"`
	ActiveReturn     float64             `json:"active_return"`
	TotalAllocation  float64             `json:"total_allocation"`
	TotalSelection   float64             `json:"total_selection"`
	TotalInteraction float64             `json:"total_interaction"`
	Residual         float64             `json:"residual"`
}

// Available reports whether the result carries a decomposition
func (a *AttributionResult) Available() bool {
	return a != nil && a.Status != AttributionNoCategories
}

// TotalContribution sums the per-category contributions
func (a *AttributionResult) TotalContribution() float64 {
	var sum float64
	for _, r := range a.Records {
		sum += r.Contribution
	}
	return sum
}
