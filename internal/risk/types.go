package risk

import "github.com/wonny/aegis/v13/perf/internal/contracts"

// DefaultConfidenceLevels used when the caller supplies none
var DefaultConfidenceLevels = []float64{0.95, 0.99}

// MinOverlapReturns is the minimum number of common returns for beta/correlation
const MinOverlapReturns = 2

// PortfolioLabel is the correlation matrix label of the analyzed series
const PortfolioLabel = "portfolio"

// =============================================================================
// Parametric VaR
// =============================================================================

// ParametricVaR VaR/ES under a normal assumption.
// ⭐ SSOT: contracts.VaRConvention (손실 양수) 동일 적용
type ParametricVaR struct {
	Confidence        float64 `json:"confidence"`
	Z                 float64 `json:"z"`
	VaR               float64 `json:"var"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
}

// =============================================================================
// Risk Limits
// =============================================================================

// RiskLimits 리스크 한도 설정
// VaR/ES/MDD 한도는 양수 크기 (0.05 = 5%), MaxVolatility 0은 미사용
type RiskLimits struct {
	MaxVaR95      float64 `json:"max_var_95" yaml:"max_var_95"`
	MaxES95       float64 `json:"max_es_95" yaml:"max_es_95"`
	MaxDrawdown   float64 `json:"max_drawdown" yaml:"max_drawdown"`
	MaxVolatility float64 `json:"max_volatility" yaml:"max_volatility"`
}

// DefaultRiskLimits 기본 리스크 한도
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxVaR95:    0.05, // 5% VaR
		MaxES95:     0.07, // 7% ES
		MaxDrawdown: 0.15, // 15% MDD
	}
}

// LimitCheck 리스크 한도 체크 결과
type LimitCheck struct {
	Passed      bool       `json:"passed"`
	VaR95       float64    `json:"var_95"`
	ES95        float64    `json:"es_95"`
	MaxDrawdown float64    `json:"max_drawdown"` // <= 0
	Volatility  float64    `json:"volatility"`
	Limits      RiskLimits `json:"limits"`
	Violations  []string   `json:"violations"`
	Breached    []string   `json:"breached"` // limit keys: var_95, es_95, max_drawdown, volatility
}

// Limit keys reported in LimitCheck.Breached
const (
	LimitVaR95       = "var_95"
	LimitES95        = "es_95"
	LimitMaxDrawdown = "max_drawdown"
	LimitVolatility  = "volatility"
)

// =============================================================================
// Stress Test
// =============================================================================

// Scenario 스트레스 시나리오: 카테고리(또는 "*") 별 수익률 충격
type Scenario struct {
	Name   string             `json:"name" yaml:"name"`
	Shocks map[string]float64 `json:"shocks" yaml:"shocks"`
}

// StressResult is the weighted portfolio return under one scenario
type StressResult struct {
	Scenario string  `json:"scenario"`
	Return   float64 `json:"return"` // signed, negative = loss
	Amount   float64 `json:"amount"` // Return * portfolio value
}

// Exposure is a category weight used by stress tests
type Exposure struct {
	Category string
	Weight   float64
}

// ExposuresFromCategories takes portfolio weights from attribution inputs
func ExposuresFromCategories(categories []contracts.CategoryInput) []Exposure {
	out := make([]Exposure, 0, len(categories))
	for _, c := range categories {
		out = append(out, Exposure{Category: c.Category, Weight: c.PortfolioWeight})
	}
	return out
}
