package contracts

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
const VaRConvention = "loss_positive"

// PercentileMethod names the quantile definition used by every VaR figure
const PercentileMethod = "linear_interpolation_type7"

// VaRResult is historical VaR and Expected Shortfall at one confidence level.
// VaR/ES are loss-positive fractions; Amount fields are scaled by the latest portfolio value.
type VaRResult struct {
	Confidence        float64 `json:"confidence"`
	Threshold         float64 `json:"threshold"` // signed (1-p) percentile return
	VaR               float64 `json:"var"`
	VaRAmount         float64 `json:"var_amount"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
	ESAmount          float64 `json:"es_amount"`
	TailCount         int     `json:"tail_count"` // returns at or below Threshold
}

// ReferenceBeta is the beta of the portfolio against one reference series
type ReferenceBeta struct {
	Name    string   `json:"name"`
	Beta    *float64 `json:"beta"` // nil when reference variance is 0 or overlap too short
	Overlap int      `json:"overlap"`
}

// CorrelationMatrix is a symmetric Pearson matrix over Labels
type CorrelationMatrix struct {
	Labels     []string    `json:"labels"`
	Values     [][]float64 `json:"values"`
	Degenerate []bool      `json:"degenerate"` // zero-variance series; row/column entries are 0
	Overlap    int         `json:"overlap"`    // common timestamps used
}

// Get returns the correlation between labels a and b
func (m CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, l := range m.Labels {
		if l == a {
			i = k
		}
		if l == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// RiskProfile is the output of the risk calculator
type RiskProfile struct {
	Status         SeriesStatus      `json:"status"`
	SampleCount    int               `json:"sample_count"`
	PortfolioValue float64           `json:"portfolio_value"`
	Method         string            `json:"method"`
	VaR            []VaRResult       `json:"var"`
	Volatility     float64           `json:"volatility"` // annualized
	Beta           *float64          `json:"beta"`       // against the first reference
	Betas          []ReferenceBeta   `json:"betas"`
	Correlation    CorrelationMatrix `json:"correlation"`
}

// AtConfidence returns the VaR result for confidence p
func (r *RiskProfile) AtConfidence(p float64) (VaRResult, bool) {
	for _, v := range r.VaR {
		if v.Confidence == p {
			return v, true
		}
	}
	return VaRResult{}, false
}

// VaR95 returns the 95% result (zero value when not computed)
func (r *RiskProfile) VaR95() VaRResult {
	v, _ := r.AtConfidence(0.95)
	return v
}

// VaR99 returns the 99% result (zero value when not computed)
func (r *RiskProfile) VaR99() VaRResult {
	v, _ := r.AtConfidence(0.99)
	return v
}
