package risk

import (
	"math"
	"sort"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/timeseries"
)

// =============================================================================
// VaR (Value at Risk) Calculation
// =============================================================================

// HistoricalVaR 과거 수익률 기반 VaR/ES 계산 (Historical Simulation)
// returns: 기간 수익률 (양수=이익, 음수=손실)
// confidence: 신뢰수준 (예: 0.95, 0.99)
// portfolioValue: 금액 환산 기준 (최근 평가액)
// 반환값: VaR/ES는 손실을 양수로 표현 (예: 0.05 = 5% 손실 가능)
func HistoricalVaR(returns []float64, confidence, portfolioValue float64) contracts.VaRResult {
	result := contracts.VaRResult{Confidence: confidence}
	if len(returns) == 0 {
		return result
	}

	// 수익률 정렬 (오름차순: 손실이 앞에)
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// 예: 95% VaR = 하위 5% 백분위수
	threshold := Percentile(sorted, (1-confidence)*100)
	result.Threshold = threshold
	result.VaR = math.Max(0, -threshold)

	// ES: threshold 이하 tail 평균
	var sum float64
	for _, r := range sorted {
		if r > threshold {
			break
		}
		sum += r
		result.TailCount++
	}
	if result.TailCount == 0 {
		// 보간 반올림으로 threshold가 최솟값 아래로 내려간 경우
		sum, result.TailCount = sorted[0], 1
	}
	result.ExpectedShortfall = math.Max(0, -sum/float64(result.TailCount))

	result.VaRAmount = result.VaR * portfolioValue
	result.ESAmount = result.ExpectedShortfall * portfolioValue
	return result
}

// =============================================================================
// Parametric VaR (정규분포 가정)
// =============================================================================

// CalculateParametricVaR 정규분포 가정 VaR 계산
// mean: 평균 수익률
// stdDev: 표준편차
// confidence: 신뢰수준
func CalculateParametricVaR(mean, stdDev, confidence float64) ParametricVaR {
	z := NormInv(confidence)

	// VaR = z*σ - μ
	varValue := math.Max(0, z*stdDev-mean)

	// ES = σ·φ(z)/(1-p) - μ
	es := math.Max(0, stdDev*NormPDF(z)/(1-confidence)-mean)

	return ParametricVaR{
		Confidence:        confidence,
		Z:                 z,
		VaR:               varValue,
		ExpectedShortfall: es,
	}
}

// ParametricFromReturns estimates mean and sample stdev from returns first
func ParametricFromReturns(returns []float64, confidence float64) ParametricVaR {
	return CalculateParametricVaR(timeseries.Mean(returns), timeseries.StdDev(returns), confidence)
}

// =============================================================================
// 통계 유틸리티
// =============================================================================

// NormInv 정규분포 역함수 (Quantile Function)
// Acklam rational approximation
func NormInv(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}

	a := []float64{
		-3.969683028665376e+01,
		2.209460984245205e+02,
		-2.759285104469687e+02,
		1.383577518672690e+02,
		-3.066479806614716e+01,
		2.506628277459239e+00,
	}
	b := []float64{
		-5.447609879822406e+01,
		1.615858368580409e+02,
		-1.556989798598866e+02,
		6.680131188771972e+01,
		-1.328068155288572e+01,
	}
	c := []float64{
		-7.784894002430293e-03,
		-3.223964580411365e-01,
		-2.400758277161838e+00,
		-2.549732539343734e+00,
		4.374664141464968e+00,
		2.938163982698783e+00,
	}
	d := []float64{
		7.784695709041462e-03,
		3.224671290700398e-01,
		2.445134137142996e+00,
		3.754408661907416e+00,
	}

	pLow := 0.02425
	pHigh := 1 - pLow

	var q, r float64

	if p < pLow {
		q = math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	} else if p <= pHigh {
		q = p - 0.5
		r = q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
	q = math.Sqrt(-2 * math.Log(1-p))
	return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
		((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
}

// NormPDF 정규분포 확률밀도함수
func NormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// Percentile 백분위수 계산 (p: 0-100)
// ⭐ SSOT: 순서통계량 사이 선형 보간, index = p/100·(n-1). 모든 VaR 수치에 동일 적용
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// 선형 보간
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
