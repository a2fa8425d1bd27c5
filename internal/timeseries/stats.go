package timeseries

import "math"

// zeroTolerance below which a standard deviation is treated as zero risk
const zeroTolerance = 1e-12

// Returns converts values into simple period returns (len = len(values)-1)
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = (values[i] - values[i-1]) / values[i-1]
	}
	return out
}

// Mean 평균 계산
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev 표본 표준편차 (n-1)
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Variance 표본 분산 (n-1)
func Variance(values []float64) float64 {
	return Covariance(values, values)
}

// Covariance sample covariance of two equally long slices
func Covariance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}

	ma, mb := Mean(a[:n]), Mean(b[:n])
	var sum float64
	for i := 0; i < n; i++ {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(n-1)
}

// Correlation Pearson correlation; ok is false when either side has zero variance
func Correlation(a, b []float64) (float64, bool) {
	sa, sb := StdDev(a), StdDev(b)
	if sa < zeroTolerance || sb < zeroTolerance {
		return 0, false
	}
	c := Covariance(a, b) / (sa * sb)
	// clamp float noise
	return math.Max(-1, math.Min(1, c)), true
}

// IsZeroRisk reports whether a standard deviation should be read as zero
func IsZeroRisk(stdDev float64) bool {
	return stdDev < zeroTolerance
}
