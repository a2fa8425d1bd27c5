package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seriesFromReturns compounds returns from 100 on consecutive days beginning at offset
func seriesFromReturns(t *testing.T, offset int, returns ...float64) contracts.TimeSeries {
	t.Helper()
	points := []contracts.EquityPoint{{Timestamp: start.AddDate(0, 0, offset), Value: 100}}
	v := 100.0
	for i, r := range returns {
		v *= 1 + r
		points = append(points, contracts.EquityPoint{Timestamp: start.AddDate(0, 0, offset+i+1), Value: v})
	}
	s, err := contracts.NewTimeSeries(points)
	require.NoError(t, err)
	return s
}

func tailReturns() []float64 {
	returns := []float64{0.01, -0.05, 0.01, 0.01, -0.10}
	for len(returns) < 21 {
		returns = append(returns, 0.01)
	}
	return returns
}

func TestComputeRisk_HistoricalVaR(t *testing.T) {
	s := seriesFromReturns(t, 0, tailReturns()...)

	profile, err := ComputeRisk(s, nil, nil, 0, 252)
	require.NoError(t, err)

	assert.Equal(t, contracts.SeriesOK, profile.Status)
	assert.Equal(t, 21, profile.SampleCount)
	assert.Equal(t, contracts.PercentileMethod, profile.Method)
	require.Len(t, profile.VaR, 2)

	last, _ := s.Last()
	v95 := profile.VaR95()
	assert.Equal(t, 0.95, v95.Confidence)
	assert.InDelta(t, 0.05, v95.VaR, 1e-9)
	assert.InDelta(t, -0.05, v95.Threshold, 1e-9)
	assert.Equal(t, 2, v95.TailCount)
	assert.InDelta(t, 0.075, v95.ExpectedShortfall, 1e-9)
	assert.InDelta(t, 0.05*last.Value, v95.VaRAmount, 1e-6)

	// index 0.2 between -0.10 and -0.05
	v99 := profile.VaR99()
	assert.InDelta(t, 0.09, v99.VaR, 1e-9)
	assert.Equal(t, 1, v99.TailCount)
	assert.InDelta(t, 0.10, v99.ExpectedShortfall, 1e-9)
	assert.GreaterOrEqual(t, v99.ExpectedShortfall, v99.VaR)
}

func TestComputeRisk_NoLossesClampsAtZero(t *testing.T) {
	s := seriesFromReturns(t, 0, 0.01, 0.02, 0.03, 0.01)

	profile, err := ComputeRisk(s, nil, []float64{0.95}, 0, 252)
	require.NoError(t, err)

	v := profile.VaR95()
	assert.Equal(t, 0.0, v.VaR)
	assert.Equal(t, 0.0, v.ExpectedShortfall)
	assert.Greater(t, v.Threshold, 0.0)
}

func TestComputeRisk_InvalidConfidence(t *testing.T) {
	s := seriesFromReturns(t, 0, 0.01, -0.01)

	for _, p := range []float64{0, 1, -0.5, 1.5} {
		_, err := ComputeRisk(s, nil, []float64{0.95, p}, 0, 252)
		require.Error(t, err, "confidence %v", p)
		assert.True(t, errors.Is(err, contracts.ErrInvalidConfidence))
	}
}

func TestComputeRisk_InsufficientData(t *testing.T) {
	s := seriesFromReturns(t, 0)

	profile, err := ComputeRisk(s, nil, nil, 0, 252)
	require.NoError(t, err)
	assert.Equal(t, contracts.SeriesInsufficientData, profile.Status)
	assert.Empty(t, profile.VaR)
	assert.Equal(t, 100.0, profile.PortfolioValue)
}

func TestComputeRisk_Beta(t *testing.T) {
	ref := []float64{0.01, -0.02, 0.015, -0.005, 0.02}
	doubled := make([]float64, len(ref))
	for i, r := range ref {
		doubled[i] = 2 * r
	}

	portfolio := seriesFromReturns(t, 0, doubled...)
	refs := []contracts.BenchmarkSeries{
		{Name: "Market", Symbol: "MKT", Series: seriesFromReturns(t, 0, ref...)},
		{Symbol: "FLAT", Series: seriesFromReturns(t, 0, 0, 0, 0, 0, 0)},
		{Name: "Late", Series: seriesFromReturns(t, 4, 0.01, 0.02)},
	}

	profile, err := ComputeRisk(portfolio, refs, nil, 0, 252)
	require.NoError(t, err)
	require.Len(t, profile.Betas, 3)

	require.NotNil(t, profile.Beta)
	assert.InDelta(t, 2.0, *profile.Beta, 1e-9)
	assert.Equal(t, "Market", profile.Betas[0].Name)
	assert.Equal(t, 6, profile.Betas[0].Overlap)

	assert.Equal(t, "FLAT", profile.Betas[1].Name)
	assert.Nil(t, profile.Betas[1].Beta)

	// shares days 4 and 5 only: a single return
	assert.Equal(t, 2, profile.Betas[2].Overlap)
	assert.Nil(t, profile.Betas[2].Beta)
}

func TestCorrelation_SymmetricWithDegenerateFlag(t *testing.T) {
	ref := []float64{0.01, -0.02, 0.015, -0.005, 0.02}
	inverse := []float64{-0.01, 0.02, -0.015, 0.005, -0.02}

	m := Correlation(seriesFromReturns(t, 0, ref...), []contracts.BenchmarkSeries{
		{Name: "inverse", Series: seriesFromReturns(t, 0, inverse...)},
		{Name: "flat", Series: seriesFromReturns(t, 0, 0, 0, 0, 0, 0)},
	})

	require.Equal(t, []string{PortfolioLabel, "inverse", "flat"}, m.Labels)
	assert.Equal(t, []bool{false, false, true}, m.Degenerate)
	assert.Equal(t, 6, m.Overlap)

	for i := range m.Values {
		for j := range m.Values {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
		}
	}
	assert.Equal(t, 1.0, m.Values[0][0])
	assert.Equal(t, 0.0, m.Values[2][2])
	assert.Equal(t, 0.0, m.Values[0][2])

	c, ok := m.Get(PortfolioLabel, "inverse")
	require.True(t, ok)
	assert.InDelta(t, -1.0, c, 1e-6)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{25, 2},
		{50, 3},
		{10, 1.4},
		{100, 5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percentile(sorted, tt.p), 1e-12, "p=%v", tt.p)
	}
	assert.Equal(t, 0.0, Percentile(nil, 50))
}

func TestParametricVaR(t *testing.T) {
	r := CalculateParametricVaR(0, 0.01, 0.95)

	assert.InDelta(t, 1.6449, r.Z, 1e-3)
	assert.InDelta(t, 0.016449, r.VaR, 1e-5)
	// normal ES at 95% is sigma * 2.0627
	assert.InDelta(t, 0.020627, r.ExpectedShortfall, 1e-5)
}

func TestEngine_CheckLimits(t *testing.T) {
	s := seriesFromReturns(t, 0, tailReturns()...)
	profile, err := ComputeRisk(s, nil, nil, 0, 252)
	require.NoError(t, err)

	engine := NewEngine(RiskLimits{MaxVaR95: 0.06, MaxES95: 0.07, MaxDrawdown: 0.15}, nil)

	check := engine.CheckLimits(profile, -0.20)
	assert.False(t, check.Passed)
	// VaR95 0.05 is within 0.06; ES 0.075 and MDD 0.20 are not
	assert.Len(t, check.Violations, 2)
	assert.Equal(t, []string{LimitES95, LimitMaxDrawdown}, check.Breached)

	check = engine.CheckLimits(profile, -0.01)
	assert.Len(t, check.Violations, 1)
	assert.Contains(t, check.Violations[0], "ES95")

	relaxed := NewEngine(RiskLimits{MaxVaR95: 0.10, MaxES95: 0.10}, nil)
	assert.True(t, relaxed.CheckLimits(profile, -0.50).Passed)
}

func TestEngine_StressTest(t *testing.T) {
	engine := NewEngine(DefaultRiskLimits(), []Scenario{
		{Name: "equity crash", Shocks: map[string]float64{"Equity": -0.30, "Bonds": 0.05}},
		{Name: "broad selloff", Shocks: map[string]float64{"*": -0.10}},
	})

	exposures := ExposuresFromCategories([]contracts.CategoryInput{
		{Category: "Equity", PortfolioWeight: 0.6},
		{Category: "Bonds", PortfolioWeight: 0.4},
	})

	results := engine.StressTest(exposures, 1_000_000)
	require.Len(t, results, 2)
	assert.Equal(t, "equity crash", results[0].Scenario)
	assert.InDelta(t, -0.16, results[0].Return, 1e-12)
	assert.InDelta(t, -160_000, results[0].Amount, 1e-6)
	assert.InDelta(t, -0.10, results[1].Return, 1e-12)
}
