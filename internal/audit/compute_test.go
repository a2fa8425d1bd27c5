package audit

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/profile"
	"github.com/wonny/aegis/v13/perf/internal/risk"
)

var day0 = time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

func series(t *testing.T, offset int, values ...float64) contracts.TimeSeries {
	t.Helper()
	points := make([]contracts.EquityPoint, len(values))
	for i, v := range values {
		points[i] = contracts.EquityPoint{Timestamp: day0.AddDate(0, 0, offset+i), Value: v}
	}
	s, err := contracts.NewTimeSeries(points)
	require.NoError(t, err)
	return s
}

func closed(symbol string, day int, pnl int64) contracts.Trade {
	result := decimal.NewFromInt(pnl)
	return contracts.Trade{
		Symbol:      symbol,
		Side:        contracts.SideSell,
		Quantity:    decimal.NewFromInt(1),
		Price:       decimal.NewFromInt(100),
		Timestamp:   day0.AddDate(0, 0, day),
		RealizedPnL: &result,
	}
}

func categories() []contracts.CategoryInput {
	return []contracts.CategoryInput{
		{Category: "Crypto", PortfolioWeight: 0.6, PortfolioReturn: 0.08, BenchmarkWeight: 0.5, BenchmarkReturn: 0.05},
		{Category: "Stocks", PortfolioWeight: 0.4, PortfolioReturn: 0.02, BenchmarkWeight: 0.5, BenchmarkReturn: 0.03},
	}
}

func fixtureInput(t *testing.T) Input {
	t.Helper()
	return Input{
		PortfolioID: "pf-1",
		Trades:      []contracts.Trade{closed("BTC", 0, 120), closed("ETH", 2, -40)},
		Equity:      series(t, 0, 10000, 10250, 10180, 10420, 10300, 10600),
		Benchmarks: []contracts.BenchmarkSeries{
			{Name: "Market", Symbol: "MKT", Series: series(t, 0, 500, 505, 498, 510, 512, 515)},
			{Name: "Stub", Symbol: "STB", Series: series(t, 5, 1000)},
		},
		Categories: categories(),
	}
}

func testProfile() *profile.Profile {
	p := profile.Default()
	p.Analysis.RiskFreeRate = 0.02
	p.Analysis.PeriodsPerYear = 252
	p.Benchmarks = []profile.BenchmarkRef{{Name: "Market", Symbol: "MKT"}, {Name: "Stub", Symbol: "STB"}}
	p.Risk.Limits = risk.RiskLimits{MaxVaR95: 0.05, MaxES95: 0.07, MaxDrawdown: 0.01}
	p.Risk.Scenarios = []risk.Scenario{
		{Name: "crash", Shocks: map[string]float64{"Crypto": -0.5, "*": -0.1}},
	}
	return p
}

func TestCompute(t *testing.T) {
	result, err := Compute(fixtureInput(t), testProfile())
	require.NoError(t, err)

	rep := result.Report
	require.NotNil(t, rep)
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "pf-1", rep.PortfolioID)
	assert.Equal(t, day0.AddDate(0, 0, 5), rep.GeneratedAt)

	assert.Equal(t, 2, rep.Performance.Trades.TotalTrades)
	assert.Equal(t, 1, rep.Performance.Trades.WinningTrades)
	assert.InDelta(t, 0.06, rep.Performance.Series.TotalReturn, 1e-9)
	assert.InDelta(t, 10300.0/10420-1, rep.Performance.Series.MaxDrawdown, 1e-9)

	require.Len(t, rep.Comparisons, 2)
	assert.Equal(t, []string{"Stub"}, rep.ExcludedBenchmarks())
	require.NotNil(t, rep.Risk.Beta)
	assert.Len(t, rep.Risk.Correlation.Labels, 2)

	assert.Len(t, rep.Attribution.Records, 2)
	assert.InDelta(t, 0.0, rep.Attribution.Residual, 1e-9)
}

func TestCompute_RiskChecks(t *testing.T) {
	result, err := Compute(fixtureInput(t), testProfile())
	require.NoError(t, err)

	require.NotNil(t, result.Limits)
	assert.False(t, result.Limits.Passed)
	assert.Equal(t, []string{risk.LimitMaxDrawdown}, result.Limits.Breached)

	require.Len(t, result.Stress, 1)
	assert.Equal(t, "crash", result.Stress[0].Scenario)
	assert.InDelta(t, -0.34, result.Stress[0].Return, 1e-9)
	assert.InDelta(t, -0.34*10600, result.Stress[0].Amount, 1e-6)
}

func TestCompute_Deterministic(t *testing.T) {
	first, err := Compute(fixtureInput(t), testProfile())
	require.NoError(t, err)
	second, err := Compute(fixtureInput(t), testProfile())
	require.NoError(t, err)

	assert.Equal(t, first.Report.ID, second.Report.ID)
	assert.Equal(t, first.Limits, second.Limits)
}

func TestCompute_Window(t *testing.T) {
	in := fixtureInput(t)
	in.Range = contracts.TimeRange{From: day0.AddDate(0, 0, 1), To: day0.AddDate(0, 0, 3)}

	result, err := Compute(in, testProfile())
	require.NoError(t, err)

	rep := result.Report
	assert.Equal(t, 3, rep.Performance.Series.Points)
	assert.InDelta(t, 10420.0/10250-1, rep.Performance.Series.TotalReturn, 1e-9)
	assert.Equal(t, 1, rep.Performance.Trades.TotalTrades)
	assert.Equal(t, in.Range, rep.Range)
	// Stub has no points inside the window
	assert.Equal(t, []string{"Stub"}, rep.ExcludedBenchmarks())
}

func TestCompute_NilProfile(t *testing.T) {
	result, err := Compute(fixtureInput(t), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Stress)
	assert.InDelta(t, profile.Default().Analysis.RiskFreeRate, result.Report.Performance.Series.RiskFreeRate, 1e-12)
}

func TestCompute_NoCategoriesFlagsAttribution(t *testing.T) {
	in := fixtureInput(t)
	in.Categories = nil

	result, err := Compute(in, testProfile())
	require.NoError(t, err)

	a := result.Report.Attribution
	assert.Equal(t, contracts.AttributionNoCategories, a.Status)
	assert.False(t, a.Available())
	assert.Empty(t, a.Records)
	assert.Equal(t, 0.0, a.ActiveReturn)
	assert.NotEmpty(t, result.Report.ID)
}

func TestCompute_MinuteSeries(t *testing.T) {
	base := time.Date(2024, 2, 5, 9, 30, 0, 0, time.UTC)
	equity, err := contracts.NewTimeSeries([]contracts.EquityPoint{
		{Timestamp: base, Value: 10000},
		{Timestamp: base.Add(time.Minute), Value: 10100},
		{Timestamp: base.Add(2 * time.Minute), Value: 10500},
	})
	require.NoError(t, err)

	in := Input{
		PortfolioID: "pf-intraday",
		Equity:      equity,
		Categories: []contracts.CategoryInput{
			{Category: "Stocks", PortfolioWeight: 1, PortfolioReturn: 0.05, BenchmarkWeight: 1, BenchmarkReturn: 0.03},
		},
	}

	result, err := Compute(in, profile.Default())
	require.NoError(t, err)

	s := result.Report.Performance.Series
	assert.Equal(t, contracts.FrequencyMinute, s.Frequency)
	assert.Equal(t, contracts.RatioUnbounded, s.AnnualizedStatus)
	assert.Equal(t, contracts.RatioUnbounded, s.Calmar.Status)
	assert.NotEmpty(t, result.Report.ID)

	_, err = json.Marshal(result)
	require.NoError(t, err)
}

func TestCompute_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   error
	}{
		{
			name: "range reversed",
			mutate: func(in *Input) {
				in.Range = contracts.TimeRange{From: day0.AddDate(0, 0, 3), To: day0}
			},
			want: contracts.ErrInvalidRequest,
		},
		{
			name: "invalid trade",
			mutate: func(in *Input) {
				in.Trades[0].Quantity = decimal.Zero
				in.Trades[0].RealizedPnL = nil
			},
			want: contracts.ErrInvalidTrade,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := fixtureInput(t)
			tt.mutate(&in)

			_, err := Compute(in, testProfile())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
