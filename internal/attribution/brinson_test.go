package attribution

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

func sampleCategories() []contracts.CategoryInput {
	return []contracts.CategoryInput{
		{Category: "Crypto", PortfolioWeight: 0.40, PortfolioReturn: 0.12, BenchmarkWeight: 0.30, BenchmarkReturn: 0.10},
		{Category: "Stocks", PortfolioWeight: 0.35, PortfolioReturn: 0.05, BenchmarkWeight: 0.50, BenchmarkReturn: 0.06},
		{Category: "DeFi", PortfolioWeight: 0.15, PortfolioReturn: -0.04, BenchmarkWeight: 0.10, BenchmarkReturn: 0.02},
		{Category: "NFTs", PortfolioWeight: 0.10, PortfolioReturn: 0.20, BenchmarkWeight: 0.10, BenchmarkReturn: 0.15},
	}
}

func assertIdentity(t *testing.T, r *contracts.AttributionResult) {
	t.Helper()
	tol := 1e-9 * math.Max(1, math.Abs(r.ActiveReturn))
	assert.InDelta(t, r.ActiveReturn, r.TotalContribution(), tol)
	assert.InDelta(t, 0, r.Residual, tol)
	for _, rec := range r.Records {
		assert.InDelta(t, rec.Allocation+rec.Selection+rec.Interaction, rec.Contribution, 1e-15)
	}
}

func TestCompute_BrinsonFachler(t *testing.T) {
	r, err := Compute(sampleCategories())
	require.NoError(t, err)
	assert.Equal(t, contracts.AttributionOK, r.Status)

	// Rp = .048+.0175-.006+.02, Rb = .03+.03+.002+.015
	assert.InDelta(t, 0.0795, r.PortfolioReturn, 1e-12)
	assert.InDelta(t, 0.077, r.BenchmarkReturn, 1e-12)
	assert.InDelta(t, 0.0025, r.ActiveReturn, 1e-12)

	require.Len(t, r.Records, 4)
	crypto := r.Records[0]
	assert.Equal(t, "Crypto", crypto.Category)
	assert.InDelta(t, 0.10*(0.10-0.077), crypto.Allocation, 1e-12)
	assert.InDelta(t, 0.30*0.02, crypto.Selection, 1e-12)
	assert.InDelta(t, 0.10*0.02, crypto.Interaction, 1e-12)

	nfts := r.Records[3]
	assert.InDelta(t, 0, nfts.Allocation, 1e-12)
	assert.InDelta(t, 0, nfts.Interaction, 1e-12)

	assertIdentity(t, r)
}

func TestCompute_IdentityHoldsForRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(8)
		wp := randomWeights(rng, n)
		wb := randomWeights(rng, n)

		categories := make([]contracts.CategoryInput, n)
		for i := range categories {
			categories[i] = contracts.CategoryInput{
				Category:        string(rune('A' + i)),
				PortfolioWeight: wp[i],
				BenchmarkWeight: wb[i],
				PortfolioReturn: rng.NormFloat64() * 0.2,
				BenchmarkReturn: rng.NormFloat64() * 0.2,
			}
		}

		r, err := Compute(categories)
		require.NoError(t, err, "trial %d", trial)
		assertIdentity(t, r)
	}
}

func randomWeights(rng *rand.Rand, n int) []float64 {
	w := make([]float64, n)
	var sum float64
	for i := range w {
		w[i] = rng.Float64()
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func TestCompute_RenormalizesWithinTolerance(t *testing.T) {
	categories := []contracts.CategoryInput{
		{Category: "A", PortfolioWeight: 0.5000004, PortfolioReturn: 0.10, BenchmarkWeight: 0.5, BenchmarkReturn: 0.05},
		{Category: "B", PortfolioWeight: 0.5, PortfolioReturn: -0.02, BenchmarkWeight: 0.5, BenchmarkReturn: 0.01},
	}

	r, err := Compute(categories)
	require.NoError(t, err)
	assertIdentity(t, r)
	assert.InDelta(t, 1.0, r.Records[0].PortfolioWeight+r.Records[1].PortfolioWeight, 1e-15)
}

func TestCompute_Validation(t *testing.T) {
	tests := []struct {
		name       string
		categories []contracts.CategoryInput
		want       error
		contains   string
	}{
		{
			name: "empty",
			want: contracts.ErrNoCategories,
		},
		{
			name: "duplicate",
			categories: []contracts.CategoryInput{
				{Category: "A", PortfolioWeight: 0.5, BenchmarkWeight: 0.5},
				{Category: "A", PortfolioWeight: 0.5, BenchmarkWeight: 0.5},
			},
			want: contracts.ErrDuplicateCategory,
		},
		{
			name: "percent style",
			categories: []contracts.CategoryInput{
				{Category: "A", PortfolioWeight: 40, BenchmarkWeight: 50},
				{Category: "B", PortfolioWeight: 60, BenchmarkWeight: 50},
			},
			want:     contracts.ErrInvalidWeights,
			contains: "fractions",
		},
		{
			name: "negative weight",
			categories: []contracts.CategoryInput{
				{Category: "A", PortfolioWeight: -0.2, BenchmarkWeight: 0.5},
				{Category: "B", PortfolioWeight: 1.2, BenchmarkWeight: 0.5},
			},
			want:     contracts.ErrInvalidWeights,
			contains: "outside [0, 1]",
		},
		{
			name: "portfolio sum",
			categories: []contracts.CategoryInput{
				{Category: "A", PortfolioWeight: 0.5, BenchmarkWeight: 0.5},
				{Category: "B", PortfolioWeight: 0.4, BenchmarkWeight: 0.5},
			},
			want:     contracts.ErrInvalidWeights,
			contains: "portfolio weights",
		},
		{
			name: "benchmark sum",
			categories: []contracts.CategoryInput{
				{Category: "A", PortfolioWeight: 0.5, BenchmarkWeight: 0.7},
				{Category: "B", PortfolioWeight: 0.5, BenchmarkWeight: 0.5},
			},
			want:     contracts.ErrInvalidWeights,
			contains: "benchmark weights",
		},
		{
			name: "non-finite return",
			categories: []contracts.CategoryInput{
				{Category: "A", PortfolioWeight: 1, BenchmarkWeight: 1, PortfolioReturn: math.NaN()},
			},
			want: contracts.ErrInvalidWeights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.categories)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestUnavailable(t *testing.T) {
	r := Unavailable()
	assert.Equal(t, contracts.AttributionNoCategories, r.Status)
	assert.False(t, r.Available())
	assert.NotNil(t, r.Records)
	assert.Empty(t, TopContributors(r, 3))
}

func TestContributors(t *testing.T) {
	r, err := Compute(sampleCategories())
	require.NoError(t, err)

	top := TopContributors(r, 2)
	require.Len(t, top, 2)
	assert.GreaterOrEqual(t, top[0].Contribution, top[1].Contribution)

	bottom := BottomContributors(r, 10)
	require.Len(t, bottom, 4)
	assert.Equal(t, "DeFi", bottom[0].Category)

	assert.Empty(t, TopContributors(nil, 3))
	assert.Empty(t, TopContributors(r, 0))
}
