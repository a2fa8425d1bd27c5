// Package attribution decomposes active return into allocation, selection and interaction effects (Brinson-Fachler).
package attribution

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// WeightTolerance is how far each weight set may sum away from 1
const WeightTolerance = 1e-6

// Compute runs the Brinson-Fachler decomposition for one period.
//
//	allocation  = (wp - wb) * (rb_i - Rb)
//	selection   = wb * (rp_i - rb_i)
//	interaction = (wp - wb) * (rp_i - rb_i)
//
// Weights summing to 1 within WeightTolerance are renormalized to sum exactly
// to 1 so that sum(contribution) == Rp - Rb up to float rounding.
// Records keep the input order.
func Compute(categories []contracts.CategoryInput) (*contracts.AttributionResult, error) {
	if err := Validate(categories); err != nil {
		return nil, err
	}

	wpSum, wbSum := weightSums(categories)

	var rp, rb float64
	normalized := make([]contracts.CategoryInput, len(categories))
	for i, c := range categories {
		c.PortfolioWeight /= wpSum
		c.BenchmarkWeight /= wbSum
		normalized[i] = c
		rp += c.PortfolioWeight * c.PortfolioReturn
		rb += c.BenchmarkWeight * c.BenchmarkReturn
	}

	result := &contracts.AttributionResult{
		Status:          contracts.AttributionOK,
		Records:         make([]contracts.AttributionRecord, 0, len(categories)),
		PortfolioReturn: rp,
		BenchmarkReturn: rb,
		ActiveReturn:    rp - rb,
	}

	var total float64
	for _, c := range normalized {
		activeWeight := c.PortfolioWeight - c.BenchmarkWeight
		rec := contracts.AttributionRecord{
			Category:        c.Category,
			Allocation:      activeWeight * (c.BenchmarkReturn - rb),
			Selection:       c.BenchmarkWeight * (c.PortfolioReturn - c.BenchmarkReturn),
			Interaction:     activeWeight * (c.PortfolioReturn - c.BenchmarkReturn),
			PortfolioWeight: c.PortfolioWeight,
			BenchmarkWeight: c.BenchmarkWeight,
			PortfolioReturn: c.PortfolioReturn,
			BenchmarkReturn: c.BenchmarkReturn,
		}
		rec.Contribution = rec.Allocation + rec.Selection + rec.Interaction

		result.TotalAllocation += rec.Allocation
		result.TotalSelection += rec.Selection
		result.TotalInteraction += rec.Interaction
		total += rec.Contribution
		result.Records = append(result.Records, rec)
	}

	result.Residual = total - result.ActiveReturn
	return result, nil
}

// Unavailable is the placeholder for a portfolio without category allocations
func Unavailable() *contracts.AttributionResult {
	return &contracts.AttributionResult{
		Status:  contracts.AttributionNoCategories,
		Records: []contracts.AttributionRecord{},
	}
}

// Validate rejects input the decomposition cannot be trusted on. Nothing is rescaled.
func Validate(categories []contracts.CategoryInput) error {
	if len(categories) == 0 {
		return contracts.ErrNoCategories
	}

	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Category)
		if name == "" {
			return fmt.Errorf("%w: empty category label", contracts.ErrInvalidWeights)
		}
		if seen[name] {
			return fmt.Errorf("%w: %q", contracts.ErrDuplicateCategory, name)
		}
		seen[name] = true

		for _, v := range []float64{c.PortfolioReturn, c.BenchmarkReturn} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s has a non-finite return", contracts.ErrInvalidWeights, name)
			}
		}
	}

	wpSum, wbSum := weightSums(categories)
	if looksLikePercent(wpSum) || looksLikePercent(wbSum) {
		return fmt.Errorf("%w: weights sum to %.4f/%.4f; weights are fractions (0.40 == 40%%)",
			contracts.ErrInvalidWeights, wpSum, wbSum)
	}

	for _, c := range categories {
		for _, w := range []float64{c.PortfolioWeight, c.BenchmarkWeight} {
			if math.IsNaN(w) || w < 0 || w > 1 {
				return fmt.Errorf("%w: %s weight %v outside [0, 1]", contracts.ErrInvalidWeights, c.Category, w)
			}
		}
	}

	if math.Abs(wpSum-1) > WeightTolerance {
		return fmt.Errorf("%w: portfolio weights sum to %.8f, want 1", contracts.ErrInvalidWeights, wpSum)
	}
	if math.Abs(wbSum-1) > WeightTolerance {
		return fmt.Errorf("%w: benchmark weights sum to %.8f, want 1", contracts.ErrInvalidWeights, wbSum)
	}
	return nil
}

func weightSums(categories []contracts.CategoryInput) (wp, wb float64) {
	for _, c := range categories {
		wp += c.PortfolioWeight
		wb += c.BenchmarkWeight
	}
	return wp, wb
}

func looksLikePercent(sum float64) bool {
	return math.Abs(sum-100) < 1
}

// TopContributors returns the records with the highest contribution
func TopContributors(result *contracts.AttributionResult, limit int) []contracts.AttributionRecord {
	return rank(result, limit, func(a, b float64) bool { return a > b })
}

// BottomContributors returns the records with the lowest contribution
func BottomContributors(result *contracts.AttributionResult, limit int) []contracts.AttributionRecord {
	return rank(result, limit, func(a, b float64) bool { return a < b })
}

func rank(result *contracts.AttributionResult, limit int, better func(a, b float64) bool) []contracts.AttributionRecord {
	if result == nil || len(result.Records) == 0 || limit <= 0 {
		return []contracts.AttributionRecord{}
	}

	sorted := make([]contracts.AttributionRecord, len(result.Records))
	copy(sorted, result.Records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return better(sorted[i].Contribution, sorted[j].Contribution)
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit]
}
