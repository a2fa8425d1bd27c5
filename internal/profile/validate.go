package profile

import (
	"fmt"
	"math"
	"slices"

	"github.com/wonny/aegis/v13/perf/internal/risk"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(p *Profile) error {
	// === Meta ===
	if p.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}

	// === Analysis ===
	a := p.Analysis
	// fraction 규약: 3% = 0.03 (3 아님)
	if math.IsNaN(a.RiskFreeRate) || a.RiskFreeRate < -0.5 || a.RiskFreeRate > 0.5 {
		return ValidationError{"analysis.risk_free_rate", "must be a fraction in [-0.5, 0.5]"}
	}
	if a.PeriodsPerYear < 0 {
		return ValidationError{"analysis.periods_per_year", "must be >= 0 (0 = detect)"}
	}
	levels, err := risk.ValidateConfidence(a.ConfidenceLevels)
	if err != nil {
		return ValidationError{"analysis.confidence_levels", err.Error()}
	}
	if a.LookbackDays < 1 {
		return ValidationError{"analysis.lookback_days", "must be > 0"}
	}

	// === Benchmarks ===
	seen := make(map[string]bool, len(p.Benchmarks))
	for i, b := range p.Benchmarks {
		if b.Symbol == "" {
			return ValidationError{fmt.Sprintf("benchmarks[%d].symbol", i), "required"}
		}
		if seen[b.Symbol] {
			return ValidationError{fmt.Sprintf("benchmarks[%d].symbol", i), "duplicate " + b.Symbol}
		}
		seen[b.Symbol] = true
	}

	// === Risk ===
	l := p.Risk.Limits
	if err := validatePctRange(l.MaxVaR95, "risk.limits.max_var_95"); err != nil {
		return err
	}
	if err := validatePctRange(l.MaxES95, "risk.limits.max_es_95"); err != nil {
		return err
	}
	// 95% 한도는 0.95 신뢰수준이 계산될 때만 체크 가능
	if !slices.Contains(levels, 0.95) {
		if l.MaxVaR95 > 0 {
			return ValidationError{"risk.limits.max_var_95", "requires 0.95 in analysis.confidence_levels"}
		}
		if l.MaxES95 > 0 {
			return ValidationError{"risk.limits.max_es_95", "requires 0.95 in analysis.confidence_levels"}
		}
	}
	if err := validatePctRange(l.MaxDrawdown, "risk.limits.max_drawdown"); err != nil {
		return err
	}
	if l.MaxVolatility < 0 {
		return ValidationError{"risk.limits.max_volatility", "must be >= 0"}
	}

	for i, s := range p.Risk.Scenarios {
		field := fmt.Sprintf("risk.scenarios[%d]", i)
		if s.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if len(s.Shocks) == 0 {
			return ValidationError{field + ".shocks", "at least one shock required"}
		}
		for k, v := range s.Shocks {
			if v < -1 {
				return ValidationError{field + ".shocks." + k, "shock below -100%"}
			}
		}
	}

	// === Report ===
	if p.Report.TopContributors < 0 {
		return ValidationError{"report.top_contributors", "must be >= 0"}
	}

	return nil
}

// validatePctRange 퍼센트 범위 검증 (0~1)
func validatePctRange(v float64, field string) error {
	if v < 0 || v > 1 {
		return ValidationError{field, fmt.Sprintf("must be in [0, 1], got %v", v)}
	}
	return nil
}
