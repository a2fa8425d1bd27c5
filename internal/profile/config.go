// Package profile loads the analysis profile: risk-free rate, annualization,
// VaR confidence levels, default benchmarks, risk limits and stress scenarios.
package profile

import (
	"time"

	"github.com/wonny/aegis/v13/perf/internal/risk"
)

// Profile는 성과 분석의 전체 설정
type Profile struct {
	Meta       Meta           `yaml:"meta" json:"meta"`
	Analysis   Analysis       `yaml:"analysis" json:"analysis"`
	Benchmarks []BenchmarkRef `yaml:"benchmarks" json:"benchmarks"`
	Risk       Risk           `yaml:"risk" json:"risk"`
	Report     Report         `yaml:"report" json:"report"`
}

// Meta 메타 정보
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
}

// Analysis 계산 파라미터
type Analysis struct {
	RiskFreeRate     float64   `yaml:"risk_free_rate" json:"risk_free_rate"`       // 연율, fraction
	PeriodsPerYear   float64   `yaml:"periods_per_year" json:"periods_per_year"`   // 0 = 자동 감지
	ConfidenceLevels []float64 `yaml:"confidence_levels" json:"confidence_levels"` // VaR 신뢰수준
	LookbackDays     int       `yaml:"lookback_days" json:"lookback_days"`         // 기본 조회 기간
}

// BenchmarkRef names a benchmark loaded from the repository by symbol
type BenchmarkRef struct {
	Name   string `yaml:"name" json:"name"`
	Symbol string `yaml:"symbol" json:"symbol"`
}

// Risk 리스크 한도 및 스트레스 시나리오
type Risk struct {
	Limits    risk.RiskLimits `yaml:"limits" json:"limits"`
	Scenarios []risk.Scenario `yaml:"scenarios" json:"scenarios"`
}

// Report 리포트 출력 설정
type Report struct {
	TopContributors int `yaml:"top_contributors" json:"top_contributors"`
}

// Lookback returns the default analysis window: LookbackDays back from the
// start of now's UTC day, through the end of that day.
// ⭐ 일 단위 고정: 같은 날의 기본 요청은 같은 캐시 키를 가진다
func (p *Profile) Lookback(now time.Time) (time.Time, time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	return day.AddDate(0, 0, -p.Analysis.LookbackDays), day.Add(24*time.Hour - time.Nanosecond)
}

// BenchmarkSymbols lists the default benchmark symbols
func (p *Profile) BenchmarkSymbols() []string {
	out := make([]string, 0, len(p.Benchmarks))
	for _, b := range p.Benchmarks {
		out = append(out, b.Symbol)
	}
	return out
}

// RiskEngine builds the limit/stress engine from the profile
func (p *Profile) RiskEngine() *risk.Engine {
	return risk.NewEngine(p.Risk.Limits, p.Risk.Scenarios)
}

// Default returns the built-in profile used when no YAML is configured
func Default() *Profile {
	return &Profile{
		Meta: Meta{ProfileID: "default", Version: "1"},
		Analysis: Analysis{
			RiskFreeRate:     0.03,
			PeriodsPerYear:   0,
			ConfidenceLevels: []float64{0.95, 0.99},
			LookbackDays:     365,
		},
		Benchmarks: []BenchmarkRef{},
		Risk: Risk{
			Limits:    risk.DefaultRiskLimits(),
			Scenarios: []risk.Scenario{},
		},
		Report: Report{TopContributors: 3},
	}
}
