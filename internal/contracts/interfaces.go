package contracts

import "context"

// ReportStore persists assembled reports
// ⭐ SSOT: 리포트 저장소 인터페이스
type ReportStore interface {
	SaveReport(ctx context.Context, report *PerformanceReport) error
	GetLatestReport(ctx context.Context, portfolioID string) (*PerformanceReport, error)
}

// ReportPublisher ships finished reports to downstream consumers (dashboards, export jobs)
type ReportPublisher interface {
	Publish(ctx context.Context, report *PerformanceReport) error
}

// AnalysisRequest identifies one analysis: (portfolio, time range, benchmark set).
// A zero Range or nil Benchmarks falls back to the analysis profile defaults.
type AnalysisRequest struct {
	PortfolioID string    `json:"portfolio_id"`
	Range       TimeRange `json:"range"`
	Benchmarks  []string  `json:"benchmarks"`
}
