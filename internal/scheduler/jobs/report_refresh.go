package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/aegis/v13/perf/internal/audit"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/pkg/logger"
)

// BatchAnalyzer runs a set of analyses
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, requests []contracts.AnalysisRequest) []audit.BatchResult
}

// ReportRefreshJob recomputes the default report of every configured portfolio
// ⭐ SSOT: 정기 리포트 갱신 스케줄은 이 Job에서만
type ReportRefreshJob struct {
	analyzer   BatchAnalyzer
	portfolios []string
	schedule   string
	logger     *logger.Logger
}

// NewReportRefreshJob creates a new report refresh job
func NewReportRefreshJob(analyzer BatchAnalyzer, portfolios []string, schedule string, log *logger.Logger) *ReportRefreshJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ReportRefreshJob{
		analyzer:   analyzer,
		portfolios: portfolios,
		schedule:   schedule,
		logger:     log.Component("jobs.report_refresh"),
	}
}

// Name returns the job name
func (j *ReportRefreshJob) Name() string {
	return "report_refresh"
}

// Schedule returns the cron schedule (ANALYTICS_REFRESH_SCHEDULE, default 5:30 PM daily)
func (j *ReportRefreshJob) Schedule() string {
	return j.schedule
}

// Run analyzes every portfolio over the profile lookback with the profile benchmarks.
// Retries re-run the whole batch; reports that already succeeded come from cache.
func (j *ReportRefreshJob) Run(ctx context.Context) error {
	if len(j.portfolios) == 0 {
		j.logger.Warn("No portfolios configured, nothing to refresh")
		return nil
	}

	j.logger.WithField("portfolios", len(j.portfolios)).Info("Starting scheduled report refresh")

	requests := make([]contracts.AnalysisRequest, len(j.portfolios))
	for i, id := range j.portfolios {
		requests[i] = contracts.AnalysisRequest{PortfolioID: id}
	}

	results := j.analyzer.AnalyzeBatch(ctx, requests)
	failed := audit.Failed(results)
	if failed > 0 {
		return fmt.Errorf("%d of %d report refreshes failed", failed, len(results))
	}

	j.logger.WithField("portfolios", len(results)).Info("Report refresh completed")
	return nil
}
