package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/profile"
	"github.com/wonny/aegis/v13/perf/pkg/logger"
	"github.com/wonny/aegis/v13/perf/pkg/metrics"
	"github.com/wonny/aegis/v13/perf/pkg/redis"
)

// ReportCache stores computed results by request key
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Limiter bounds fresh analyses per portfolio
type Limiter interface {
	Allow(ctx context.Context, cfg redis.RateLimitConfig, subject string) (bool, int, error)
}

// Analyzer runs analyses against the store
// ⭐ SSOT: 성과 분석 서비스 진입점은 여기서만
type Analyzer struct {
	store       Store
	profile     *profile.Profile
	profileHash string
	logger      *logger.Logger

	cache     ReportCache
	cacheTTL  time.Duration
	limiter   Limiter
	publisher contracts.ReportPublisher
	metrics   *metrics.Metrics
	clock     func() time.Time

	concurrency int
}

// NewAnalyzer creates a new analyzer. Cache, limiter, publisher and metrics are optional.
func NewAnalyzer(store Store, prof *profile.Profile, log *logger.Logger) (*Analyzer, error) {
	if prof == nil {
		prof = profile.Default()
	}
	hash, err := profile.Hash(prof)
	if err != nil {
		return nil, fmt.Errorf("hash profile: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Analyzer{
		store:       store,
		profile:     prof,
		profileHash: hash,
		logger:      log.Component("audit.analyzer"),
		cacheTTL:    redis.TTLMedium,
		clock:       time.Now,
		concurrency: 4,
	}, nil
}

// WithCache enables result caching
func (a *Analyzer) WithCache(cache ReportCache, ttl time.Duration) *Analyzer {
	a.cache = cache
	if ttl > 0 {
		a.cacheTTL = ttl
	}
	return a
}

// WithLimiter enables per-portfolio rate limiting of uncached analyses
func (a *Analyzer) WithLimiter(limiter Limiter) *Analyzer {
	a.limiter = limiter
	return a
}

// WithPublisher ships every fresh report to publisher
func (a *Analyzer) WithPublisher(publisher contracts.ReportPublisher) *Analyzer {
	a.publisher = publisher
	return a
}

// WithMetrics records Prometheus metrics
func (a *Analyzer) WithMetrics(m *metrics.Metrics) *Analyzer {
	a.metrics = m
	return a
}

// WithClock overrides the clock used for default ranges and GeneratedAt
func (a *Analyzer) WithClock(clock func() time.Time) *Analyzer {
	a.clock = clock
	return a
}

// WithConcurrency sets the AnalyzeBatch fan-out limit
func (a *Analyzer) WithConcurrency(n int) *Analyzer {
	if n > 0 {
		a.concurrency = n
	}
	return a
}

// Profile returns the analysis profile in use
func (a *Analyzer) Profile() *profile.Profile {
	return a.profile
}

// Normalize validates req and fills in the profile defaults
func (a *Analyzer) Normalize(req contracts.AnalysisRequest) (contracts.AnalysisRequest, error) {
	req.PortfolioID = strings.TrimSpace(req.PortfolioID)
	if req.PortfolioID == "" {
		return req, fmt.Errorf("%w: portfolio id is required", contracts.ErrInvalidRequest)
	}
	if !req.Range.Valid() {
		return req, fmt.Errorf("%w: range from is after to", contracts.ErrInvalidRequest)
	}
	if req.Range.From.IsZero() && req.Range.To.IsZero() {
		from, to := a.profile.Lookback(a.clock())
		req.Range = contracts.TimeRange{From: from, To: to}
	}
	if req.Benchmarks == nil {
		req.Benchmarks = a.profile.BenchmarkSymbols()
	}
	return req, nil
}

// CacheKey identifies a normalized request under the current profile
func (a *Analyzer) CacheKey(req contracts.AnalysisRequest) string {
	return redis.ReportKey(req.PortfolioID, req.Range.Key(), req.Benchmarks, a.profileHash)
}

// Analyze returns the result for req: cached when possible, otherwise
// loaded, computed, saved, published and cached.
func (a *Analyzer) Analyze(ctx context.Context, req contracts.AnalysisRequest) (*Result, error) {
	start := time.Now()

	req, err := a.Normalize(req)
	if err != nil {
		a.outcome("invalid")
		return nil, err
	}

	log := a.logger.WithFields(map[string]interface{}{
		"portfolio_id": req.PortfolioID,
		"range":        req.Range.Key(),
		"benchmarks":   strings.Join(req.Benchmarks, ","),
	})

	// 1. 캐시 조회
	key := a.CacheKey(req)
	if cached, ok := a.lookup(ctx, key, log); ok {
		a.outcome("cached")
		return cached, nil
	}

	// 2. 레이트 리밋 (캐시 미스만)
	if a.limiter != nil {
		allowed, _, err := a.limiter.Allow(ctx, redis.AnalysisRateLimit, req.PortfolioID)
		if err != nil {
			log.WithError(err).Warn("Rate limiter unavailable, continuing")
		} else if !allowed {
			a.outcome("rate_limited")
			return nil, fmt.Errorf("%w: portfolio %s", contracts.ErrRateLimited, req.PortfolioID)
		}
	}

	// 3. 데이터 로드
	stageStart := time.Now()
	input, err := a.load(ctx, req)
	if err != nil {
		a.outcome("load_failed")
		return nil, err
	}
	a.observe("load", stageStart)

	// 4. 계산
	stageStart = time.Now()
	input.GeneratedAt = a.clock()
	result, err := Compute(input, a.profile)
	if err != nil {
		a.outcome("compute_failed")
		return nil, fmt.Errorf("analyze %s: %w", req.PortfolioID, err)
	}
	a.observe("compute", stageStart)

	// 5. 저장
	stageStart = time.Now()
	if err := a.store.SaveReport(ctx, result.Report); err != nil {
		a.outcome("save_failed")
		return nil, fmt.Errorf("save report: %w", err)
	}
	a.observe("save", stageStart)

	// 6. 발행 (실패해도 리포트는 유효)
	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, result.Report); err != nil {
			log.WithError(err).Warn("Failed to publish report")
			if a.metrics != nil {
				a.metrics.PublishFailures.Inc()
			}
		}
	}

	// 7. 캐시 저장
	if a.cache != nil {
		if err := a.cache.Set(ctx, key, result, a.cacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache report")
		}
	}

	a.record(result, log)
	a.observe("total", start)
	a.outcome("computed")

	return result, nil
}

// Latest returns the most recent stored report of a portfolio
func (a *Analyzer) Latest(ctx context.Context, portfolioID string) (*contracts.PerformanceReport, error) {
	if strings.TrimSpace(portfolioID) == "" {
		return nil, fmt.Errorf("%w: portfolio id is required", contracts.ErrInvalidRequest)
	}
	return a.store.GetLatestReport(ctx, portfolioID)
}

func (a *Analyzer) lookup(ctx context.Context, key string, log *logger.Logger) (*Result, bool) {
	if a.cache == nil {
		return nil, false
	}

	var cached Result
	found, err := a.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		log.WithError(err).Warn("Report cache lookup failed")
		a.cacheLookup(metrics.CacheError)
		return nil, false
	case !found || cached.Report == nil:
		a.cacheLookup(metrics.CacheMiss)
		return nil, false
	default:
		a.cacheLookup(metrics.CacheHit)
		log.Debug("Report served from cache")
		return &cached, true
	}
}

// load fetches the four inputs concurrently
func (a *Analyzer) load(ctx context.Context, req contracts.AnalysisRequest) (Input, error) {
	in := Input{PortfolioID: req.PortfolioID, Range: req.Range}
	from, to := req.Range.From, req.Range.To

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		trades, err := a.store.GetTrades(gctx, req.PortfolioID, from, to)
		if err != nil {
			return fmt.Errorf("load trades: %w", err)
		}
		in.Trades = trades
		return nil
	})
	g.Go(func() error {
		equity, err := a.store.GetEquityCurve(gctx, req.PortfolioID, from, to)
		if err != nil {
			return fmt.Errorf("load equity curve: %w", err)
		}
		in.Equity = equity
		return nil
	})
	g.Go(func() error {
		benchmarks, err := a.store.GetBenchmarks(gctx, req.Benchmarks, from, to)
		if err != nil {
			return fmt.Errorf("load benchmarks: %w", err)
		}
		in.Benchmarks = benchmarks
		return nil
	})
	g.Go(func() error {
		categories, err := a.store.GetCategoryAllocations(gctx, req.PortfolioID, from, to)
		if err != nil {
			return fmt.Errorf("load category allocations: %w", err)
		}
		in.Categories = categories
		return nil
	})

	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	if in.Equity.Len() == 0 {
		return Input{}, fmt.Errorf("%w: no equity curve for portfolio %s in %s",
			contracts.ErrNotFound, req.PortfolioID, req.Range.Key())
	}
	return in, nil
}

// record logs and counts the noteworthy parts of a fresh result
func (a *Analyzer) record(result *Result, log *logger.Logger) {
	rep := result.Report
	excluded := rep.ExcludedBenchmarks()

	log.WithFields(map[string]interface{}{
		"report_id":    rep.ID,
		"total_return": rep.Performance.Series.TotalReturn,
		"max_drawdown": rep.Performance.Series.MaxDrawdown,
		"var_95":       rep.Risk.VaR95().VaR,
		"excluded":     len(excluded),
	}).Info("Report generated")

	if len(excluded) > 0 {
		log.WithField("excluded", excluded).Warn("Benchmarks excluded for insufficient overlap")
	}
	if !rep.Attribution.Available() {
		log.Warn("No category allocations, attribution skipped")
	}
	if result.Limits != nil && !result.Limits.Passed {
		log.WithField("violations", result.Limits.Violations).Warn("Risk limits breached")
	}

	if a.metrics == nil {
		return
	}
	a.metrics.ExcludedBench.Add(float64(len(excluded)))
	if result.Limits != nil {
		for _, limit := range result.Limits.Breached {
			a.metrics.LimitViolations.WithLabelValues(limit).Inc()
		}
	}
}

func (a *Analyzer) observe(stage string, start time.Time) {
	if a.metrics != nil {
		a.metrics.ObserveStage(stage, start)
	}
}

func (a *Analyzer) outcome(outcome string) {
	if a.metrics != nil {
		a.metrics.AnalysisTotal.WithLabelValues(outcome).Inc()
	}
}

func (a *Analyzer) cacheLookup(result string) {
	if a.metrics != nil {
		a.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// IsClientError reports whether err stems from the request rather than the system
func IsClientError(err error) bool {
	return errors.Is(err, contracts.ErrInvalidRequest) ||
		errors.Is(err, contracts.ErrInvalidTrade) ||
		errors.Is(err, contracts.ErrInvalidSeries) ||
		errors.Is(err, contracts.ErrInvalidConfidence) ||
		errors.Is(err, contracts.ErrInvalidWeights) ||
		errors.Is(err, contracts.ErrNoCategories) ||
		errors.Is(err, contracts.ErrDuplicateCategory)
}
