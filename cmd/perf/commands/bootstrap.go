package commands

import (
	"context"
	"fmt"

	"github.com/wonny/aegis/v13/perf/internal/audit"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/profile"
	"github.com/wonny/aegis/v13/perf/internal/publish"
	"github.com/wonny/aegis/v13/perf/pkg/config"
	"github.com/wonny/aegis/v13/perf/pkg/database"
	"github.com/wonny/aegis/v13/perf/pkg/logger"
	"github.com/wonny/aegis/v13/perf/pkg/metrics"
	"github.com/wonny/aegis/v13/perf/pkg/redis"
)

// app holds the wired service graph shared by api, analyze and scheduler
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	repo     *audit.Repository
	redis    *redis.Client
	metrics  *metrics.Metrics
	kafka    *publish.KafkaPublisher
	hub      *publish.Hub
	analyzer *audit.Analyzer
}

type appOptions struct {
	withHub bool // websocket 스트림 (api 전용)
}

// newApp loads config and connects every backing service
// 1. config → 2. logger → 3. database (+schema) → 4. redis → 5. metrics → 6. publishers → 7. analyzer
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	a := &app{cfg: cfg, log: logger.New(cfg)}

	prof, err := loadProfile(cfg)
	if err != nil {
		return nil, err
	}

	a.db, err = database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.repo = audit.NewRepository(a.db.Pool)
	if err := a.repo.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	a.log.Info("Connected to database")

	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		// 캐시/리밋 없이도 분석은 가능
		a.log.WithError(err).Warn("Redis unavailable, running without cache")
		a.redis = redis.Disabled()
	}

	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	var publishers publish.Multi
	if cfg.Kafka.Enabled() {
		a.kafka, err = publish.NewKafkaPublisher(cfg.Kafka, a.log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		publishers = append(publishers, a.kafka)
	}
	if opts.withHub {
		a.hub = publish.NewHub(a.log).WithMetrics(a.metrics).WithAllowedOrigins(cfg.API.AllowedOrigins)
		publishers = append(publishers, a.hub)
	}

	a.analyzer, err = audit.NewAnalyzer(a.repo, prof, a.log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.analyzer.
		WithCache(redis.NewCache(a.redis, "perf"), cfg.Analytics.CacheTTL).
		WithLimiter(redis.NewRateLimiter(a.redis, "perf")).
		WithConcurrency(cfg.Analytics.BatchConcurrency).
		WithPublisher(publisherOf(publishers))
	if a.metrics != nil {
		a.analyzer.WithMetrics(a.metrics)
	}

	a.log.WithFields(map[string]interface{}{
		"profile":  prof.Meta.ProfileID,
		"redis":    a.redis.Enabled(),
		"kafka":    cfg.Kafka.Enabled(),
		"metrics":  cfg.MetricsEnabled,
		"stream":   opts.withHub,
		"parallel": cfg.Analytics.BatchConcurrency,
	}).Info("Analyzer ready")

	return a, nil
}

// Close releases every connection in reverse order
func (a *app) Close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close kafka writer")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func publisherOf(m publish.Multi) contracts.ReportPublisher {
	switch len(m) {
	case 0:
		return publish.Nop{}
	case 1:
		return m[0]
	default:
		return m
	}
}

// loadProfile resolves --profile, then ANALYTICS_PROFILE, then the built-in default
func loadProfile(cfg *config.Config) (*profile.Profile, error) {
	path := profilePath
	if path == "" && cfg != nil {
		path = cfg.Analytics.ProfilePath
	}

	p, err := profile.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", path, err)
	}
	return p, nil
}
