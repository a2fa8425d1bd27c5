package jobs

import (
	"context"
	"time"

	"github.com/wonny/aegis/v13/perf/pkg/logger"
)

// Sweeper forgets entries idle for longer than the given duration
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// LimiterSweepJob drops idle API client rate limit buckets
type LimiterSweepJob struct {
	sweeper Sweeper
	idle    time.Duration
	logger  *logger.Logger
}

// NewLimiterSweepJob creates a new limiter sweep job
func NewLimiterSweepJob(sweeper Sweeper, idle time.Duration, log *logger.Logger) *LimiterSweepJob {
	if log == nil {
		log = logger.Nop()
	}
	return &LimiterSweepJob{
		sweeper: sweeper,
		idle:    idle,
		logger:  log.Component("jobs.limiter_sweep"),
	}
}

// Name returns the job name
func (j *LimiterSweepJob) Name() string {
	return "limiter_sweep"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *LimiterSweepJob) Schedule() string {
	return "0 */5 * * * *" // Every 5 minutes
}

// Run executes the sweep
func (j *LimiterSweepJob) Run(ctx context.Context) error {
	count := j.sweeper.Sweep(j.idle)

	if count > 0 {
		j.logger.WithField("removed", count).Debug("Limiter sweep completed")
	}

	return nil
}
