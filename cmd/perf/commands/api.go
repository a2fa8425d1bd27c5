package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/v13/perf/internal/api"
	"github.com/wonny/aegis/v13/perf/internal/api/handlers"
	"github.com/wonny/aegis/v13/perf/internal/scheduler"
	"github.com/wonny/aegis/v13/perf/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 리포트 조회/계산 엔드포인트 제공
- 실시간 리포트 스트림 (WebSocket) 제공

Endpoints:
  GET  /health                              - Health check
  GET  /metrics                             - Prometheus metrics
  GET  /api/portfolios/{id}/report          - 리포트 생성 (캐시)
  GET  /api/portfolios/{id}/report/latest   - 마지막 저장 리포트
  GET  /api/portfolios/{id}/stream          - 리포트 스트림 (WebSocket)
  POST /api/analyze                         - 입력 JSON으로 순수 계산

Example:
  go run ./cmd/perf api
  go run ./cmd/perf api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Perf API Server ===")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := newApp(ctx, appOptions{withHub: true})
	cancel()
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 1. Handlers & router
	limiter, err := api.NewClientLimiter(a.cfg.API.RateLimitRPS, a.cfg.API.RateLimitBurst).
		WithTrustedProxies(a.cfg.API.TrustedProxies)
	if err != nil {
		return fmt.Errorf("API_TRUSTED_PROXIES: %w", err)
	}
	checks := []api.HealthCheck{{
		Name: "database",
		Checker: api.HealthCheckFunc(func(ctx context.Context) error {
			_, err := a.db.HealthCheck(ctx)
			return err
		}),
		Critical: true,
	}}
	if a.redis.Enabled() {
		checks = append(checks, api.HealthCheck{Name: "redis", Checker: a.redis})
	}
	router := api.NewRouter(api.RouterDeps{
		Reports: handlers.NewReportHandler(a.analyzer, a.hub, a.log),
		Metrics: a.metrics,
		Limiter: limiter,
		Health:  checks,
		Logger:  a.log,
	})

	// 2. In-process maintenance
	sched := scheduler.New(a.log, scheduler.DefaultOptions())
	if err := sched.AddJob(jobs.NewLimiterSweepJob(limiter, 10*time.Minute, a.log)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// 3. Serve until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.New(a.cfg, a.log, router)
	// 스트림 연결은 Shutdown이 기다리지 않으므로 먼저 끊음
	server.OnShutdown(a.hub.Close)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	if a.metrics != nil {
		fmt.Println("  GET  /metrics")
	}
	fmt.Println("  GET  /api/portfolios/{id}/report?from=&to=&benchmarks=")
	fmt.Println("  GET  /api/portfolios/{id}/report/latest")
	fmt.Println("  GET  /api/portfolios/{id}/stream")
	fmt.Println("  POST /api/analyze")
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
