package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/v13/perf/internal/scheduler"
	"github.com/wonny/aegis/v13/perf/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `리포트 갱신 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/perf scheduler start
  go run ./cmd/perf scheduler list
  go run ./cmd/perf scheduler run report_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- report_refresh: ANALYTICS_REFRESH_SCHEDULE (기본: 매일 오후 5시 30분)
  ANALYTICS_PORTFOLIOS의 모든 포트폴리오 리포트 재생성

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Perf Scheduler ===")

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	result, err := sched.RunNow(context.Background(), jobName)
	if err != nil {
		return err
	}

	fmt.Printf("Duration: %v (attempts: %d)\n", result.Duration.Round(time.Millisecond), result.Attempts)
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}
	PrintSuccess(os.Stdout, fmt.Sprintf("Job %s completed", jobName))

	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	// 이력은 프로세스 내에만 있으므로 새 프로세스에서는 스케줄과 다음 실행 시각만 의미 있음
	sched.Start()
	defer sched.Stop()

	PrintHeader(os.Stdout, "Scheduler Status")
	PrintJobStats(os.Stdout, sched.GetAllJobs(), sched.GetJobStats())

	return nil
}

// initScheduler wires the analyzer and registers every job
func initScheduler() (*app, *scheduler.Scheduler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return nil, nil, err
	}

	if len(a.cfg.Analytics.Portfolios) == 0 {
		a.log.Warn("ANALYTICS_PORTFOLIOS is empty, report_refresh will do nothing")
	}

	sched := scheduler.New(a.log, scheduler.DefaultOptions())
	refresh := jobs.NewReportRefreshJob(a.analyzer, a.cfg.Analytics.Portfolios, a.cfg.Analytics.RefreshSchedule, a.log)
	if err := sched.AddJob(refresh); err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("add job %s: %w", refresh.Name(), err)
	}

	return a, sched, nil
}
