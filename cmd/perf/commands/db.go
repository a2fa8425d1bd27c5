package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/v13/perf/internal/audit"
	"github.com/wonny/aegis/v13/perf/pkg/config"
	"github.com/wonny/aegis/v13/perf/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "데이터베이스 관리",
	Long: `Subcommands:
  migrate - 분석 스키마 생성 (idempotent)
  check   - 연결/풀 상태 확인

Example:
  go run ./cmd/perf db migrate
  go run ./cmd/perf db check`,
}

var (
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "분석 스키마 생성",
		RunE:  runMigrate,
	}

	dbCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "데이터베이스 연결 테스트",
		RunE:  runDBCheck,
	}
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbCheckCmd)
}

func connect(ctx context.Context) (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	fmt.Println("✅ Database connection established")
	return cfg, db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := audit.NewRepository(db.Pool).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	fmt.Println("✅ Schema up to date")
	return nil
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Println("✅ Ping successful")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	out := cmd.OutOrStdout()
	PrintSection(out, "Health")
	PrintKeyValue(out, "Healthy", fmt.Sprintf("%v", status.Healthy))
	PrintKeyValue(out, "Response Time", status.ResponseTime.String())
	PrintKeyValue(out, "Timestamp", status.Timestamp.Format(time.RFC3339))

	PrintSection(out, "Connection Pool")
	PrintKeyValue(out, "Max Connections", fmt.Sprintf("%d", status.Stats.MaxConns))
	PrintKeyValue(out, "Total Connections", fmt.Sprintf("%d", status.Stats.TotalConns))
	PrintKeyValue(out, "Acquired Connections", fmt.Sprintf("%d", status.Stats.AcquiredConns))
	PrintKeyValue(out, "Idle Connections", fmt.Sprintf("%d", status.Stats.IdleConns))
	PrintKeyValue(out, "Acquire Count", fmt.Sprintf("%d", status.Stats.AcquireCount))
	PrintKeyValue(out, "Acquire Duration", status.Stats.AcquireWait.String())
	return nil
}
