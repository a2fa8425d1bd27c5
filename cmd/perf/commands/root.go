package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	profilePath string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "perf",
	Short: "Portfolio performance & risk analytics",
	Long: `Perf CLI

거래 내역과 자산 곡선으로 성과/리스크/벤치마크/기여도 리포트를 생성합니다.

Usage:
  go run ./cmd/perf [command]

Examples:
  go run ./cmd/perf api
  go run ./cmd/perf analyze --portfolio pf-1 --from 2024-01-01 --to 2024-06-30
  go run ./cmd/perf compute --input snapshot.json
  go run ./cmd/perf scheduler start
  go run ./cmd/perf db migrate`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "analysis profile YAML (default: ANALYTICS_PROFILE or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
