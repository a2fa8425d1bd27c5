package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/v13/perf/internal/audit"
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "JSON 스냅샷으로 오프라인 분석",
	Long: `파일로 주어진 입력(거래, 자산 곡선, 벤치마크, 카테고리)을 분석합니다.
데이터베이스/Redis/Kafka에 접근하지 않습니다.

입력 형식은 POST /api/analyze 본문과 같습니다.

Example:
  go run ./cmd/perf compute --input snapshot.json
  go run ./cmd/perf compute --input snapshot.json --profile profiles/default.yaml --json`,
	RunE: runCompute,
}

var (
	computeInput string
	computeJSON  bool
)

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVarP(&computeInput, "input", "i", "", "입력 JSON 파일")
	computeCmd.Flags().BoolVar(&computeJSON, "json", false, "JSON 출력")
	_ = computeCmd.MarkFlagRequired("input")
}

func runCompute(cmd *cobra.Command, args []string) error {
	in, err := readInput(computeInput)
	if err != nil {
		return err
	}

	prof, err := loadProfile(nil)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := audit.Compute(in, prof)
	if err != nil {
		return fmt.Errorf("compute %s: %w", in.PortfolioID, err)
	}

	out := cmd.OutOrStdout()
	if computeJSON {
		return PrintJSON(out, result)
	}
	PrintResult(out, result, prof.Report.TopContributors)
	fmt.Fprintf(out, "\nComputed in %v\n", time.Since(start).Round(time.Microsecond))
	return nil
}

// readInput decodes an analysis snapshot, rejecting unknown fields
func readInput(path string) (audit.Input, error) {
	var in audit.Input

	f, err := os.Open(path)
	if err != nil {
		return in, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("decode input %s: %w", path, err)
	}
	if in.PortfolioID == "" {
		return in, fmt.Errorf("decode input %s: portfolio_id is required", path)
	}
	return in, nil
}
