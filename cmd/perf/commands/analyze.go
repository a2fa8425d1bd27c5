package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/v13/perf/internal/audit"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "포트폴리오 리포트 생성",
	Long: `저장소의 거래/자산 곡선/벤치마크/카테고리 비중으로 리포트를 생성합니다.

이 명령어는:
- 캐시 조회 (Redis)
- 데이터 로드 (PostgreSQL)
- 성과/리스크/벤치마크/기여도 계산
- 리포트 저장 및 발행 (Kafka)

기간을 생략하면 프로파일의 lookback_days, 벤치마크를 생략하면 프로파일 기본값을 사용합니다.
--benchmarks "" 는 벤치마크 없이 분석합니다.

Example:
  go run ./cmd/perf analyze --portfolio pf-1
  go run ./cmd/perf analyze --portfolio pf-1 --from 2024-01-01 --to 2024-06-30 --benchmarks BTC,SPX
  go run ./cmd/perf analyze --portfolio pf-1,pf-2 --json`,
	RunE: runAnalyze,
}

var (
	analyzePortfolios string
	analyzeFrom       string
	analyzeTo         string
	analyzeBenchmarks string
	analyzeJSON       bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Flags
	analyzeCmd.Flags().StringVar(&analyzePortfolios, "portfolio", "", "포트폴리오 ID (쉼표로 여러 개)")
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "시작일 (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "종료일 (YYYY-MM-DD, 포함)")
	analyzeCmd.Flags().StringVar(&analyzeBenchmarks, "benchmarks", "", "벤치마크 심볼 (쉼표 구분)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "JSON 출력")
	_ = analyzeCmd.MarkFlagRequired("portfolio")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	requests, err := buildRequests(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	// 단일 포트폴리오: 상세 리포트
	if len(requests) == 1 {
		result, err := a.analyzer.Analyze(ctx, requests[0])
		if err != nil {
			return fmt.Errorf("analyze %s: %w", requests[0].PortfolioID, err)
		}
		if analyzeJSON {
			return PrintJSON(out, result)
		}
		PrintResult(out, result, a.analyzer.Profile().Report.TopContributors)
		return nil
	}

	// 여러 포트폴리오: 배치 요약
	results := a.analyzer.AnalyzeBatch(ctx, requests)
	if analyzeJSON {
		if err := PrintJSON(out, results); err != nil {
			return err
		}
	} else {
		PrintHeader(out, fmt.Sprintf("Batch Analysis (%d portfolios)", len(results)))
		PrintBatch(out, results)
	}

	if failed := audit.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(results))
	}
	return nil
}

// buildRequests turns the flags into one request per portfolio
func buildRequests(cmd *cobra.Command) ([]contracts.AnalysisRequest, error) {
	var rng contracts.TimeRange
	var err error
	if analyzeFrom != "" {
		if rng.From, err = time.Parse("2006-01-02", analyzeFrom); err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if analyzeTo != "" {
		if rng.To, err = time.Parse("2006-01-02", analyzeTo); err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
		rng.To = rng.To.Add(24*time.Hour - time.Nanosecond)
	}

	var benchmarks []string
	if cmd.Flags().Changed("benchmarks") {
		benchmarks = splitCSV(analyzeBenchmarks)
	}

	ids := splitCSV(analyzePortfolios)
	if len(ids) == 0 {
		return nil, fmt.Errorf("--portfolio is required")
	}

	requests := make([]contracts.AnalysisRequest, len(ids))
	for i, id := range ids {
		requests[i] = contracts.AnalysisRequest{PortfolioID: id, Range: rng, Benchmarks: benchmarks}
	}
	return requests, nil
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
