package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/wonny/aegis/v13/perf/internal/attribution"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// =============================================================================
// Output Formatting
// =============================================================================

// ToJSON JSON 형식으로 출력
func ToJSON(r *contracts.PerformanceReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON decodes a report produced by ToJSON
func FromJSON(data []byte) (*contracts.PerformanceReport, error) {
	var r contracts.PerformanceReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// ToSummary 요약 문자열 출력 (기여도 상위 topContributors개)
func ToSummary(r *contracts.PerformanceReport, topContributors int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Performance Report %s (%s) ===\n", r.PortfolioID, r.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Report ID: %s\n", r.ID)
	if !r.Range.From.IsZero() || !r.Range.To.IsZero() {
		fmt.Fprintf(&b, "Range: %s ~ %s\n", r.Range.From.Format("2006-01-02"), r.Range.To.Format("2006-01-02"))
	}
	b.WriteString("\n")

	s := r.Performance.Series
	b.WriteString("📈 Performance\n")
	if s.Sufficient() {
		fmt.Fprintf(&b, "  Total Return: %.2f%%\n", s.TotalReturn*100)
		fmt.Fprintf(&b, "  Annualized Return: %s\n", FormatPercent(s.Annualized()))
		fmt.Fprintf(&b, "  Volatility: %.2f%%\n", s.Volatility*100)
		fmt.Fprintf(&b, "  Sharpe: %s  Sortino: %s  Calmar: %s\n",
			FormatRatio(s.Sharpe), FormatRatio(s.Sortino), FormatRatio(s.Calmar))
		fmt.Fprintf(&b, "  Max Drawdown: %.2f%%\n", s.MaxDrawdown*100)
	} else {
		fmt.Fprintf(&b, "  insufficient data (%d points)\n", s.Points)
	}

	t := r.Performance.Trades
	fmt.Fprintf(&b, "  Trades: %d  Win Rate: %.2f%%  Profit Factor: %s\n",
		t.TotalTrades, t.WinRate*100, FormatRatio(t.ProfitFactor))
	b.WriteString("\n")

	b.WriteString("⚠️ Risk\n")
	for _, v := range r.Risk.VaR {
		fmt.Fprintf(&b, "  VaR %.0f%%: %.2f%% (%.2f)  ES: %.2f%% (%.2f)\n",
			v.Confidence*100, v.VaR*100, v.VaRAmount, v.ExpectedShortfall*100, v.ESAmount)
	}
	if r.Risk.Beta != nil {
		fmt.Fprintf(&b, "  Beta: %.3f\n", *r.Risk.Beta)
	}
	b.WriteString("\n")

	if len(r.Comparisons) > 0 {
		b.WriteString("📊 Benchmarks\n")
		for _, c := range r.Comparisons {
			if c.InsufficientOverlap {
				fmt.Fprintf(&b, "  %s: excluded (%s)\n", c.Benchmark, c.Reason)
				continue
			}
			if m, ok := c.Metric(contracts.MetricTotalReturn); ok {
				fmt.Fprintf(&b, "  %s: %+.2f%% vs total return\n", c.Benchmark, m.Outperformance*100)
			}
		}
		b.WriteString("\n")
	}

	a := r.Attribution
	b.WriteString("🧩 Attribution\n")
	if !a.Available() {
		b.WriteString("  no category allocations\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  Active Return: %+.2f%% (allocation %+.2f%%, selection %+.2f%%, interaction %+.2f%%)\n",
		a.ActiveReturn*100, a.TotalAllocation*100, a.TotalSelection*100, a.TotalInteraction*100)
	for _, rec := range attribution.TopContributors(&a, topContributors) {
		fmt.Fprintf(&b, "  + %s: %+.2f%%\n", rec.Category, rec.Contribution*100)
	}

	return b.String()
}

// FormatPercent renders a ratio-valued return as a percentage
func FormatPercent(r contracts.Ratio) string {
	if r.Status != contracts.RatioOK {
		return FormatRatio(r)
	}
	return fmt.Sprintf("%.2f%%", r.Value*100)
}

// FormatRatio renders a ratio with its status
func FormatRatio(r contracts.Ratio) string {
	switch r.Status {
	case contracts.RatioUnbounded:
		return "∞"
	case contracts.RatioDegenerate:
		return "0.00 (degenerate)"
	case contracts.RatioInsufficientData:
		return "n/a"
	}
	if math.IsNaN(r.Value) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", r.Value)
}
