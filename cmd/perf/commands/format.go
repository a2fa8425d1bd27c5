package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/aegis/v13/perf/internal/attribution"
	"github.com/wonny/aegis/v13/perf/internal/audit"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/report"
	"github.com/wonny/aegis/v13/perf/internal/scheduler"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// PrintHeader prints a titled double-line header
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
}

// PrintSection prints a section title
func PrintSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "[%s]\n", title)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string) {
	fmt.Fprintf(w, "  %-12s : %s\n", key, value)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func signedPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}

// ═══════════════════════════════════════════════════════════
// Report
// ═══════════════════════════════════════════════════════════

// PrintResult renders a result as sectioned tables
func PrintResult(w io.Writer, result *audit.Result, topContributors int) {
	r := result.Report

	PrintHeader(w, "Performance Report "+r.PortfolioID)
	PrintKeyValue(w, "Report ID", r.ID)
	PrintKeyValue(w, "Generated", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	if !r.Range.From.IsZero() || !r.Range.To.IsZero() {
		PrintKeyValue(w, "Range", fmt.Sprintf("%s ~ %s", r.Range.From.Format("2006-01-02"), r.Range.To.Format("2006-01-02")))
	}
	fmt.Fprintln(w, singleLine)

	printPerformance(w, r)
	printTrades(w, r)
	printRisk(w, r)
	printComparisons(w, r)
	printAttribution(w, r, topContributors)
	printChecks(w, result)
}

func printPerformance(w io.Writer, r *contracts.PerformanceReport) {
	s := r.Performance.Series
	PrintSection(w, "Performance")
	if !s.Sufficient() {
		PrintWarning(w, fmt.Sprintf("insufficient data (%d points)", s.Points))
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Total", "Annualized", "Volatility", "Sharpe", "Sortino", "Calmar", "Max DD", "Longest DD")
	table.Append(
		pct(s.TotalReturn),
		report.FormatPercent(s.Annualized()),
		pct(s.Volatility),
		report.FormatRatio(s.Sharpe),
		report.FormatRatio(s.Sortino),
		report.FormatRatio(s.Calmar),
		pct(s.MaxDrawdown),
		fmt.Sprintf("%d periods", s.LongestDrawdownPeriods),
	)
	table.Render()
}

func printTrades(w io.Writer, r *contracts.PerformanceReport) {
	PrintSection(w, "Trades")

	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Trades", "Win Rate", "Profit Factor", "Net", "Fees", "Open Lots")

	row := func(symbol string, t contracts.TradeStats) {
		table.Append(
			symbol,
			fmt.Sprintf("%d", t.TotalTrades),
			pct(t.WinRate),
			report.FormatRatio(t.ProfitFactor),
			fmt.Sprintf("%.2f", t.NetProfit),
			fmt.Sprintf("%.2f", t.TotalFees),
			fmt.Sprintf("%d", t.OpenLots),
		)
	}
	for _, s := range r.Performance.BySymbol {
		row(s.Symbol, s.Stats)
	}
	row("TOTAL", r.Performance.Trades)
	table.Render()
}

func printRisk(w io.Writer, r *contracts.PerformanceReport) {
	PrintSection(w, "Risk")
	if len(r.Risk.VaR) == 0 {
		PrintWarning(w, fmt.Sprintf("insufficient data (%d returns)", r.Risk.SampleCount))
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Confidence", "VaR", "VaR Amount", "ES", "ES Amount", "Tail")
	for _, v := range r.Risk.VaR {
		table.Append(
			fmt.Sprintf("%.0f%%", v.Confidence*100),
			pct(v.VaR),
			fmt.Sprintf("%.2f", v.VaRAmount),
			pct(v.ExpectedShortfall),
			fmt.Sprintf("%.2f", v.ESAmount),
			fmt.Sprintf("%d", v.TailCount),
		)
	}
	table.Render()

	PrintKeyValue(w, "Volatility", pct(r.Risk.Volatility))
	for _, b := range r.Risk.Betas {
		PrintKeyValue(w, "Beta", fmt.Sprintf("%s vs %s (%d points)", optional(b.Beta), b.Name, b.Overlap))
	}
}

func printComparisons(w io.Writer, r *contracts.PerformanceReport) {
	if len(r.Comparisons) == 0 {
		return
	}
	PrintSection(w, "Benchmarks")

	table := tablewriter.NewWriter(w)
	table.Header("Benchmark", "Overlap", "Total vs", "Sharpe vs", "Max DD vs", "Beta", "Tracking Err", "Info Ratio")
	for _, c := range r.Comparisons {
		if c.InsufficientOverlap {
			table.Append(c.Benchmark, fmt.Sprintf("%d", c.OverlapPoints), "excluded", "", "", "", "", "")
			continue
		}

		cells := []any{c.Benchmark, fmt.Sprintf("%d", c.OverlapPoints)}
		for _, name := range []string{contracts.MetricTotalReturn, contracts.MetricSharpe, contracts.MetricMaxDrawdown} {
			cells = append(cells, outperformance(c, name))
		}
		if rel := c.Relative; rel != nil {
			cells = append(cells, optional(rel.Beta), pct(rel.TrackingError), report.FormatRatio(rel.InformationRatio))
		} else {
			cells = append(cells, "n/a", "n/a", "n/a")
		}
		table.Append(cells...)
	}
	table.Render()

	if excluded := r.ExcludedBenchmarks(); len(excluded) > 0 {
		PrintWarning(w, "Excluded for insufficient overlap: "+strings.Join(excluded, ", "))
	}
}

func outperformance(c contracts.ComparisonResult, metric string) string {
	m, ok := c.Metric(metric)
	switch {
	case !ok:
		return "n/a"
	case m.Status != contracts.ComparisonOK:
		return string(m.Status)
	case metric == contracts.MetricSharpe:
		return fmt.Sprintf("%+.2f", m.Outperformance)
	default:
		return signedPct(m.Outperformance)
	}
}

func printAttribution(w io.Writer, r *contracts.PerformanceReport, topContributors int) {
	a := r.Attribution
	PrintSection(w, "Attribution")
	if !a.Available() {
		PrintWarning(w, "no category allocations")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Category", "Weight P/B", "Return P/B", "Allocation", "Selection", "Interaction", "Contribution")
	for _, rec := range a.Records {
		table.Append(
			rec.Category,
			fmt.Sprintf("%s / %s", pct(rec.PortfolioWeight), pct(rec.BenchmarkWeight)),
			fmt.Sprintf("%s / %s", pct(rec.PortfolioReturn), pct(rec.BenchmarkReturn)),
			signedPct(rec.Allocation),
			signedPct(rec.Selection),
			signedPct(rec.Interaction),
			signedPct(rec.Contribution),
		)
	}
	table.Append("TOTAL", "", fmt.Sprintf("%s / %s", pct(a.PortfolioReturn), pct(a.BenchmarkReturn)),
		signedPct(a.TotalAllocation), signedPct(a.TotalSelection), signedPct(a.TotalInteraction), signedPct(a.ActiveReturn))
	table.Render()

	top := attribution.TopContributors(&a, topContributors)
	names := make([]string, len(top))
	for i, rec := range top {
		names[i] = fmt.Sprintf("%s (%s)", rec.Category, signedPct(rec.Contribution))
	}
	if len(names) > 0 {
		PrintKeyValue(w, "Top", strings.Join(names, ", "))
	}
}

func printChecks(w io.Writer, result *audit.Result) {
	if l := result.Limits; l != nil {
		PrintSection(w, "Risk Limits")
		if l.Passed {
			PrintSuccess(w, "All risk limits passed")
		}
		for _, v := range l.Violations {
			PrintWarning(w, v)
		}
	}

	if len(result.Stress) == 0 {
		return
	}
	PrintSection(w, "Stress Scenarios")
	table := tablewriter.NewWriter(w)
	table.Header("Scenario", "Return", "Amount")
	for _, s := range result.Stress {
		table.Append(s.Scenario, signedPct(s.Return), fmt.Sprintf("%.2f", s.Amount))
	}
	table.Render()
}

// ═══════════════════════════════════════════════════════════
// Scheduler
// ═══════════════════════════════════════════════════════════

// PrintJobStats renders scheduler statistics, one row per job
func PrintJobStats(w io.Writer, names []string, stats map[string]scheduler.JobStats) {
	table := tablewriter.NewWriter(w)
	table.Header("Job", "Schedule", "Runs", "Success", "Failed", "Rate", "Last Run", "Next Run")
	for _, name := range names {
		st := stats[name]
		table.Append(
			name,
			st.Schedule,
			fmt.Sprintf("%d", st.TotalRuns),
			fmt.Sprintf("%d", st.SuccessCount),
			fmt.Sprintf("%d", st.FailureCount),
			pct(st.SuccessRate),
			timeOrDash(st.LastRun),
			timeOrDash(st.NextRun),
		)
	}
	table.Render()
}

// PrintBatch renders a batch outcome, one row per request
func PrintBatch(w io.Writer, results []audit.BatchResult) {
	table := tablewriter.NewWriter(w)
	table.Header("Portfolio", "Status", "Report ID", "Total Return", "Detail")
	for _, r := range results {
		if r.Err != nil {
			table.Append(r.Request.PortfolioID, "failed", "", "", r.Err.Error())
			continue
		}
		rep := r.Result.Report
		table.Append(r.Request.PortfolioID, "ok", rep.ID, pct(rep.Performance.Series.TotalReturn), "")
	}
	table.Render()
}
