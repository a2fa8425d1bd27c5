// Package report joins the analytics results into one immutable PerformanceReport.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// reportNamespace scopes the name-based report IDs
var reportNamespace = uuid.MustParse("6f1c7a52-3d8e-4b0a-9c51-2a7e4f0d9b13")

// Input is everything a report is assembled from.
// Nil sub-results are contract violations; an empty (non-nil) Comparisons slice is allowed.
type Input struct {
	PortfolioID string
	Range       contracts.TimeRange
	GeneratedAt time.Time // zero = assembler decides

	Performance *contracts.PerformanceMetrics
	Risk        *contracts.RiskProfile
	Comparisons []contracts.ComparisonResult
	Attribution *contracts.AttributionResult
}

// Assembler builds reports. The clock only fills GeneratedAt when the input leaves it zero.
type Assembler struct {
	clock func() time.Time
}

// NewAssembler creates an assembler stamping reports with clock
func NewAssembler(clock func() time.Time) *Assembler {
	return &Assembler{clock: clock}
}

// Assemble builds a report without a clock: a zero GeneratedAt becomes the
// end of the analyzed series, so identical inputs give deep-equal reports.
func Assemble(in Input) (*contracts.PerformanceReport, error) {
	return (&Assembler{}).Assemble(in)
}

// Assemble validates in and joins its parts into a fresh report
func (a *Assembler) Assemble(in Input) (*contracts.PerformanceReport, error) {
	if missing := Missing(in); len(missing) > 0 {
		return nil, &contracts.IncompleteReportError{Missing: missing}
	}

	generatedAt := in.GeneratedAt
	if generatedAt.IsZero() {
		if a.clock != nil {
			generatedAt = a.clock()
		} else {
			generatedAt = in.Performance.Series.End
		}
	}

	report := &contracts.PerformanceReport{
		PortfolioID: in.PortfolioID,
		Range:       in.Range,
		GeneratedAt: generatedAt.UTC(),
		Performance: clonePerformance(*in.Performance),
		Risk:        cloneRisk(*in.Risk),
		Comparisons: cloneComparisons(in.Comparisons),
		Attribution: cloneAttribution(*in.Attribution),
	}

	id, err := ReportID(report)
	if err != nil {
		return nil, err
	}
	report.ID = id
	return report, nil
}

// Missing lists the names of absent sub-results in a stable order
func Missing(in Input) []string {
	var missing []string
	if in.Performance == nil {
		missing = append(missing, "performance")
	}
	if in.Risk == nil {
		missing = append(missing, "risk")
	}
	if in.Comparisons == nil {
		missing = append(missing, "comparisons")
	}
	if in.Attribution == nil {
		missing = append(missing, "attribution")
	}
	return missing
}

// ReportID derives a name-based UUID from the report content (ID field excluded)
func ReportID(r *contracts.PerformanceReport) (string, error) {
	content := *r
	content.ID = ""
	payload, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report for id: %w", err)
	}
	return uuid.NewSHA1(reportNamespace, payload).String(), nil
}
