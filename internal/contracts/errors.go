package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// Input errors are hard failures: malformed data is rejected, never coerced.
var (
	// ErrInvalidTrade indicates a trade with non-positive quantity/price or an unknown side.
	ErrInvalidTrade = errors.New("invalid trade")

	// ErrInvalidSeries indicates a time series that violates the ordering or value invariants.
	ErrInvalidSeries = errors.New("invalid time series")

	// ErrInvalidConfidence indicates a VaR confidence level outside (0, 1).
	ErrInvalidConfidence = errors.New("invalid confidence level")

	// ErrInvalidWeights indicates category weights that are out of range or do not sum to 1.
	ErrInvalidWeights = errors.New("invalid category weights")

	// ErrNoCategories indicates an attribution request without categories.
	ErrNoCategories = errors.New("no attribution categories")

	// ErrDuplicateCategory indicates the same category label appears twice.
	ErrDuplicateCategory = errors.New("duplicate attribution category")
)

// Service-level failures, mapped to HTTP status codes by the API.
var (
	// ErrInvalidRequest indicates a malformed analysis request (missing portfolio, inverted range).
	ErrInvalidRequest = errors.New("invalid analysis request")

	// ErrNotFound indicates the portfolio has no stored data or report.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many fresh analyses for one portfolio.
	ErrRateLimited = errors.New("rate limited")
)

// Contract violations are propagated as hard errors.
var (
	// ErrIncompleteReport indicates a report assembled without a required sub-result.
	ErrIncompleteReport = errors.New("incomplete report")
)

// Soft conditions are surfaced as status flags on results. The sentinels exist
// for callers (API, CLI) that want to turn a flagged result into an error.
var (
	// ErrInsufficientData indicates fewer than 2 points in a series.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInsufficientOverlap indicates a benchmark sharing fewer than 2 timestamps with the portfolio.
	ErrInsufficientOverlap = errors.New("insufficient overlap")
)

// InvalidTradeError describes why a trade was rejected at ingestion.
type InvalidTradeError struct {
	Index  int
	ID     string
	Symbol string
	Field  string
	Reason string
}

func (e *InvalidTradeError) Error() string {
	ref := e.ID
	if ref == "" {
		ref = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("%s: trade %s (%s) %s %s", ErrInvalidTrade, ref, e.Symbol, e.Field, e.Reason)
}

func (e *InvalidTradeError) Unwrap() error {
	return ErrInvalidTrade
}

// IncompleteReportError names the sub-results missing from a report request.
type IncompleteReportError struct {
	Missing []string
}

func (e *IncompleteReportError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrIncompleteReport, strings.Join(e.Missing, ", "))
}

func (e *IncompleteReportError) Unwrap() error {
	return ErrIncompleteReport
}
