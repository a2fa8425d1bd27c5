package audit

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// BatchResult is the outcome of one request of a batch
type BatchResult struct {
	Request contracts.AnalysisRequest
	Result  *Result
	Err     error
}

// MarshalJSON writes Err as its message
func (b BatchResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Request contracts.AnalysisRequest `json:"request"`
		Result  *Result                   `json:"result,omitempty"`
		Error   string                    `json:"error,omitempty"`
	}{Request: b.Request, Result: b.Result}
	if b.Err != nil {
		out.Error = b.Err.Error()
	}
	return json.Marshal(out)
}

// AnalyzeBatch runs requests with bounded parallelism.
// Results keep request order; one failure does not stop the others.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, requests []contracts.AnalysisRequest) []BatchResult {
	start := time.Now()
	results := make([]BatchResult, len(requests))

	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)

	for i, req := range requests {
		i, req := i, req
		results[i].Request = req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = a.Analyze(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			a.logger.WithError(r.Err).WithField("portfolio_id", r.Request.PortfolioID).Warn("Batch analysis failed")
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"total":    len(requests),
		"failed":   failed,
		"duration": time.Since(start).String(),
	}).Info("Batch analysis completed")

	return results
}

// Failed counts the failed entries of a batch
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
