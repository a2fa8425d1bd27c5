package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/v13/perf/internal/audit"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/profile"
)

type fakeService struct {
	result *audit.Result
	err    error
	last   contracts.AnalysisRequest
}

func (s *fakeService) Analyze(_ context.Context, req contracts.AnalysisRequest) (*audit.Result, error) {
	s.last = req
	return s.result, s.err
}

func (s *fakeService) Latest(_ context.Context, id string) (*contracts.PerformanceReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result.Report, nil
}

func (s *fakeService) Profile() *profile.Profile {
	return profile.Default()
}

type fakeStreamer struct {
	portfolioID string
}

func (f *fakeStreamer) ServeWS(w http.ResponseWriter, _ *http.Request, portfolioID string) error {
	f.portfolioID = portfolioID
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func cannedResult() *audit.Result {
	return &audit.Result{Report: &contracts.PerformanceReport{
		ID:          "rep-1",
		PortfolioID: "pf-1",
		GeneratedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Comparisons: []contracts.ComparisonResult{},
	}}
}

func newTestRouter(h *ReportHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/portfolios/{id}/report", h.GetReport).Methods("GET")
	r.HandleFunc("/api/portfolios/{id}/report/latest", h.GetLatest).Methods("GET")
	r.HandleFunc("/api/portfolios/{id}/stream", h.Stream).Methods("GET")
	r.HandleFunc("/api/analyze", h.Compute).Methods("POST")
	return r
}

func serve(t *testing.T, router http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetReport(t *testing.T) {
	svc := &fakeService{result: cannedResult()}
	router := newTestRouter(NewReportHandler(svc, nil, nil))

	rec := serve(t, router, "GET", "/api/portfolios/pf-1/report?from=2024-01-01&to=2024-01-31&benchmarks=BTC,%20SPX,", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got audit.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rep-1", got.Report.ID)

	assert.Equal(t, "pf-1", svc.last.PortfolioID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), svc.last.Range.From)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), svc.last.Range.To)
	assert.Equal(t, []string{"BTC", "SPX"}, svc.last.Benchmarks)
}

func TestGetReport_BenchmarkParam(t *testing.T) {
	svc := &fakeService{result: cannedResult()}
	router := newTestRouter(NewReportHandler(svc, nil, nil))

	serve(t, router, "GET", "/api/portfolios/pf-1/report", nil)
	assert.Nil(t, svc.last.Benchmarks, "absent means profile defaults")

	serve(t, router, "GET", "/api/portfolios/pf-1/report?benchmarks=", nil)
	assert.NotNil(t, svc.last.Benchmarks)
	assert.Empty(t, svc.last.Benchmarks, "empty means no benchmarks")
}

func TestGetReport_TextFormat(t *testing.T) {
	svc := &fakeService{result: cannedResult()}
	router := newTestRouter(NewReportHandler(svc, nil, nil))

	rec := serve(t, router, "GET", "/api/portfolios/pf-1/report?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "Performance Report pf-1")
}

func TestGetReport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"bad from", "/api/portfolios/pf-1/report?from=yesterday", nil, http.StatusBadRequest},
		{"invalid request", "/api/portfolios/pf-1/report", fmt.Errorf("%w: range", contracts.ErrInvalidRequest), http.StatusBadRequest},
		{"invalid weights", "/api/portfolios/pf-1/report", fmt.Errorf("compute attribution: %w", contracts.ErrInvalidWeights), http.StatusBadRequest},
		{"not found", "/api/portfolios/pf-1/report", fmt.Errorf("%w: no equity", contracts.ErrNotFound), http.StatusNotFound},
		{"rate limited", "/api/portfolios/pf-1/report", contracts.ErrRateLimited, http.StatusTooManyRequests},
		{"incomplete", "/api/portfolios/pf-1/report", &contracts.IncompleteReportError{Missing: []string{"risk"}}, http.StatusInternalServerError},
		{"database", "/api/portfolios/pf-1/report", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{result: cannedResult(), err: tt.err}
			router := newTestRouter(NewReportHandler(svc, nil, nil))

			rec := serve(t, router, "GET", tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, body["error"], "connection refused")
			}
		})
	}
}

func TestGetLatest(t *testing.T) {
	svc := &fakeService{result: cannedResult()}
	router := newTestRouter(NewReportHandler(svc, nil, nil))

	rec := serve(t, router, "GET", "/api/portfolios/pf-1/report/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep contracts.PerformanceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "rep-1", rep.ID)

	svc.err = contracts.ErrNotFound
	rec = serve(t, router, "GET", "/api/portfolios/pf-1/report/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func computeBody(t *testing.T) []byte {
	t.Helper()
	day0 := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	points := make([]contracts.EquityPoint, 0, 6)
	for i, v := range []float64{10000, 10250, 10180, 10420, 10300, 10600} {
		points = append(points, contracts.EquityPoint{Timestamp: day0.AddDate(0, 0, i), Value: v})
	}
	equity, err := contracts.NewTimeSeries(points)
	require.NoError(t, err)

	body, err := json.Marshal(audit.Input{
		PortfolioID: "pf-9",
		Equity:      equity,
		Categories: []contracts.CategoryInput{
			{Category: "Crypto", PortfolioWeight: 1, PortfolioReturn: 0.06, BenchmarkWeight: 1, BenchmarkReturn: 0.04},
		},
	})
	require.NoError(t, err)
	return body
}

func TestCompute(t *testing.T) {
	router := newTestRouter(NewReportHandler(&fakeService{}, nil, nil))

	rec := serve(t, router, "POST", "/api/analyze", computeBody(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got audit.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Report)
	assert.Equal(t, "pf-9", got.Report.PortfolioID)
	assert.InDelta(t, 0.06, got.Report.Performance.Series.TotalReturn, 1e-9)
	assert.InDelta(t, 0.02, got.Report.Attribution.ActiveReturn, 1e-9)
}

func TestCompute_NoCategories(t *testing.T) {
	router := newTestRouter(NewReportHandler(&fakeService{}, nil, nil))

	var in audit.Input
	require.NoError(t, json.Unmarshal(computeBody(t), &in))
	in.Categories = nil
	body, err := json.Marshal(in)
	require.NoError(t, err)

	rec := serve(t, router, "POST", "/api/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got audit.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, contracts.AttributionNoCategories, got.Report.Attribution.Status)
}

func TestCompute_BadInput(t *testing.T) {
	router := newTestRouter(NewReportHandler(&fakeService{}, nil, nil))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"portfolio_id":`},
		{"missing portfolio", `{"equity":[]}`},
		{"unsorted equity", `{"portfolio_id":"pf","equity":[{"timestamp":"2024-01-02T00:00:00Z","value":1},{"timestamp":"2024-01-01T00:00:00Z","value":1}]}`},
		{"bad weights", `{"portfolio_id":"pf","equity":[],"categories":[{"category":"A","portfolio_weight":0.5,"benchmark_weight":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, router, "POST", "/api/analyze", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestStream(t *testing.T) {
	router := newTestRouter(NewReportHandler(&fakeService{}, nil, nil))
	rec := serve(t, router, "GET", "/api/portfolios/pf-1/stream", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	streamer := &fakeStreamer{}
	router = newTestRouter(NewReportHandler(&fakeService{}, streamer, nil))
	serve(t, router, "GET", "/api/portfolios/pf-7/stream", nil)
	assert.Equal(t, "pf-7", streamer.portfolioID)
}
