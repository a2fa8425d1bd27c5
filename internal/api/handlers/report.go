package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis/v13/perf/internal/audit"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/profile"
	"github.com/wonny/aegis/v13/perf/internal/report"
	"github.com/wonny/aegis/v13/perf/pkg/logger"
)

// maxComputeBody bounds POST /api/analyze payloads
const maxComputeBody = 10 << 20

// ReportService is the analysis service behind the report endpoints
type ReportService interface {
	Analyze(ctx context.Context, req contracts.AnalysisRequest) (*audit.Result, error)
	Latest(ctx context.Context, portfolioID string) (*contracts.PerformanceReport, error)
	Profile() *profile.Profile
}

// Streamer upgrades a request into a live report stream
type Streamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, portfolioID string) error
}

// ReportHandler handles report-related API endpoints
// ⭐ SSOT: 리포트 API 핸들러는 이 구조체에서만
type ReportHandler struct {
	service  ReportService
	streamer Streamer
	logger   *logger.Logger
}

// NewReportHandler creates a new report handler. streamer may be nil.
func NewReportHandler(service ReportService, streamer Streamer, log *logger.Logger) *ReportHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ReportHandler{
		service:  service,
		streamer: streamer,
		logger:   log.Component("api.reports"),
	}
}

// GetReport analyzes a portfolio (or serves the cached result)
// GET /api/portfolios/{id}/report?from=2024-01-01&to=2024-06-30&benchmarks=BTC,SPX&format=text
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	req, err := parseAnalysisRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.fail(w, err, req.PortfolioID)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, report.ToSummary(result.Report, h.service.Profile().Report.TopContributors))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetLatest returns the most recently stored report
// GET /api/portfolios/{id}/report/latest
func (h *ReportHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rep, err := h.service.Latest(r.Context(), id)
	if err != nil {
		h.fail(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

// Compute runs a pure analysis on the posted input; nothing is loaded or stored
// POST /api/analyze
func (h *ReportHandler) Compute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxComputeBody)

	var in audit.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(in.PortfolioID) == "" {
		respondError(w, http.StatusBadRequest, "portfolio_id is required")
		return
	}

	result, err := audit.Compute(in, h.service.Profile())
	if err != nil {
		h.fail(w, err, in.PortfolioID)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Stream pushes every new report of the portfolio over a websocket
// GET /api/portfolios/{id}/stream  (id "*" streams every portfolio)
func (h *ReportHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.streamer == nil {
		respondError(w, http.StatusNotImplemented, "Streaming is disabled")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.streamer.ServeWS(w, r, id); err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Warn("Stream ended with error")
	}
}

func (h *ReportHandler) fail(w http.ResponseWriter, err error, portfolioID string) {
	status := statusFor(err)
	log := h.logger.WithError(err).WithField("portfolio_id", portfolioID)

	if status >= http.StatusInternalServerError {
		log.Error("Report request failed")
		respondError(w, status, "Failed to build report")
		return
	}

	log.Debug("Report request rejected")
	respondError(w, status, err.Error())
}

// parseAnalysisRequest reads the portfolio id, range and benchmark set.
// An absent benchmarks parameter means profile defaults, an empty one means none.
func parseAnalysisRequest(r *http.Request) (contracts.AnalysisRequest, error) {
	q := r.URL.Query()
	req := contracts.AnalysisRequest{PortfolioID: mux.Vars(r)["id"]}

	var err error
	if req.Range.From, err = parseTime(q.Get("from"), false); err != nil {
		return req, fmt.Errorf("invalid from: %w", err)
	}
	if req.Range.To, err = parseTime(q.Get("to"), true); err != nil {
		return req, fmt.Errorf("invalid to: %w", err)
	}

	if _, ok := q["benchmarks"]; ok {
		req.Benchmarks = splitList(q.Get("benchmarks"))
	}
	return req, nil
}

// parseTime accepts RFC3339 or YYYY-MM-DD; a bare date used as an upper
// bound covers the whole day.
func parseTime(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
