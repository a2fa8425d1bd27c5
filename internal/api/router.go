package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis/v13/perf/internal/api/handlers"
	"github.com/wonny/aegis/v13/perf/pkg/logger"
	"github.com/wonny/aegis/v13/perf/pkg/metrics"
)

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker
type HealthCheckFunc func(ctx context.Context) error

// HealthCheck implements HealthChecker
func (f HealthCheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// HealthCheck is one named dependency probe on /health.
// A failing Critical check turns the response into 503.
type HealthCheck struct {
	Name     string
	Checker  HealthChecker
	Critical bool
}

// RouterDeps are the collaborators wired into the router.
// Metrics, Limiter and Health are optional.
type RouterDeps struct {
	Reports *handlers.ReportHandler
	Metrics *metrics.Metrics
	Limiter *ClientLimiter
	Health  []HealthCheck
	Logger  *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("api")

	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(deps.Health)).Methods("GET")

	// Prometheus
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()
	if deps.Limiter != nil {
		api.Use(deps.Limiter.Middleware())
	}

	// Report endpoints
	api.HandleFunc("/portfolios/{id}/report", deps.Reports.GetReport).Methods("GET")
	api.HandleFunc("/portfolios/{id}/report/latest", deps.Reports.GetLatest).Methods("GET")
	api.HandleFunc("/portfolios/{id}/stream", deps.Reports.Stream).Methods("GET")
	api.HandleFunc("/analyze", deps.Reports.Compute).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log, deps.Metrics))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		body := map[string]interface{}{
			"service": "perf-api",
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, c := range checks {
			if err := c.Checker.HealthCheck(ctx); err != nil {
				body[c.Name] = err.Error()
				status = "degraded"
				if c.Critical {
					code = http.StatusServiceUnavailable
				}
				continue
			}
			body[c.Name] = "ok"
		}
		body["status"] = status

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}
}
