package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewOpsRouter returns a chi router serving the operational endpoints:
//
//	GET /healthz  liveness
//	GET /readyz   readiness, backed by checks
//	GET /metrics  Prometheus exposition of gatherer
//
// Callers mount their own routes on the returned router.
func NewOpsRouter(log *slog.Logger, gatherer prometheus.Gatherer, checks ...Check) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", LivenessHandler())
	r.Get("/readyz", ReadinessHandler(log, checks...))

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
