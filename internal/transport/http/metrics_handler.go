package http

import (
	"github.com/go-chi/chi/v5"

	"idqcli/internal/infrastructure"
)

// MetricsHandler exposes the Prometheus registry.
type MetricsHandler struct {
	metrics *infrastructure.Metrics
}

// NewMetricsHandler creates a metrics handler.
func NewMetricsHandler(metrics *infrastructure.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Routes returns the router for the metrics endpoint.
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Handle("/", h.metrics.Handler())
	return r
}
