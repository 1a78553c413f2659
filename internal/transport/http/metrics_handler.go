package http

import (
	"net/http"

	"factorlens/internal/infrastructure"
)

// MetricsHandler exposes the Prometheus scrape endpoint
type MetricsHandler struct {
	metrics *infrastructure.Metrics
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metrics *infrastructure.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Metrics handles GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.Handler.ServeHTTP(w, r)
}
