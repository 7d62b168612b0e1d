// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/sibrol/pkg/metrics"
)

// ReadinessProvider reports whether lookups can be served.
type ReadinessProvider interface {
	Loaded() bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	ready ReadinessProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(ready ReadinessProvider) *HealthHandler {
	return &HealthHandler{ready: ready}
}

type healthResponse struct {
	Status string `json:"status"`
	Loaded bool   `json:"loaded"`
}

// HandleHealth handles GET /healthz requests. The process is healthy as soon
// as it serves; Loaded tells whether /annotate can answer.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Loaded: h.ready.Loaded()})
}

// MetricsHandler serves our custom metrics registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
