package http

import (
	"net/http"

	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
)

// MetricsHandler exposes the Prometheus registry
type MetricsHandler struct {
	exporter     http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler creates a new metrics handler. exporter is nil when
// metrics are disabled.
func NewMetricsHandler(exporter http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter, errorHandler: errorHandler}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusNotFound, "METRICS_DISABLED", "Metrics are disabled"))
		return
	}
	h.exporter.ServeHTTP(w, r)
}
