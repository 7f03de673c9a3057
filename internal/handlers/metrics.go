package handlers

import (
	"net/http"

	"github.com/MonkyMars/gecho"

	"github.com/CLDWare/pollroom-backend/internal/metrics"
)

// MetricsHandler exposes the websocket server counters
type MetricsHandler struct {
	metrics *metrics.Metrics
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{
		metrics: m,
	}
}

// GetMetrics
//
// @Summary		Get server metrics
// @Description	Get connection, poll and message counters plus resource usage
// @Tags			metrics
// @Produce		json
// @Success		200	{object} apiResponses.BaseResponse
// @Router 			/metrics		[get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if err := gecho.Handlers.HandleMethod(w, r, http.MethodGet); err != nil {
		err.Send() // Automatically sends 405 Method Not Allowed
		return
	}

	gecho.Success(w).WithData(h.metrics.Snapshot()).Send()
}
