package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/semillero-service/internal/observability"
)

// MetricsHandler exposes the in-memory counters.
type MetricsHandler struct {
	metrics *observability.Metrics
	active  func() int
}

// NewMetricsHandler constructs handler. active reports the live session count.
func NewMetricsHandler(metrics *observability.Metrics, active func() int) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, active: active}
}

// Get GET /metrics.
func (h *MetricsHandler) Get(c *fiber.Ctx) error {
	resp := fiber.Map{"counters": h.metrics.Snapshot()}
	if h.active != nil {
		resp["active_sessions"] = h.active()
	}
	return c.JSON(fiber.Map{"data": resp})
}
