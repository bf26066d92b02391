package http

import (
	"net/http"

	"talentwire/internal/infrastructure/monitoring"
	"talentwire/pkg/circuitbreaker"

	"github.com/gin-gonic/gin"
)

// OpsHandler serves health and resilience introspection.
type OpsHandler struct {
	health   *monitoring.HealthChecker
	breakers *circuitbreaker.Registry
}

func NewOpsHandler(health *monitoring.HealthChecker, breakers *circuitbreaker.Registry) *OpsHandler {
	return &OpsHandler{health: health, breakers: breakers}
}

// Health handles GET /health. Degraded dependencies report 200: the relay
// itself is alive and still serving the healthy paths.
func (h *OpsHandler) Health(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())
	c.JSON(http.StatusOK, status)
}

// Breakers handles GET /api/v1/breakers: a per-dependency snapshot of
// breaker state and counters.
func (h *OpsHandler) Breakers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"breakers": h.breakers.Stats()})
}
