package http

import (
	"net/http"
	"time"

	"proctorhub/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checker     *monitoring.HealthChecker
	connections func() int
	startedAt   time.Time
}

func NewHealthHandler(checker *monitoring.HealthChecker, connections func() int) *HealthHandler {
	return &HealthHandler{
		checker:     checker,
		connections: connections,
		startedAt:   time.Now(),
	}
}

func (h *HealthHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c *gin.Context) {
	status := h.checker.CheckAll(c.Request.Context())

	code := http.StatusOK
	if status.Status != monitoring.StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	body := gin.H{
		"status":    status.Status,
		"timestamp": status.Timestamp,
		"uptime":    time.Since(h.startedAt).String(),
		"checks":    status.Checks,
	}
	if h.connections != nil {
		body["connections"] = h.connections()
	}

	c.JSON(code, body)
}
