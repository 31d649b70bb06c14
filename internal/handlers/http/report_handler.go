package http

import (
	"context"
	"net/http"
	"time"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"
	"proctorhub/pkg/errors"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports   ports.ReportService
	opTimeout time.Duration
}

func NewReportHandler(reports ports.ReportService, opTimeout time.Duration) *ReportHandler {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &ReportHandler{reports: reports, opTimeout: opTimeout}
}

func (h *ReportHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/sessions/:id/report", h.GetReport)
	}
}

// ReportResponse always carries a well-formed body: a session that was never
// recorded comes back as null with whatever events exist for the identifier.
type ReportResponse struct {
	OK      bool            `json:"ok"`
	Session *domain.Session `json:"session"`
	Events  []*domain.Event `json:"events"`
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.Error(errors.NewInvalidInputError("session id required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	report, err := h.reports.GetReport(ctx, domain.SessionID(sessionID))
	if err != nil {
		c.Error(errors.NewStoreUnavailableError(err))
		return
	}

	c.JSON(http.StatusOK, ReportResponse{
		OK:      true,
		Session: report.Session,
		Events:  report.Events,
	})
}
