package http

import (
	"context"
	"net/http"
	"time"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadMetrics records the outcome of recording uploads.
type UploadMetrics interface {
	RecordUpload(ok bool)
}

type UploadHandler struct {
	uploader  ports.RecordingUploader
	sessions  ports.SessionRepository
	metrics   UploadMetrics
	maxBytes  int64
	opTimeout time.Duration
	logger    *zap.SugaredLogger
}

func NewUploadHandler(
	uploader ports.RecordingUploader,
	sessions ports.SessionRepository,
	metrics UploadMetrics,
	maxBytes int64,
	opTimeout time.Duration,
	logger *zap.SugaredLogger,
) *UploadHandler {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &UploadHandler{
		uploader:  uploader,
		sessions:  sessions,
		metrics:   metrics,
		maxBytes:  maxBytes,
		opTimeout: opTimeout,
		logger:    logger,
	}
}

func (h *UploadHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/sessions/:id/recording", h.UploadRecording)
	}
}

func (h *UploadHandler) UploadRecording(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "session id required"})
		return
	}

	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "recording upload disabled"})
		return
	}

	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "video file required"})
		return
	}
	if h.maxBytes > 0 && fileHeader.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "recording too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable video file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.uploader.Upload(c.Request.Context(), domain.SessionID(sessionID), file, fileHeader.Size, contentType)
	if err != nil {
		h.recordUpload(false)
		h.logger.Errorw("recording upload failed",
			"session_id", sessionID,
			"size", fileHeader.Size,
			"error", err)
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "upload failed"})
		return
	}

	now := time.Now().UTC()
	patch := domain.SessionPatch{
		VideoURL: &url,
		EndTime:  &now,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()
	if err := h.sessions.Upsert(ctx, domain.SessionID(sessionID), patch); err != nil {
		// The object is already stored; report the URL but flag the metadata miss.
		h.logger.Errorw("recording metadata upsert failed",
			"session_id", sessionID,
			"url", url,
			"error", err)
	}

	h.recordUpload(true)
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}

func (h *UploadHandler) recordUpload(ok bool) {
	if h.metrics != nil {
		h.metrics.RecordUpload(ok)
	}
}
