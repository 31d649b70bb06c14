package middleware

import (
	"time"

	"proctorhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware tags each request with an identifier, propagates it
// through the request context and logs the outcome.
func RequestLoggerMiddleware(zapLogger *zap.Logger) gin.HandlerFunc {
	cl := logger.NewContextLogger(zapLogger)

	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		log := cl.WithContext(ctx)
		if len(c.Errors) > 0 {
			log = log.With(zap.Error(c.Errors.Last().Err))
		}
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
