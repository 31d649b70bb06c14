package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proctorhub/internal/core/ports"
	"proctorhub/internal/core/services"
	httphandlers "proctorhub/internal/handlers/http"
	"proctorhub/internal/infrastructure/middleware"
	"proctorhub/internal/infrastructure/monitoring"
	repositories "proctorhub/internal/infrastructure/repositories"
	signalrelay "proctorhub/internal/infrastructure/signal"
	"proctorhub/internal/infrastructure/storage"
	"proctorhub/pkg/config"
	"proctorhub/pkg/logger"
	"proctorhub/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/proctorhub/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "proctorhub",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: os.Getenv("PROCTORHUB_ENV"),
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	sessionRepo := repoFactory.CreateSessionRepository()
	eventRepo := repoFactory.CreateEventRepository()

	// Initialize services
	registry := services.NewRoomRegistry()
	reportService := services.NewReportService(sessionRepo, eventRepo)

	// Initialize monitoring
	promRegistry := prometheus.NewRegistry()
	collector := monitoring.NewPrometheusCollector(promRegistry)

	// Initialize the WebSocket relay
	wsConfig := signalrelay.Config{
		PingInterval:   cfg.WebSocket.PingInterval,
		PongTimeout:    cfg.WebSocket.PongTimeout,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		SendBufferSize: cfg.WebSocket.SendBufferSize,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		OpTimeout:      cfg.Storage.OpTimeout,
	}
	if cfg.RateLimiting.Enabled {
		wsConfig.MessagesPerSecond = cfg.RateLimiting.WebSocket.MessagesPerSecond
		wsConfig.MessageBurst = cfg.RateLimiting.WebSocket.Burst
	}
	wsServer := signalrelay.NewWebSocketServer(registry, sessionRepo, eventRepo, collector, wsConfig, log)

	// Initialize the recording uploader when enabled
	var uploader ports.RecordingUploader
	if cfg.Upload.Enabled {
		uploader, err = storage.NewS3Uploader(context.Background(), storage.Config{
			Bucket:        cfg.Upload.Bucket,
			Region:        cfg.Upload.Region,
			Endpoint:      cfg.Upload.Endpoint,
			PublicBaseURL: cfg.Upload.PublicBaseURL,
		}, log)
		if err != nil {
			log.Fatalw("failed to initialize recording uploader", "error", err)
		}
	}

	// Initialize health checks
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("storage", repoFactory.HealthCheck, 2*time.Second)

	// Initialize HTTP handlers
	reportHandler := httphandlers.NewReportHandler(reportService, cfg.Storage.OpTimeout)
	uploadHandler := httphandlers.NewUploadHandler(
		uploader,
		sessionRepo,
		collector,
		cfg.Upload.MaxUploadBytes,
		cfg.Storage.OpTimeout,
		log,
	)
	healthHandler := httphandlers.NewHealthHandler(healthChecker, wsServer.ConnectionCount)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestLoggerMiddleware(zapLogger))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	reportHandler.SetupRoutes(router)
	uploadHandler.SetupRoutes(router)
	healthHandler.SetupRoutes(router)

	// WebSocket entry point
	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))

	// Readiness endpoint
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{
				"status":    "not_ready",
				"timestamp": time.Now(),
				"error":     err.Error(),
			})
			return
		}

		c.JSON(200, gin.H{
			"status":    "ready",
			"timestamp": time.Now(),
		})
	})

	// Prometheus metrics on a dedicated listener
	var metricsSrv *http.Server
	if cfg.Monitoring.PrometheusEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
			Handler: metricsMux,
		}
		go func() {
			log.Infof("Prometheus metrics listening on %s", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("metrics server failed", "error", err)
			}
		}()
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting ProctorHub relay on %s (storage backend: %s)", cfg.Server.Address, cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down ProctorHub relay...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Errorw("Error during metrics server shutdown", "error", err)
		}
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("ProctorHub relay stopped")
}
