package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"facestream/internal/core/domain"
	"facestream/internal/core/services"
	httphandlers "facestream/internal/handlers/http"
	"facestream/internal/infrastructure/highlight"
	"facestream/internal/infrastructure/middleware"
	"facestream/internal/infrastructure/monitoring"
	"facestream/internal/infrastructure/repositories/memory"
	"facestream/internal/infrastructure/transport"
	"facestream/pkg/config"
	"facestream/pkg/logger"
	"facestream/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/facestream/config.yaml",
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
		// Fallback to defaults if no config file can be loaded
		cfg = config.DefaultConfig()
		cfg.ApplyEnvOverrides()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "facestream-orchestrator",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	defaults := domain.PersistentSettings{
		RTMPURL:                 cfg.Stream.DefaultRTMPURL,
		StreamMode:              domain.StreamMode(cfg.Stream.DefaultMode),
		FaceHighlightingEnabled: cfg.Stream.DefaultHighlighting,
	}

	// Initialize repositories
	settingsStore := memory.NewSettingsStore(defaults)
	sessionRegistry := memory.NewSessionRegistry()

	// Initialize monitoring
	collector := monitoring.NewPrometheusCollector()

	// Initialize highlighting service client
	highlightClient, err := highlight.NewClient(highlight.Config{
		BaseURL:             cfg.Highlight.BaseURL,
		IngestHost:          cfg.Highlight.IngestHost,
		DetectEvery:         cfg.Highlight.DetectEvery,
		SimilarityThreshold: cfg.Highlight.SimilarityThreshold,
	}, log)
	if err != nil {
		log.Fatalw("failed to create highlight client", "error", err)
	}

	// Initialize services
	streamService := services.NewStreamService(sessionRegistry, settingsStore, highlightClient, defaults, collector, log)
	statusService := services.NewStatusService(sessionRegistry, collector, log)

	// Initialize device transport
	wsServer := transport.NewWebSocketServer(
		sessionRegistry,
		settingsStore,
		statusService,
		transport.Options{
			PingInterval: cfg.Transport.PingInterval,
			PongTimeout:  cfg.Transport.PongTimeout,
			WriteTimeout: cfg.Transport.WriteTimeout,
			AuthToken:    cfg.Transport.AuthToken,
		},
		collector,
		log,
	)

	// Initialize HTTP handlers
	streamHandler := httphandlers.NewStreamHandler(streamService)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	// Device websocket endpoint
	router.GET("/ws", gin.WrapF(wsServer.HandleDeviceSession))

	// Command surface with authentication
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))
	api.Use(middleware.ErrorHandlerMiddleware(log))
	streamHandler.SetupRoutes(api)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Readiness endpoint
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":      "ready",
			"timestamp":   time.Now(),
			"connections": len(wsServer.ConnectedUsers()),
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
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
		log.Infof("Starting FaceStream orchestrator on %s", cfg.Server.Address)
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

	log.Info("Shutting down FaceStream orchestrator...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	log.Info("FaceStream orchestrator stopped")
}
