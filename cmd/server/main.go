package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/inkwell/internal/config"
	"github.com/zfogg/inkwell/internal/container"
	"github.com/zfogg/inkwell/internal/database"
	"github.com/zfogg/inkwell/internal/handlers"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/metrics"
	"github.com/zfogg/inkwell/internal/server"
	"github.com/zfogg/inkwell/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, envLoaded := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Inkwell server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.Database.Driver),
	)
	if !envLoaded {
		logger.Log.Warn(".env file not found, using system environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.FatalWithFields("Invalid configuration", err)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Initialize()

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		logger.FatalWithFields("Failed to initialize tracing", err)
	}

	deps, err := container.Bootstrap(ctx, cfg)
	if err != nil {
		logger.FatalWithFields("Failed to initialize dependencies", err)
	}
	if err := deps.Validate(); err != nil {
		logger.FatalWithFields("Dependency container is incomplete", err)
	}
	deps.StartBackground()

	h := handlers.NewHandlers(deps.Ledger(), deps.Content(), deps.Teardown())
	if files := deps.Files(); files != nil {
		h.SetUploader(files)
	}
	h.AddHealthCheck(handlers.HealthCheck{
		Name:  "database",
		Check: func(ctx context.Context) error { return database.Health(ctx, deps.DB()) },
	})
	h.AddHealthCheck(handlers.HealthCheck{
		Name:  "redis",
		Check: deps.Cache().Ping,
	})

	router := server.NewRouter(server.Options{
		Handlers:           h,
		Tokens:             deps.Tokens(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Tracing:            cfg.Telemetry.Enabled,
		ServiceName:        telemetry.ServiceName,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Inkwell API listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := deps.Cleanup(shutdownCtx); err != nil {
		logger.ErrorWithFields("Cleanup finished with errors", err)
	}
	// Last, so spans from the cleanup above are exported too
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.ErrorWithFields("Failed to flush traces", err)
	}

	logger.Log.Info("Server exited")
}
