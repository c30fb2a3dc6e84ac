package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskmanager/backend/broker"
	"taskmanager/backend/config"
	"taskmanager/backend/database"
	"taskmanager/backend/middleware"
	"taskmanager/backend/routes"
	"taskmanager/backend/services"
	"taskmanager/backend/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	envFileErr := config.LoadEnvFile()

	logger, err := newLogger(os.Getenv("APP_ENV") == "production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if envFileErr != nil {
		logger.Warn("failed to read .env file", zap.Error(envFileErr))
	}
	cfg := config.Load(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	db, err := database.Setup(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	store, err := storage.NewFileBlobStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("failed to initialize upload directory", zap.Error(err))
	}

	// Events stay pending in the outbox when NATS is not configured or unreachable
	var publisher broker.Publisher
	if cfg.NATSURL != "" {
		producer, err := broker.InitProducer(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("NATS unavailable, events will stay pending", zap.Error(err))
		} else {
			publisher = producer
			defer producer.Close()
		}
	}

	eventHandlerService := services.NewEventHandlerService(db, publisher, logger)
	if sent, err := eventHandlerService.ProcessPendingEvents(); err != nil {
		logger.Warn("failed to publish pending events", zap.Error(err))
	} else if sent > 0 {
		logger.Info("published pending events", zap.Int("count", sent))
	}

	authService := services.NewAuthService(db, eventHandlerService, cfg.JWTSecret, cfg.JWTExpirationHours)
	userService := services.NewUserService(db, eventHandlerService)
	attachmentService := services.NewAttachmentService(store, cfg.MaxUploadSizeBytes, logger)
	taskService := services.NewTaskService(db, attachmentService, userService, eventHandlerService, logger)

	router := routes.NewRouter(db, routes.Services{
		Auth:  authService,
		Users: userService,
		Tasks: taskService,
	}, routes.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadSize:  cfg.MaxUploadSizeBytes,
		AuthRate:       middleware.PerMinute(cfg.LoginRatePerMinute),
		AuthBurst:      cfg.LoginRateBurst,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server is running", zap.String("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}
