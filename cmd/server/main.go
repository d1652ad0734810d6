package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/auth"
	"github.com/crisjonblvx/facultyflow/internal/cache"
	"github.com/crisjonblvx/facultyflow/internal/config"
	"github.com/crisjonblvx/facultyflow/internal/handlers"
	"github.com/crisjonblvx/facultyflow/internal/lms"
	"github.com/crisjonblvx/facultyflow/internal/repositories/postgres"
	"github.com/crisjonblvx/facultyflow/internal/services"
	"github.com/crisjonblvx/facultyflow/internal/utils"
	"github.com/crisjonblvx/facultyflow/internal/validator"
	"github.com/crisjonblvx/facultyflow/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := utils.NewBaseLogger(cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ── Storage ─────────────────────────────────────────────────────
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to initialise database", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(db)

	var cacheService cache.CacheService
	redisClient, err := pkg.NewRedisClient(context.Background(), cfg)
	if err != nil {
		logger.Warn("Redis unavailable, analysis cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, logger)
	}

	// ── Events ──────────────────────────────────────────────────────
	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// ── LMS & services ──────────────────────────────────────────────
	if cfg.Canvas.Token == "" {
		logger.Warn("CANVAS_TOKEN is empty, LMS calls will be rejected")
	}
	canvas := lms.NewCanvasClient(lms.CanvasConfig{
		BaseURL:         cfg.Canvas.BaseURL,
		Token:           cfg.Canvas.Token,
		RequestsPerHour: cfg.Canvas.RequestsPerHour,
		Timeout:         cfg.Canvas.Timeout,
		Logger:          logger,
	})

	v := validator.New()
	setupService := services.NewGradingSetupService(canvas, repo, cacheService, publisher, logger, v, cfg.AnalysisCacheTTL)
	gradeService := services.NewGradeService(canvas, repo, publisher, logger, v)

	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		logger.Error("Failed to configure auth", "error", err)
		os.Exit(1)
	}

	// ── HTTP ────────────────────────────────────────────────────────
	handlerLogger := utils.NewSlogLogger(logger)
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestIDMiddleware(), utils.LoggerMiddleware(handlerLogger))
	handlers.NewHandlerManager(setupService, gradeService, verifier, handlerLogger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		logger.Info("Shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
	}()

	logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
