package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"kpi-diagnostics/internal/api"
	"kpi-diagnostics/internal/config"
	"kpi-diagnostics/internal/events"
	"kpi-diagnostics/internal/llm"
	"kpi-diagnostics/internal/logging"
	"kpi-diagnostics/internal/metrics"
	"kpi-diagnostics/internal/pipeline"
	"kpi-diagnostics/internal/store"
)

func main() {
	bootLogger := logrus.New()

	// Load configuration (.env, config file, KPI_* environment)
	cfg, err := config.Load(bootLogger, os.Getenv("KPI_CONFIG_FILE"))
	if err != nil {
		bootLogger.WithError(err).Fatal("Failed to load configuration")
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		bootLogger.WithError(err).Fatal("Failed to configure logging")
	}

	metrics.Init(logger)

	// Initialize Services
	analyzer, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build analysis pipeline")
	}

	var repo api.Store
	if cfg.Store.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		repository, err := store.New(ctx, cfg.Store)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("Failed to open database")
		}
		defer repository.Close()
		repo = repository
		logger.WithField("driver", cfg.Store.Driver).Info("Database ready")
	} else {
		logger.Warn("Persistence disabled, analyses will not be stored")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		amqpPublisher := events.NewAMQPPublisher(logger, cfg.Events)
		if err := amqpPublisher.Connect(); err != nil {
			logger.WithError(err).Warn("AMQP unavailable, events disabled")
		} else {
			publisher = amqpPublisher
		}
	}
	defer publisher.Close()

	var summarizer api.Summarizer
	if cfg.LLM.Enabled {
		llmService := llm.NewService(cfg.LLM)
		summarizer = llmService
		logger.WithField("model", llmService.Model()).Info("AI summaries enabled")
	}

	// Initialize Handler
	handler := api.NewHandler(analyzer, repo, publisher, summarizer, logger, cfg.Server.MaxUploadBytes)

	// Router Setup
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS - Allow frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Root endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("KPI Diagnostics Service is Running"))
	})

	// Register all API Routes
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"origins": cfg.Server.AllowedOrigins,
		}).Info("Starting KPI diagnostics server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server forced to shutdown")
	}
	logger.Info("Server exited")
}
