package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/cache"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/database"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/logging"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/metrics"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/middleware"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/queue"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/storage"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/tracing"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create logger")
	}

	// Initialize JWT secret from config
	middleware.SetJWTSecret(cfg.Auth.JWTSecret)
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("No JWT secret configured, write endpoints will reject every request")
	}

	_, closer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
	} else {
		defer closer.Close()
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	procOpts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithStore(repo)}

	api := &API{
		queries:      repo,
		translations: repo,
		health:       db,
		logger:       logger,
		maxUpload:    cfg.Server.MaxUploadSize,
		overviewTTL:  time.Minute,
	}

	if cfg.Redis.Enabled {
		c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, serving without cache")
		} else {
			defer c.Close()
			api.cache = c
			procOpts = append(procOpts, pipeline.WithCache(c))
		}
	}

	if cfg.Storage.Enabled {
		stor, err := storage.New(cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
		procOpts = append(procOpts, pipeline.WithObjectStore(stor))
	}

	// Initialize queue; without it job submission is unavailable
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.WithError(err).Warn("Queue unavailable, job submission disabled")
	} else {
		defer q.Close()
		api.queue = q
	}

	api.processor = pipeline.FromConfig(cfg.Analysis, procOpts...)

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	stopCleanup := make(chan struct{})
	go limiter.Cleanup(time.Minute, stopCleanup)
	defer close(stopCleanup)

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(api,
		gin.Recovery(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.RateLimit(limiter),
	)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.WithField("addr", addr).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}
