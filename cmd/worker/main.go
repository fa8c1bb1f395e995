package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/cache"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/database"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/logging"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/metrics"
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
	logger = logger.WithWorkerID(workerID())

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

	procOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithStore(database.NewRepository(db)),
	}

	// Storage is optional: without it only file jobs can run
	if cfg.Storage.Enabled {
		stor, err := storage.New(cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
		procOpts = append(procOpts, pipeline.WithObjectStore(stor))
	}

	if cfg.Redis.Enabled {
		c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, running without file locks")
		} else {
			defer c.Close()
			procOpts = append(procOpts, pipeline.WithCache(c))
		}
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := srv.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	processor := pipeline.FromConfig(cfg.Analysis, procOpts...)
	w := newWorker(processor, logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	go reportQueueDepth(ctx, q, logger)

	// Start consuming jobs
	logger.Info("Worker started, waiting for jobs...")
	if err := q.ConsumeJobs(ctx, w.handle); err != nil {
		logger.Fatalf("Failed to consume jobs: %v", err)
	}

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("Worker stopped")
}

// depthSource reports how many messages wait in the work and dead letter
// queues
type depthSource interface {
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

func reportQueueDepth(ctx context.Context, q depthSource, logger *logging.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recordQueueDepth(q, logger)
		}
	}
}

func recordQueueDepth(q depthSource, logger *logging.Logger) {
	if depth, err := q.GetQueueDepth(); err != nil {
		logger.WithError(err).Debug("Queue depth unavailable")
	} else {
		metrics.UpdateQueueDepth(depth)
	}

	if depth, err := q.GetDLQDepth(); err != nil {
		logger.WithError(err).Debug("Dead letter queue depth unavailable")
	} else {
		metrics.UpdateDeadLetterDepth(depth)
	}
}

// workerID identifies this consumer in logs as host-pid
func workerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
