package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/config"
	applog "tally/internal/log"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.LevelFromEnv(),
		Component: applog.ComponentWorker,
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer amqpClient.Close()

	snapshots := worker.NewSnapshotWorker(repo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Populate snapshots before consuming so a fresh database still serves
	// the insight endpoint.
	if err := snapshots.Refresh(ctx); err != nil {
		logger.Error("Initial snapshot refresh failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Consuming transaction change events", "queue", cfg.AMQPQueue)
		return amqpClient.ConsumeTransactionChanges(ctx, func(msg *amqp.TransactionChangedMessage) error {
			return snapshots.HandleChangeMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := snapshots.Refresh(ctx); err != nil {
					logger.Error("Periodic snapshot refresh failed", "error", err)
				}
			}
		}
	})

	logger.Info("Snapshot worker started", "interval", cfg.SnapshotInterval.String())

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
