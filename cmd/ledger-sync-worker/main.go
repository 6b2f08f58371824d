package main

import (
	"context"
	"errors"
	"os"
	"time"

	"lifeledger/internal/amqp"
	"lifeledger/internal/cache"
	"lifeledger/internal/cli"
	"lifeledger/internal/log"
	gsheet "lifeledger/internal/sheets/google"
	"lifeledger/internal/storage"
	"lifeledger/internal/worker"
)

// ledger-sync-worker mirrors transaction changes from AMQP into a Google
// spreadsheet.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting ledger-sync-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}
	if !cfg.SheetsEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the sync worker")
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	sheetsClient, err := gsheet.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	caches := cache.NewManager()
	caches.Register("sheet-rows", sheetsClient.RowCache())
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	store := cli.InitStore(ctx, logger, cfg)
	defer store.Cleanup()

	syncWorker := worker.NewSyncWorker(sheetsClient, worker.WithSnapshots(store.Store))

	// On startup, mirror the stored snapshot so changes missed while the
	// worker was down are reflected.
	startupResync(ctx, logger, store.Store, syncWorker)

	go func() {
		if err := amqpClient.ConsumeChanges(ctx, syncWorker.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

func startupResync(ctx context.Context, logger *log.Logger, store storage.SnapshotStore, w *worker.SyncWorker) {
	snap, version, err := store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		logger.Info("No stored snapshot, skipping startup resync")
		return
	case err != nil:
		logger.Error("Failed to load snapshot for resync", "error", err)
		return
	}

	logger.Info("Performing startup resync", "version", version, "transactions", len(snap.Transactions))
	if err := w.Resync(ctx, snap); err != nil {
		log.NewStructuredLogger(logger).LogFailure(ctx, "Startup resync failed", err, log.ComponentWorker, log.OpSync)
	}
}
