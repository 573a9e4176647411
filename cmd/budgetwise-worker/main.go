package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budgetwise/internal/amqp"
	"budgetwise/internal/config"
	"budgetwise/internal/ledger/google"
	"budgetwise/internal/log"
	"budgetwise/internal/storage"
	"budgetwise/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{Level: cfg.LogLevel, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting budgetwise-worker")

	// The worker has no HTTP surface, so only the mirror settings are checked.
	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheets, err := google.New(ctx, google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		TransactionsSheet:  cfg.GoogleTransactionsSheet,
		BudgetsSheet:       cfg.GoogleBudgetsSheet,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	mirror := worker.NewMirror(repo, sheets, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check")
	if err := mirror.StartupSync(ctx); err != nil {
		logger.Error("Startup sync failed", "error", err)
	}

	go mirror.Run(ctx, cfg.SyncInterval)

	if err := client.Consume(ctx, mirror.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
