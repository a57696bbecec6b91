// The envelope-worker consumes budget-change events and keeps the month
// summary sheet in step with the store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"envelope/internal/amqp"
	"envelope/internal/config"
	"envelope/internal/ledger"
	"envelope/internal/ledger/memory"
	"envelope/internal/ledger/sqlite"
	applog "envelope/internal/log"
	"envelope/internal/services"
	"envelope/internal/sheets"
	gsheet "envelope/internal/sheets/google"
	summem "envelope/internal/sheets/memory"
	"envelope/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting envelope-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker reads the same store the API writes.
	var store ledger.Store
	switch cfg.DataBackend {
	case "sqlite":
		sqlStore, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqlStore.Close()
		store = sqlStore
	default:
		store = memory.New()
		logger.Warn("Memory backend selected: the worker sees none of the API's data")
	}

	var writer sheets.SummaryWriter
	if cfg.SheetsExportEnabled() {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		writer = summem.New()
		logger.Info("Google Sheets export disabled, summaries stay in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exportWorker := worker.NewExportWorker(services.NewBudgetService(store, nil), writer)

	// Re-export the current month on startup to recover anything missed
	// while the worker was down.
	now := time.Now()
	if err := exportWorker.HandleBudgetEvent(amqp.NewBudgetEventMessage("startup", int(now.Month()), now.Year())); err != nil {
		logger.Error("Failed to queue startup export", "error", err)
	}

	go func() {
		if err := amqpClient.ConsumeBudgetEvents(ctx, exportWorker.HandleBudgetEvent); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	go func() {
		if err := exportWorker.Run(ctx, cfg.ExportInterval); err != nil && err != context.Canceled {
			logger.Error("Export loop failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give the final flush a moment before the process exits.
	time.Sleep(2 * time.Second)
	logger.Info("Worker stopped")
}
