package main

import (
	"context"
	"os"
	"time"

	"cashbook/internal/backend"
	"cashbook/internal/cli"
	"cashbook/internal/log"
	"cashbook/internal/services"
	gsheet "cashbook/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)

	logger.Info("Starting cashbook-worker")

	// A memory store would be private to this process and always empty.
	if backend.BackendType(cfg.DataBackend) != backend.SQLiteBackend {
		logger.Error("cashbook-worker requires DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("cashbook-worker requires GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	roster := cli.Roster(logger, cfg)
	loc := cli.Location(logger, cfg)

	be := cli.InitBackend(context.Background(), logger, cfg)

	exporter, err := gsheet.NewFromConfig(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	records := services.NewRecordService(be.Store, roster,
		services.WithLocation(loc),
		services.WithLogger(logger))
	processor := services.NewExportProcessor(records, roster, exporter, services.ExportProcessorConfig{
		Interval: cfg.ExportInterval,
		Sheet:    cfg.ExportSheetName,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Export processor stop error", log.FieldError, err)
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start export processor", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
