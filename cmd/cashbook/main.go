package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cashbook/internal/cache"
	"cashbook/internal/cli"
	"cashbook/internal/dashboard"
	"cashbook/internal/feed"
	apphttp "cashbook/internal/http"
	"cashbook/internal/identity"
	"cashbook/internal/log"
	"cashbook/internal/purge"
	"cashbook/internal/services"
	gsheet "cashbook/internal/sheets/google"
	"cashbook/internal/store"
	"cashbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	roster := cli.Roster(logger, cfg)
	loc := cli.Location(logger, cfg)

	// runCtx outlives request handling and is cancelled last.
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	be := cli.InitBackend(runCtx, logger, cfg)

	caches := cache.NewManager(logger)
	dash := dashboard.NewService(be.Store, roster,
		dashboard.WithLocation(loc),
		dashboard.WithLogger(logger),
		dashboard.WithCacheManager(caches))
	caches.StartCleanup(5 * time.Minute)

	records := services.NewRecordService(be.Store, roster,
		services.WithViews(dash),
		services.WithLocation(loc),
		services.WithLogger(logger))

	engine := purge.NewEngine(be.Store, roster,
		purge.WithBatchSize(cfg.PurgeBatchSize),
		purge.WithLocation(loc),
		purge.WithLogger(logger),
		purge.OnPurged(func(context.Context, purge.Outcome) { dash.Reload() }))

	broadcaster := feed.NewBroadcaster()
	activity, err := feed.Start(runCtx, be.Store, feed.Options{
		PageSize: cfg.FeedPageSize,
		FeedSize: cfg.FeedSize,
		Location: loc,
		Logger:   logger,
	}, broadcaster.Publish)
	if err != nil {
		logger.Error("Failed to start activity feed", log.FieldError, err)
		os.Exit(1)
	}

	var relay *worker.Relay
	if be.Changes != nil {
		relay = worker.NewRelay(be.Changes, be.Store.Hub(), func(store.Change) { dash.Reload() }, logger)
		if err := relay.Start(runCtx); err != nil {
			logger.Error("Failed to start change relay", log.FieldError, err)
		}
	}

	// The schedule runs in cashbook-worker; here exports are on demand only.
	var exports *services.ExportProcessor
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err := gsheet.NewFromConfig(runCtx, cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		exports = services.NewExportProcessor(records, roster, exporter, services.ExportProcessorConfig{
			Interval: cfg.ExportInterval,
			Sheet:    cfg.ExportSheetName,
		}, logger)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Dashboard:   dash,
		Board:       dashboard.NewBoard(dash),
		Records:     records,
		Purge:       engine,
		Exports:     exports,
		Activity:    activity,
		Broadcaster: broadcaster,
		Roster:      roster,
		Verifier:    identity.NewVerifier(cfg.AuthSecret),
		Ready:       readiness(be.Store),
		Location:    loc,
		Logger:      logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if relay != nil {
			if err := relay.Stop(ctx); err != nil {
				logger.Warn("Change relay stop error", log.FieldError, err)
			}
		}
		activity.Close()
		caches.Stop()
		stopRun()
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting cashbook server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"relay", relay != nil,
		"export", exports != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// readiness pings backends that support it.
func readiness(st any) func(context.Context) error {
	p, ok := st.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping
}
