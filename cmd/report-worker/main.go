package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"homesplit/internal/amqp"
	"homesplit/internal/cache"
	"homesplit/internal/cli"
	"homesplit/internal/export"
	gexport "homesplit/internal/export/google"
	"homesplit/internal/services"
	"homesplit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Sheets export is optional; without a spreadsheet ID the worker only
	// maintains the local cache and snapshots.
	var exporter export.ReportExporter
	if cfg.ExportEnabled() {
		client, err := gexport.NewFromConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reports := services.NewReportService(repo, cfg.ReportCacheSize)
	reportWorker := worker.NewReportWorker(reports, exporter, cfg.SnapshotActor)

	cacheManager := cache.NewManager()
	cacheManager.Register(reports.Cache())
	cacheManager.StartCleanup(10 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reportWorker.StartupRefresh(ctx); err != nil {
		logger.Error("Startup refresh failed", "error", err)
		// Don't exit - the cache warms on the first consumed event instead.
	}

	scheduler, err := reportWorker.ScheduleMonthClose(ctx, cfg.CloseSchedule)
	if err != nil {
		logger.Error("Failed to schedule month close", "error", err)
		os.Exit(1)
	}

	go func() {
		handler := func(msg *amqp.LedgerChangedMessage) error {
			return reportWorker.HandleLedgerChange(ctx, msg)
		}
		if err := amqpClient.ConsumeLedgerChanged(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		cacheManager.Stop()
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			slog.Warn("Cron jobs still running at shutdown")
		}
	})

	select {
	case <-ctx.Done():
		logger.Info("Context cancelled")
	case <-shutdownCtx.Done():
		cli.WaitForShutdown(shutdownCtx, done)
	}
}
