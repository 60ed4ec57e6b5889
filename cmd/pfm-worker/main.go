package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"pfm/internal/amqp"
	"pfm/internal/cli"
	applog "pfm/internal/log"
	"pfm/internal/services"
	gsheet "pfm/internal/sheets/google"
	"pfm/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting pfm-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitBackend(context.Background(), logger, cfg)
	defer store.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Monthly archive of every scope's snapshot.
	svc := cli.BuildServices(cfg, store, nil, logger)
	archiver := services.NewArchiveService(store, svc.Analytics, cfg.ArchiveConcurrency, logger)
	scheduler := cron.New()
	if _, err := archiver.Schedule(ctx, scheduler, cfg.ArchiveSchedule); err != nil {
		logger.Error("Failed to schedule archive job", applog.FieldError, err, "schedule", cfg.ArchiveSchedule)
		os.Exit(1)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()
	logger.Info("Archive job scheduled", "schedule", cfg.ArchiveSchedule)

	// Spreadsheet export, driven by transaction events.
	switch {
	case !cfg.SheetsEnabled():
		logger.Info("Google Sheets export disabled - no spreadsheet or credentials configured")
	case cfg.AMQPURL == "":
		logger.Info("Google Sheets export disabled - no AMQP_URL provided")
	default:
		exporter, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		syncWorker := worker.NewSyncWorker(store, exporter, logger)
		go func() {
			if err := amqpClient.ConsumeTransactionEvents(ctx, syncWorker.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption stopped", applog.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
