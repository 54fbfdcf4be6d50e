package main

import (
	"context"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	gsheet "expensetracker/internal/sheets/google"
	mem "expensetracker/internal/sheets/memory"
	"expensetracker/internal/worker"
)

func main() {
	cfg, logger := cli.MustBootstrap((*config.Config).ValidateWorker)
	ctx := context.Background()
	logger.Info("Starting expense-worker")

	var writer sheets.ExpenseWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		writer = mem.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory (dry run)")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mirror := worker.NewMirrorWorker(writer, logger)
	caches := cache.NewManager(logger)
	caches.Register(mirror.Seen())
	caches.StartCleanup(time.Hour)

	err = cli.Run(ctx, logger, cli.Task{
		Name: "consumer",
		Start: func(ctx context.Context) error {
			return client.ConsumeExpenseRecorded(ctx, mirror.Handle)
		},
		Stop: func(context.Context) error {
			caches.Stop()
			return client.Close()
		},
	})
	if err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}
