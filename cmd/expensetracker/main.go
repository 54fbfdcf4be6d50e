package main

import (
	"context"
	"errors"
	"os"

	"expensetracker/internal/adapters"
	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	cfg, logger := cli.MustBootstrap(nil)
	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}

	l, err := ledger.New(ctx, result.Store, ledger.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to load ledger", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Ledger loaded", log.FieldBackend, cfg.DataBackend, log.FieldLedgerSize, l.Len())

	// Events are optional: without a broker the server still records expenses.
	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, running without expense events", log.FieldError, err)
		} else {
			publisher = client
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	service := services.NewExpenseService(l, publisher, logger)
	adapter := adapters.NewLedgerAdapter(l, service)
	srv := apphttp.NewServer(cfg.Addr(), adapter, adapter, adapter, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
	})

	err = cli.Run(ctx, logger, cli.Task{
		Name:  "http",
		Start: srv.Start,
		Stop: func(ctx context.Context) error {
			errs := []error{srv.Shutdown(ctx), service.Close()}
			if result.Cleanup != nil {
				errs = append(errs, result.Cleanup())
			}
			return errors.Join(errs...)
		},
	})
	if err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}
