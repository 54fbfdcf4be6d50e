// Package cli provides the process bootstrap shared by cmd/expensetracker
// and cmd/expense-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expensetracker/internal/config"
	"expensetracker/internal/log"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long Run waits for the stop functions.
const ShutdownTimeout = 30 * time.Second

// LoadEnvFile loads the .env file for local development.
// A missing file is fine: production sets the environment directly.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger, nil
}

// LoadConfig reads the environment and runs validate (config.Validate when nil).
func LoadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustBootstrap loads .env, config and the logger, exiting the process on
// failure.
func MustBootstrap(validate func(*config.Config) error) (*config.Config, *log.Logger) {
	LoadEnvFile()

	cfg, err := LoadConfig(validate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := SetupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger
}

// Task is a long-running unit of a process. Start blocks until the task
// ends or ctx is cancelled. Stop, when set, is called once shutdown begins.
type Task struct {
	Name  string
	Start func(ctx context.Context) error
	Stop  func(ctx context.Context) error
}

// Run starts every task and waits for SIGINT/SIGTERM, parent cancellation
// or the first task failure. Stop functions then run within ShutdownTimeout.
func Run(parent context.Context, logger *log.Logger, tasks ...Task) error {
	ctx, stopSignals := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			err := t.Start(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", t.Name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown, "reason", context.Cause(gctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, t := range tasks {
			if t.Stop == nil {
				continue
			}
			if err := t.Stop(shutdownCtx); err != nil {
				logger.Error("Shutdown step failed", "task", t.Name, log.FieldError, err)
				errs = append(errs, fmt.Errorf("stop %s: %w", t.Name, err))
			}
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	if err == nil {
		logger.Info("Shutdown complete")
	}
	return err
}
