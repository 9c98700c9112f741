// Package cli holds the start-up steps shared by cmd/budgetbook and
// cmd/budgetbook-exporter.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetbook/internal/backend"
	"budgetbook/internal/config"
	"budgetbook/internal/log"
	"budgetbook/internal/sheets"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment and exits on invalid values.
// Errors go to a bootstrap logger since LOG_LEVEL itself may be the problem.
func LoadAndValidateConfig() *config.Config {
	boot := log.NewFromEnv(os.Stderr, "info", "text", log.ComponentApp)
	cfg, err := config.Load()
	if err != nil {
		boot.Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		boot.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from cfg and makes it the slog
// default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.NewFromEnv(os.Stdout, cfg.LogLevel, cfg.LogFormat, component)
	log.SetDefault(logger)
	return logger
}

// OpenStore opens the store named by SESSION_BACKEND and exits on failure.
func OpenStore(logger *log.Logger, cfg *config.Config) backend.Store {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		Fatal(logger, "Invalid backend configuration", err)
	}
	store, err := backend.NewFactory(logger).OpenStore(context.Background(), bc)
	if err != nil {
		Fatal(logger, "Failed to open store", err, "backend", bc.Store)
	}
	return store
}

// OpenSink opens the export sink: Google Sheets when a spreadsheet is
// configured, memory otherwise.
func OpenSink(ctx context.Context, logger *log.Logger, cfg *config.Config) sheets.TableWriter {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		Fatal(logger, "Invalid backend configuration", err)
	}
	sink, err := backend.NewFactory(logger).OpenSink(ctx, bc)
	if err != nil {
		Fatal(logger, "Failed to open export sink", err, "sink", bc.Sink)
	}
	return sink
}

// Run calls serve and blocks until it returns. SIGINT or SIGTERM cancels
// the context serve got and calls stop with at most timeout to finish. The
// first error from either is returned.
func Run(logger *log.Logger, timeout time.Duration, serve, stop func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", timeout)
		if stop == nil {
			return nil
		}
		sctx, done := context.WithTimeout(context.Background(), timeout)
		defer done()
		if err := stop(sctx); err != nil {
			logger.Warn("Shutdown did not finish cleanly", log.FieldError, err)
			return err
		}
		return nil
	})
	return g.Wait()
}

// Fatal logs err and exits.
func Fatal(logger *log.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{log.FieldError, err}, args...)...)
	os.Exit(1)
}
