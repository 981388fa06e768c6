// Package cli holds the start-up and shutdown steps shared by the
// expensebuddy server and the sheets worker.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensebuddy/internal/config"
	applog "expensebuddy/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(level, format string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	if format != "" {
		cfg.Format = format
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and runs validate on it, exiting
// the process on failure. The returned logger honours the configured level.
func LoadAndValidateConfig(validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat)
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed",
			applog.NewFields().WithError(err, applog.ErrorTypeConfiguration).ToSlice()...)
		os.Exit(1)
	}
	return cfg, logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// GracefulShutdown waits for ctx to end, then runs shutdown with at most
// timeout to finish.
func GracefulShutdown(ctx context.Context, logger *applog.Logger, timeout time.Duration, shutdown func(context.Context) error) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := shutdown(shutdownCtx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Shutdown timeout reached", applog.FieldOperation, applog.OpShutdown)
	case err != nil:
		logger.Error("Shutdown failed", applog.NewFields().WithOperation(applog.OpShutdown).WithError(err, applog.ErrorTypeInternal).ToSlice()...)
	default:
		logger.Info("Shutdown complete", applog.FieldOperation, applog.OpShutdown)
	}
	return err
}
