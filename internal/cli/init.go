// Package cli wires configuration, storage and services into the finance
// subcommands.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finance/internal/backend"
	"finance/internal/cache"
	"finance/internal/config"
	applog "finance/internal/log"
	"finance/internal/services"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the process default.
func SetupLogger(level string) *applog.Logger {
	lvl := applog.ParseLevel(level)
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: applog.ComponentCLI,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig(logger *applog.Logger) (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		return nil, err
	}
	return cfg, nil
}

// app is everything a subcommand needs once the backend is open.
type app struct {
	backend      *backend.BackendResult
	reports      *services.Reports
	categories   *services.CategoryService
	transactions *services.TransactionService
}

func (a *app) Close() error {
	a.reports.Close()
	return a.backend.Cleanup()
}

// openApp builds the backend named by cfg and the services on top of it.
func openApp(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*app, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	reports, err := services.NewReports(cache.Config{
		MaxEntries: cache.DefaultConfig().MaxEntries,
		TTL:        cfg.ReportCacheTTL,
	})
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}

	return &app{
		backend:      res,
		reports:      reports,
		categories:   services.NewCategoryService(res.Store, reports, res.Events),
		transactions: services.NewTransactionService(res.Store, res.Store, reports, res.Events, cfg.PageSize),
	}, nil
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs shutdown with the given timeout. done is closed once shutdown has
// returned.
func GracefulShutdown(parent context.Context, logger *applog.Logger, timeout time.Duration, shutdown func(context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-parent.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if shutdown != nil {
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error("Shutdown error", applog.FieldError, err)
			}
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
	}()

	return ctx, finished
}
