package cli

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"finance/internal/config"
	applog "finance/internal/log"
	"finance/internal/storage"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `finance migrate

  Applies the embedded migrations for DATA_BACKEND (sqlite or postgres).
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger, cfg, err := bootstrap()
	if err != nil {
		return subcommands.ExitUsageError
	}
	logger = logger.WithComponent(applog.ComponentStorage)

	switch cfg.DataBackend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0755); err != nil {
			logger.Error("Failed to create database directory", applog.FieldError, err)
			return subcommands.ExitFailure
		}
		err = storage.RunMigrations(cfg.SQLiteDBPath)
	case config.BackendPostgres:
		err = storage.RunPostgresMigrations(cfg.DatabaseURL)
	default:
		logger.InfoContext(ctx, "Nothing to migrate", "backend", cfg.DataBackend)
		return subcommands.ExitSuccess
	}

	if err != nil {
		logger.ErrorContext(ctx, "Migration failed", applog.FieldError, err, "backend", cfg.DataBackend)
		return subcommands.ExitFailure
	}
	logger.InfoContext(ctx, "Migrations applied", "backend", cfg.DataBackend, applog.FieldOperation, applog.OpMigrate)
	return subcommands.ExitSuccess
}
