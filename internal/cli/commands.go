package cli

import (
	"os"

	"github.com/google/subcommands"

	"finance/internal/config"
	applog "finance/internal/log"
)

// Commands are the finance subcommands, registered by cmd/finance.
var Commands = []subcommands.Command{
	&serveCmd{},
	&migrateCmd{},
	&reportCmd{},
	&syncCmd{},
}

// bootstrap loads .env, sets up logging and returns the validated config.
func bootstrap() (*applog.Logger, *config.Config, error) {
	LoadEnvFile()
	logger := SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg, err := LoadAndValidateConfig(logger)
	if err != nil {
		return logger, nil, err
	}
	return logger, cfg, nil
}
