package cli

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/google/subcommands"

	apphttp "finance/internal/http"
	applog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
)

const shutdownTimeout = 30 * time.Second

type serveCmd struct {
	port string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the finance HTTP API" }
func (*serveCmd) Usage() string {
	return `finance serve [-port <port>]

  Serves the categories and transactions API until SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "listen port, overrides PORT")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger, cfg, err := bootstrap()
	if err != nil {
		return subcommands.ExitUsageError
	}
	if c.port != "" {
		cfg.Port = c.port
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Categories:   a.categories,
		Transactions: a.transactions,
		Exporter:     a.backend.Exporter,
		Ready:        a.backend.Store.Ping,
		Logger:       logger,
		RateLimit:    ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
	})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	_, done := GracefulShutdown(runCtx, logger, shutdownTimeout, srv.Shutdown)

	logger.Info("Starting finance server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"page_size", cfg.PageSize,
		"events_enabled", a.backend.Events != nil,
		"export_enabled", a.backend.Exporter != nil)

	status := subcommands.ExitSuccess
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		status = subcommands.ExitFailure
		stop()
	}

	<-done
	logger.Info("Server stopped gracefully")
	return status
}
