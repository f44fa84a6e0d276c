package cli

import (
	"context"
	"errors"
	"flag"

	"github.com/google/subcommands"

	"finance/internal/amqp"
	"finance/internal/config"
	applog "finance/internal/log"
	"finance/internal/worker"
)

type syncCmd struct {
	once bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "keep the monthly totals spreadsheet up to date" }
func (*syncCmd) Usage() string {
	return `finance sync [-once]

  Exports monthly totals to GOOGLE_SPREADSHEET_ID on startup, after change
  events arrive on AMQP_QUEUE and every SYNC_INTERVAL. Requires a SQL backend.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.once, "once", false, "export once and exit")
}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger, cfg, err := bootstrap()
	if err != nil {
		return subcommands.ExitUsageError
	}
	if !cfg.ExportEnabled() {
		logger.Error("Sheets sync requires GOOGLE_SPREADSHEET_ID")
		return subcommands.ExitUsageError
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process, the spreadsheet will stay empty")
	}

	// The worker only reads, so events are not published from here.
	amqpURL := cfg.AMQPURL
	cfg.AMQPURL = ""
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
	if a.backend.Exporter == nil {
		logger.Error("Sheets exporter unavailable")
		return subcommands.ExitFailure
	}

	w := worker.NewSyncWorker(a.backend.Store, a.backend.Exporter, logger, cfg.SyncDebounce, cfg.SyncInterval)
	if c.once {
		if err := w.Sync(ctx); err != nil {
			logger.Error("Sync failed", applog.FieldError, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	runCtx, done := GracefulShutdown(runCtx, logger, shutdownTimeout, nil)

	if amqpURL != "" {
		consumer, err := amqp.NewConsumer(amqpURL, cfg.AMQPExchange, cfg.AMQPQueue, amqp.AllEvents)
		if err != nil {
			logger.Error("Failed to initialize AMQP consumer", applog.FieldError, err)
			return subcommands.ExitFailure
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Consume(runCtx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption stopped", applog.FieldError, err)
				stop()
			}
		}()
		logger.Info("Consuming change events", "queue", cfg.AMQPQueue, "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP_URL not set, exporting on interval only", "interval", cfg.SyncInterval)
	}

	if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Sync worker stopped", applog.FieldError, err)
	}
	stop()
	<-done
	return subcommands.ExitSuccess
}
