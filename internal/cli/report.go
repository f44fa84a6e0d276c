package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"finance/internal/core"
	applog "finance/internal/log"
)

type reportCmd struct {
	from, to string
	raw      bool
	export   bool
	width    int

	out io.Writer
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print monthly totals and amounts by category" }
func (*reportCmd) Usage() string {
	return `finance report [-from <date>] [-to <date>] [-raw] [-export]

  Renders the monthly totals per category and the amounts by category for the
  configured backend. -from and -to only restrict the amounts section.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "start date (YYYY-MM-DD) for amounts by category")
	f.StringVar(&c.to, "to", "", "end date (YYYY-MM-DD) for amounts by category")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
	f.BoolVar(&c.export, "export", false, "also write monthly totals to the configured spreadsheet")
	f.IntVar(&c.width, "width", 100, "word wrap width")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.out == nil {
		c.out = os.Stdout
	}

	filter, err := c.filter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	logger, cfg, err := bootstrap()
	if err != nil {
		return subcommands.ExitUsageError
	}
	logger = logger.WithComponent(applog.ComponentReport)

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

	md, err := c.build(ctx, a, filter)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build report", applog.FieldError, err)
		return subcommands.ExitFailure
	}
	if err := c.print(md); err != nil {
		logger.ErrorContext(ctx, "Failed to render report", applog.FieldError, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *reportCmd) filter() (core.TransactionFilter, error) {
	var f core.TransactionFilter
	for _, p := range []struct {
		flag string
		v    string
		dst  **core.Date
	}{
		{"-from", c.from, &f.StartDate},
		{"-to", c.to, &f.EndDate},
	} {
		if p.v == "" {
			continue
		}
		d, err := core.ParseDate(p.v)
		if err != nil {
			return f, fmt.Errorf("%s: %w", p.flag, err)
		}
		*p.dst = &d
	}
	return f, nil
}

func (c *reportCmd) build(ctx context.Context, a *app, f core.TransactionFilter) (string, error) {
	totals, err := a.categories.MonthlyTotals(ctx)
	if err != nil {
		return "", err
	}
	amounts, err := a.transactions.AmountByCategory(ctx, f)
	if err != nil {
		return "", err
	}

	md := "# Finance report\n\n" + MonthlyTotalsMarkdown(totals) + "\n" + AmountByCategoryMarkdown(amounts)

	if c.export {
		if a.backend.Exporter == nil {
			return "", errors.New("export requested but GOOGLE_SPREADSHEET_ID is not configured")
		}
		ref, err := a.backend.Exporter.ExportMonthlyTotals(ctx, totals)
		if err != nil {
			return "", fmt.Errorf("export monthly totals: %w", err)
		}
		md += fmt.Sprintf("\nExported to `%s`.\n", ref)
	}
	return md, nil
}

func (c *reportCmd) print(md string) error {
	if c.raw {
		_, err := io.WriteString(c.out, md)
		return err
	}
	out, err := renderMarkdown(md, c.width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(c.out, out)
	return err
}

func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
