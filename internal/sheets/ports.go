package sheets

import (
	"context"

	"finance/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthlyTotalsExporter publishes the per-category monthly report to an
	// external spreadsheet and returns the written range.
	MonthlyTotalsExporter interface {
		ExportMonthlyTotals(ctx context.Context, totals core.MonthlyCategoryTotals) (rangeRef string, err error)
	}
)
