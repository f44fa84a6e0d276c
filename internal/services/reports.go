package services

import (
	"context"
	"fmt"
	"strings"

	"finance/internal/cache"
	"finance/internal/core"
)

const monthlyTotalsKey = "monthly-totals"

// Reports caches aggregate read models until the next write. A nil *Reports
// computes every report directly. Returned maps are shared and must not be
// modified.
type Reports struct {
	monthly *cache.Store[core.MonthlyCategoryTotals]
	amounts *cache.Store[core.AmountByCategory]
}

func NewReports(cfg cache.Config) (*Reports, error) {
	monthly, err := cache.New[core.MonthlyCategoryTotals](cfg)
	if err != nil {
		return nil, fmt.Errorf("monthly totals cache: %w", err)
	}
	amounts, err := cache.New[core.AmountByCategory](cfg)
	if err != nil {
		monthly.Close()
		return nil, fmt.Errorf("amount by category cache: %w", err)
	}
	return &Reports{monthly: monthly, amounts: amounts}, nil
}

func (r *Reports) monthlyTotals(ctx context.Context, load func(context.Context) (core.MonthlyCategoryTotals, error)) (core.MonthlyCategoryTotals, error) {
	if r == nil {
		return load(ctx)
	}
	return r.monthly.GetOrLoad(ctx, monthlyTotalsKey, load)
}

func (r *Reports) amountByCategory(ctx context.Context, f core.TransactionFilter, load func(context.Context) (core.AmountByCategory, error)) (core.AmountByCategory, error) {
	if r == nil {
		return load(ctx)
	}
	return r.amounts.GetOrLoad(ctx, filterKey(f), load)
}

// Invalidate drops every cached report.
func (r *Reports) Invalidate() {
	if r == nil {
		return
	}
	r.monthly.Clear()
	r.amounts.Clear()
}

func (r *Reports) Close() {
	if r == nil {
		return
	}
	r.monthly.Close()
	r.amounts.Close()
}

// filterKey is stable for equal filters. Page is ignored.
func filterKey(f core.TransactionFilter) string {
	var b strings.Builder
	b.WriteString("amounts")
	for _, c := range f.Clauses() {
		switch c.Kind {
		case core.ClauseCategory:
			fmt.Fprintf(&b, "|category=%d", c.CategoryID)
		case core.ClauseType:
			fmt.Fprintf(&b, "|type=%s", c.Type)
		case core.ClauseStartDate:
			fmt.Fprintf(&b, "|start=%s", c.Date)
		case core.ClauseEndDate:
			fmt.Fprintf(&b, "|end=%s", c.Date)
		}
	}
	return b.String()
}
