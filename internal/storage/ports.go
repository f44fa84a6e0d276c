package storage

import (
	"context"

	"finance/internal/core"
)

// Ports implemented by every persistence backend.
//
// Lookups return (nil, nil) when the record does not exist. Writes against a
// missing id return core.ErrNotFound; constraint violations are reported as
// core.ErrAlreadyExists, core.ErrInvalidCategory or core.ErrCategoryInUse.
type (
	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (*core.Category, error)
		GetCategoryBySlug(ctx context.Context, slug string) (*core.Category, error)

		// MonthlyTotals groups dated transactions by category and "MM-YY".
		MonthlyTotals(ctx context.Context) (core.MonthlyCategoryTotals, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
		GetTransaction(ctx context.Context, id int64) (*core.Transaction, error)

		// ListTransactions returns matches ordered by due date then creation
		// time, newest first. A nil window returns every match.
		ListTransactions(ctx context.Context, f core.TransactionFilter, w *core.Window) ([]core.Transaction, error)
		TransactionStats(ctx context.Context, f core.TransactionFilter) (core.TransactionStats, error)
		AmountByCategory(ctx context.Context, f core.TransactionFilter) (core.AmountByCategory, error)
	}

	// Store is a complete backend.
	Store interface {
		CategoryStore
		TransactionStore
		Ping(ctx context.Context) error
		Close() error
	}
)
