package services

import (
	"context"
	"fmt"

	"finance/internal/amqp"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/storage"
)

// TransactionService keeps transactions pointing at existing categories and
// builds listings and aggregates.
type TransactionService struct {
	transactions storage.TransactionStore
	categories   storage.CategoryStore
	reports      *Reports
	events       EventPublisher
	pageSize     int
}

// NewTransactionService wires the service. reports and events may be nil; a
// non-positive pageSize uses core.DefaultPageSize.
func NewTransactionService(transactions storage.TransactionStore, categories storage.CategoryStore, reports *Reports, events EventPublisher, pageSize int) *TransactionService {
	if pageSize <= 0 {
		pageSize = core.DefaultPageSize
	}
	return &TransactionService{
		transactions: transactions,
		categories:   categories,
		reports:      reports,
		events:       events,
		pageSize:     pageSize,
	}
}

func (s *TransactionService) PageSize() int {
	return s.pageSize
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.ensureCategory(ctx, t.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.transactions.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.reports.Invalidate()
	logWrite(ctx, transactionWrite(applog.OpCreate, created))
	publish(ctx, s.events, amqp.TransactionCreated, created.ID)
	return created, nil
}

// Update merges patch over the stored transaction. Existence is checked
// before the category.
func (s *TransactionService) Update(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	current, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if current == nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}

	next := patch.Apply(*current)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.ensureCategory(ctx, next.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.transactions.UpdateTransaction(ctx, next)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.reports.Invalidate()
	logWrite(ctx, transactionWrite(applog.OpUpdate, updated))
	publish(ctx, s.events, amqp.TransactionUpdated, updated.ID)
	return updated, nil
}

func (s *TransactionService) Remove(ctx context.Context, id int64) error {
	current, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if current == nil {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}

	if err := s.transactions.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.reports.Invalidate()
	logWrite(ctx, transactionWrite(applog.OpDelete, *current))
	publish(ctx, s.events, amqp.TransactionDeleted, id)
	return nil
}

// FindByID returns nil without error when the transaction does not exist.
func (s *TransactionService) FindByID(ctx context.Context, id int64) (*core.Transaction, error) {
	t, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// FindAll lists transactions matching f. Without f.Page only Results is
// filled; with it the result is one page plus totals over every match, or
// core.ErrInvalidPage when the page does not exist.
func (s *TransactionService) FindAll(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	if f.Page == nil {
		results, err := s.transactions.ListTransactions(ctx, f, nil)
		if err != nil {
			return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
		}
		return core.TransactionPage{Results: results}, nil
	}

	stats, err := s.transactions.TransactionStats(ctx, f.WithoutPage())
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("transaction stats: %w", err)
	}

	info, err := core.Paginate(*f.Page, stats.Count, s.pageSize)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("page %d of %d: %w", *f.Page, core.TotalPages(stats.Count, s.pageSize), err)
	}

	results, err := s.transactions.ListTransactions(ctx, f.WithoutPage(), &info.Window)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}

	return core.TransactionPage{PageInfo: info, Stats: stats, Results: results}, nil
}

// AmountByCategory sums matching transactions by type and category title.
func (s *TransactionService) AmountByCategory(ctx context.Context, f core.TransactionFilter) (core.AmountByCategory, error) {
	f = f.WithoutPage()
	amounts, err := s.reports.amountByCategory(ctx, f, func(ctx context.Context) (core.AmountByCategory, error) {
		return s.transactions.AmountByCategory(ctx, f)
	})
	if err != nil {
		return nil, fmt.Errorf("amount by category: %w", err)
	}
	return amounts, nil
}

func (s *TransactionService) ensureCategory(ctx context.Context, id int64) error {
	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return fmt.Errorf("category %d: %w", id, core.ErrInvalidCategory)
	}
	return nil
}

func transactionWrite(op string, t core.Transaction) applog.Write {
	return applog.Write{
		Resource:  applog.ComponentTransaction,
		Operation: op,
		ID:        t.ID,
		Fields: applog.LogFields{
			applog.FieldCategoryID:  t.CategoryID,
			applog.FieldType:        string(t.Type),
			applog.FieldAmountCents: t.Amount.Cents,
		},
	}
}
