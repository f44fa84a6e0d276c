// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"finance/internal/core"
	"finance/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps categories and transactions in owned slices behind a mutex.
// It enforces the same unique slug and foreign key rules as the SQL schema.
type Store struct {
	mu           sync.RWMutex
	categories   []core.Category
	transactions []core.Transaction
	nextCategory int64
	nextTx       int64
	now          func() time.Time
}

func New() *Store {
	return &Store{nextCategory: 1, nextTx: 1, now: time.Now}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndexBySlug(c.Slug) >= 0 {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Slug, core.ErrAlreadyExists)
	}
	now := s.now().UTC()
	c.ID = s.nextCategory
	s.nextCategory++
	c.CreatedAt, c.UpdatedAt = now, now
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(c.ID)
	if i < 0 {
		return core.Category{}, fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}
	if j := s.categoryIndexBySlug(c.Slug); j >= 0 && j != i {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Slug, core.ErrAlreadyExists)
	}
	c.CreatedAt = s.categories[i].CreatedAt
	c.UpdatedAt = s.now().UTC()
	s.categories[i] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	for _, t := range s.transactions {
		if t.CategoryID == id {
			return fmt.Errorf("category %d: %w", id, core.ErrCategoryInUse)
		}
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	return nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category{}, s.categories...), nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (*core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.categoryIndex(id); i >= 0 {
		c := s.categories[i]
		return &c, nil
	}
	return nil, nil
}

func (s *Store) GetCategoryBySlug(_ context.Context, slug string) (*core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.categoryIndexBySlug(slug); i >= 0 {
		c := s.categories[i]
		return &c, nil
	}
	return nil, nil
}

func (s *Store) MonthlyTotals(context.Context) (core.MonthlyCategoryTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := core.MonthlyCategoryTotals{}
	for _, t := range s.transactions {
		if t.DueDate.IsZero() {
			continue
		}
		i := s.categoryIndex(t.CategoryID)
		if i < 0 {
			continue
		}
		totals.Add(s.categories[i].Summary(), t.DueDate.MonthKey(), t.Amount)
	}
	return totals, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndex(t.CategoryID) < 0 {
		return core.Transaction{}, fmt.Errorf("category %d: %w", t.CategoryID, core.ErrInvalidCategory)
	}
	now := s.now().UTC()
	t.ID = s.nextTx
	s.nextTx++
	t.CreatedAt, t.UpdatedAt = now, now
	t.Category = nil
	s.transactions = append(s.transactions, t)
	return s.withCategory(t), nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(t.ID)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	if s.categoryIndex(t.CategoryID) < 0 {
		return core.Transaction{}, fmt.Errorf("category %d: %w", t.CategoryID, core.ErrInvalidCategory)
	}
	t.CreatedAt = s.transactions[i].CreatedAt
	t.UpdatedAt = s.now().UTC()
	t.Category = nil
	s.transactions[i] = t
	return s.withCategory(t), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(id)
	if i < 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.transactionIndex(id); i >= 0 {
		t := s.withCategory(s.transactions[i])
		return &t, nil
	}
	return nil, nil
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter, w *core.Window) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.filter(f)
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.DueDate.Equal(b.DueDate.Time) {
			return a.DueDate.After(b.DueDate.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if w != nil {
		start := min(w.Offset, len(matches))
		end := min(start+w.Limit, len(matches))
		matches = matches[start:end]
	}

	out := make([]core.Transaction, 0, len(matches))
	for _, t := range matches {
		out = append(out, s.withCategory(t))
	}
	return out, nil
}

func (s *Store) TransactionStats(_ context.Context, f core.TransactionFilter) (core.TransactionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats core.TransactionStats
	for _, t := range s.filter(f) {
		stats = stats.Add(t)
	}
	return stats, nil
}

func (s *Store) AmountByCategory(_ context.Context, f core.TransactionFilter) (core.AmountByCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := core.NewAmountByCategory()
	for _, t := range s.filter(f) {
		if i := s.categoryIndex(t.CategoryID); i >= 0 {
			result.Add(t.Type, s.categories[i].Title, t.Amount)
		}
	}
	return result, nil
}

// filter must be called with the lock held.
func (s *Store) filter(f core.TransactionFilter) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.transactions {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) withCategory(t core.Transaction) core.Transaction {
	if i := s.categoryIndex(t.CategoryID); i >= 0 {
		summary := s.categories[i].Summary()
		t.Category = &summary
	}
	return t
}

func (s *Store) categoryIndex(id int64) int {
	for i, c := range s.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) categoryIndexBySlug(slug string) int {
	for i, c := range s.categories {
		if c.Slug == slug {
			return i
		}
	}
	return -1
}

func (s *Store) transactionIndex(id int64) int {
	for i, t := range s.transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}
