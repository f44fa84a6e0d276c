package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"finance/internal/amqp"
	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/storage/memory"
)

// spyStore counts writes that reach the backing store.
type spyStore struct {
	*memory.Store
	categoryCreates    int
	transactionCreates int
	transactionUpdates int
}

func (s *spyStore) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	s.categoryCreates++
	return s.Store.CreateCategory(ctx, c)
}

func (s *spyStore) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.transactionCreates++
	return s.Store.CreateTransaction(ctx, t)
}

func (s *spyStore) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.transactionUpdates++
	return s.Store.UpdateTransaction(ctx, t)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store        *spyStore
	events       *recordingPublisher
	categories   *CategoryService
	transactions *TransactionService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reports, err := NewReports(cache.Config{MaxEntries: 100})
	if err != nil {
		t.Fatalf("NewReports: %v", err)
	}
	t.Cleanup(reports.Close)

	store := &spyStore{Store: memory.New()}
	events := &recordingPublisher{}
	return fixture{
		store:        store,
		events:       events,
		categories:   NewCategoryService(store, reports, events),
		transactions: NewTransactionService(store, store, reports, events, core.DefaultPageSize),
	}
}

func str(s string) *string { return &s }

func (f fixture) category(t *testing.T, title string) core.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), title, nil)
	if err != nil {
		t.Fatalf("create category %q: %v", title, err)
	}
	return c
}

func (f fixture) transaction(t *testing.T, cat int64, typ core.TransactionType, cents int64, due core.Date) core.Transaction {
	t.Helper()
	tx, err := f.transactions.Create(context.Background(), core.Transaction{
		Amount: core.Money{Cents: cents}, DueDate: due, Type: typ, CategoryID: cat,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func isValidation(err error) bool {
	var ve *core.ValidationError
	return errors.As(err, &ve)
}
