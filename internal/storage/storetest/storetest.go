// Package storetest holds the behaviour every storage.Store must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"finance/internal/core"
	"finance/internal/storage"
)

// Run exercises a fresh store from newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"CategoryLifecycle", testCategoryLifecycle},
		{"UniqueSlug", testUniqueSlug},
		{"ForeignKeys", testForeignKeys},
		{"TransactionLifecycle", testTransactionLifecycle},
		{"ListOrderingAndWindow", testListOrderingAndWindow},
		{"Filters", testFilters},
		{"Stats", testStats},
		{"AmountByCategory", testAmountByCategory},
		{"MonthlyTotals", testMonthlyTotals},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func str(s string) *string { return &s }

func mustCategory(t *testing.T, s storage.Store, title string) core.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), core.Category{Title: title, Slug: core.Slugify(title), Color: str(core.DefaultCategoryColor)})
	if err != nil {
		t.Fatalf("create category %q: %v", title, err)
	}
	return c
}

func mustTransaction(t *testing.T, s storage.Store, cat int64, typ core.TransactionType, cents int64, due core.Date) core.Transaction {
	t.Helper()
	tx, err := s.CreateTransaction(context.Background(), core.Transaction{
		Amount:     core.Money{Cents: cents},
		DueDate:    due,
		Type:       typ,
		CategoryID: cat,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func testCategoryLifecycle(t *testing.T, s storage.Store) {
	ctx := context.Background()

	food := mustCategory(t, s, "Food")
	if food.ID == 0 || food.Slug != "food" || food.CreatedAt.IsZero() {
		t.Fatalf("unexpected created category: %+v", food)
	}
	rent := mustCategory(t, s, "Rent")

	got, err := s.GetCategory(ctx, food.ID)
	if err != nil || got == nil || got.Title != "Food" || got.Color == nil || *got.Color != core.DefaultCategoryColor {
		t.Fatalf("GetCategory = %+v, %v", got, err)
	}
	bySlug, err := s.GetCategoryBySlug(ctx, "rent")
	if err != nil || bySlug == nil || bySlug.ID != rent.ID {
		t.Fatalf("GetCategoryBySlug = %+v, %v", bySlug, err)
	}

	missing, err := s.GetCategory(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("GetCategory(missing) = %+v, %v; want nil, nil", missing, err)
	}

	food.Title, food.Slug, food.Color = "Groceries", "groceries", nil
	updated, err := s.UpdateCategory(ctx, food)
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if updated.Slug != "groceries" || updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("unexpected updated category: %+v", updated)
	}

	all, err := s.ListCategories(ctx)
	if err != nil || len(all) != 2 || all[0].ID != food.ID || all[1].ID != rent.ID {
		t.Fatalf("ListCategories = %+v, %v", all, err)
	}

	if err := s.DeleteCategory(ctx, rent.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if err := s.DeleteCategory(ctx, rent.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second DeleteCategory = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateCategory(ctx, core.Category{ID: rent.ID, Title: "x", Slug: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("UpdateCategory(missing) = %v, want ErrNotFound", err)
	}
}

func testUniqueSlug(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCategory(t, s, "Eating Out")
	other := mustCategory(t, s, "Travel")

	_, err := s.CreateCategory(ctx, core.Category{Title: "eating out", Slug: "eating-out"})
	if !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("duplicate create = %v, want ErrAlreadyExists", err)
	}

	other.Title, other.Slug = "Eating Out", "eating-out"
	if _, err := s.UpdateCategory(ctx, other); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("update onto taken slug = %v, want ErrAlreadyExists", err)
	}
}

func testForeignKeys(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, err := s.CreateTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 100}, DueDate: core.NewDate(2025, 1, 1), Type: core.Expense, CategoryID: 4242,
	})
	if !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("create with missing category = %v, want ErrInvalidCategory", err)
	}

	food := mustCategory(t, s, "Food")
	tx := mustTransaction(t, s, food.ID, core.Expense, 100, core.NewDate(2025, 1, 1))

	tx.CategoryID = 4242
	if _, err := s.UpdateTransaction(ctx, tx); !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("update to missing category = %v, want ErrInvalidCategory", err)
	}
	if err := s.DeleteCategory(ctx, food.ID); !errors.Is(err, core.ErrCategoryInUse) {
		t.Fatalf("delete referenced category = %v, want ErrCategoryInUse", err)
	}
}

func testTransactionLifecycle(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food")
	rent := mustCategory(t, s, "Rent")

	tx := mustTransaction(t, s, food.ID, core.Expense, 1050, core.NewDate(2025, 9, 15))
	if tx.ID == 0 || tx.Category == nil || tx.Category.Title != "Food" || tx.Category.ID != food.ID {
		t.Fatalf("unexpected created transaction: %+v", tx)
	}
	if tx.DueDate.String() != "2025-09-15" {
		t.Fatalf("due date round trip = %s", tx.DueDate)
	}

	desc := "monthly rent"
	tx.CategoryID, tx.Type, tx.Description = rent.ID, core.Investment, &desc
	updated, err := s.UpdateTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if updated.Category.Title != "Rent" || updated.Type != core.Investment || *updated.Description != desc || updated.Amount.Cents != 1050 {
		t.Fatalf("unexpected updated transaction: %+v", updated)
	}

	if err := s.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if got, err := s.GetTransaction(ctx, tx.ID); err != nil || got != nil {
		t.Fatalf("GetTransaction after delete = %+v, %v", got, err)
	}
	if err := s.DeleteTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateTransaction(ctx, tx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update deleted = %v, want ErrNotFound", err)
	}
}

func testListOrderingAndWindow(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food")

	older := mustTransaction(t, s, food.ID, core.Expense, 100, core.NewDate(2025, 1, 10))
	first := mustTransaction(t, s, food.ID, core.Expense, 200, core.NewDate(2025, 3, 1))
	second := mustTransaction(t, s, food.ID, core.Expense, 300, core.NewDate(2025, 3, 1))
	newest := mustTransaction(t, s, food.ID, core.Income, 400, core.NewDate(2025, 6, 30))

	all, err := s.ListTransactions(ctx, core.TransactionFilter{}, nil)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	want := []int64{newest.ID, second.ID, first.ID, older.ID}
	if len(all) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("position %d: got id %d, want %d", i, all[i].ID, id)
		}
	}

	window, err := s.ListTransactions(ctx, core.TransactionFilter{}, &core.Window{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListTransactions(window): %v", err)
	}
	if len(window) != 2 || window[0].ID != second.ID || window[1].ID != first.ID {
		t.Fatalf("window = %+v", window)
	}

	past, err := s.ListTransactions(ctx, core.TransactionFilter{}, &core.Window{Offset: 10, Limit: 5})
	if err != nil || len(past) != 0 {
		t.Fatalf("window past end = %+v, %v", past, err)
	}
}

func testFilters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food")
	salary := mustCategory(t, s, "Salary")

	mustTransaction(t, s, food.ID, core.Expense, 100, core.NewDate(2025, 8, 31))
	inRange := mustTransaction(t, s, food.ID, core.Expense, 200, core.NewDate(2025, 9, 1))
	lastDay := mustTransaction(t, s, food.ID, core.Expense, 300, core.NewDate(2025, 9, 30))
	mustTransaction(t, s, salary.ID, core.Income, 5000, core.NewDate(2025, 9, 15))

	start, end := core.NewDate(2025, 9, 1), core.NewDate(2025, 9, 30)
	expense := core.Expense
	got, err := s.ListTransactions(ctx, core.TransactionFilter{
		CategoryID: &food.ID,
		Type:       &expense,
		StartDate:  &start,
		EndDate:    &end,
	}, nil)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 2 || got[0].ID != lastDay.ID || got[1].ID != inRange.ID {
		t.Fatalf("filtered = %+v", got)
	}

	income := core.Income
	got, err = s.ListTransactions(ctx, core.TransactionFilter{Type: &income}, nil)
	if err != nil || len(got) != 1 || got[0].CategoryID != salary.ID {
		t.Fatalf("income filter = %+v, %v", got, err)
	}
}

func testStats(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food")
	mustTransaction(t, s, food.ID, core.Income, 10000, core.NewDate(2025, 9, 1))
	mustTransaction(t, s, food.ID, core.Expense, 2500, core.NewDate(2025, 9, 2))
	mustTransaction(t, s, food.ID, core.Expense, 500, core.NewDate(2025, 9, 3))
	mustTransaction(t, s, food.ID, core.Investment, 700, core.NewDate(2025, 9, 4))

	stats, err := s.TransactionStats(ctx, core.TransactionFilter{})
	if err != nil {
		t.Fatalf("TransactionStats: %v", err)
	}
	if stats.Count != 4 || stats.Income.Cents != 10000 || stats.Expense.Cents != 3000 {
		t.Fatalf("stats = %+v", stats)
	}

	none := int64(999)
	empty, err := s.TransactionStats(ctx, core.TransactionFilter{CategoryID: &none})
	if err != nil || empty.Count != 0 || empty.Income.Cents != 0 || empty.Expense.Cents != 0 {
		t.Fatalf("empty stats = %+v, %v", empty, err)
	}
}

func testAmountByCategory(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food")
	salary := mustCategory(t, s, "Salary")
	mustTransaction(t, s, food.ID, core.Expense, 1000, core.NewDate(2025, 9, 1))
	mustTransaction(t, s, food.ID, core.Expense, 550, core.NewDate(2025, 9, 2))
	mustTransaction(t, s, salary.ID, core.Income, 300000, core.NewDate(2025, 9, 3))

	got, err := s.AmountByCategory(ctx, core.TransactionFilter{})
	if err != nil {
		t.Fatalf("AmountByCategory: %v", err)
	}
	if got[core.Expense]["Food"].Cents != 1550 || got[core.Income]["Salary"].Cents != 300000 {
		t.Fatalf("amounts = %+v", got)
	}
	if got[core.Investment] == nil || len(got[core.Investment]) != 0 {
		t.Fatalf("investment bucket should be present and empty: %+v", got)
	}
}

func testMonthlyTotals(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food")
	mustCategory(t, s, "Unused")
	mustTransaction(t, s, food.ID, core.Expense, 1000, core.NewDate(2025, 9, 1))
	mustTransaction(t, s, food.ID, core.Expense, 550, core.NewDate(2025, 9, 28))
	mustTransaction(t, s, food.ID, core.Expense, 100, core.NewDate(2025, 10, 2))

	totals, err := s.MonthlyTotals(ctx)
	if err != nil {
		t.Fatalf("MonthlyTotals: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("categories without transactions must be absent: %+v", totals)
	}
	entry := totals[food.ID]
	if entry.Title != "Food" || entry.Reports["09-25"].Cents != 1550 || entry.Reports["10-25"].Cents != 100 {
		t.Fatalf("food totals = %+v", entry)
	}
}
