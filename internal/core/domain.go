package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCategoryColor is stored when a category is created without a color.
const DefaultCategoryColor = "#FAAA4F"

const (
	Income     TransactionType = "income"
	Expense    TransactionType = "expense"
	Investment TransactionType = "investment"
)

type (
	TransactionType string

	Category struct {
		ID        int64
		Title     string
		Slug      string
		Color     *string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// CategorySummary is the slice of a category embedded in transaction views.
	CategorySummary struct {
		ID    int64
		Title string
		Color *string
	}

	Transaction struct {
		ID          int64
		Amount      Money
		DueDate     Date
		Type        TransactionType
		CategoryID  int64
		Description *string
		CreatedAt   time.Time
		UpdatedAt   time.Time

		// Category is filled by stores that join categories on read.
		Category *CategorySummary
	}

	// TransactionPatch carries the fields of a partial update. Nil fields keep
	// the stored value.
	TransactionPatch struct {
		Amount      *Money
		DueDate     *Date
		Type        *TransactionType
		CategoryID  *int64
		Description *string
	}
)

var (
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidPage     = errors.New("invalid page")
	ErrCategoryInUse   = errors.New("category has transactions")

	ErrInvalidAmount = errors.New("invalid amount")
)

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", Invalid("type", fmt.Sprintf("must be one of %s, %s, %s", Income, Expense, Investment))
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Investment:
		return true
	}
	return false
}

// Summary returns the fields of c shown inside a transaction.
func (c Category) Summary() CategorySummary {
	return CategorySummary{ID: c.ID, Title: c.Title, Color: c.Color}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return Invalid("title", "is required")
	}
	if len(c.Title) > 100 {
		return Invalid("title", "too long (max 100 characters)")
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return Invalid("amount", "must be greater than zero")
	}
	if err := t.DueDate.Validate(); err != nil {
		return Invalid("dueDate", err.Error())
	}
	if !t.Type.Valid() {
		return Invalid("type", "unknown transaction type")
	}
	if t.CategoryID <= 0 {
		return Invalid("categoryId", "must be positive")
	}
	if t.Description != nil && len(*t.Description) > 200 {
		return Invalid("description", "too long (max 200 characters)")
	}
	return nil
}

// Apply returns t with every non-nil field of p replaced.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.CategoryID != nil && *p.CategoryID != t.CategoryID {
		t.CategoryID = *p.CategoryID
		t.Category = nil
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	return t
}
