package services

import (
	"context"
	"fmt"

	"finance/internal/amqp"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/storage"
)

// CategoryService enforces slug uniqueness and existence checks for
// categories.
type CategoryService struct {
	store   storage.CategoryStore
	reports *Reports
	events  EventPublisher
}

// NewCategoryService wires the service. reports and events may be nil.
func NewCategoryService(store storage.CategoryStore, reports *Reports, events EventPublisher) *CategoryService {
	return &CategoryService{store: store, reports: reports, events: events}
}

// Create stores a new category. A nil color stores core.DefaultCategoryColor.
func (s *CategoryService) Create(ctx context.Context, title string, color *string) (core.Category, error) {
	c := core.Category{Title: title, Slug: core.Slugify(title), Color: color}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.Color == nil {
		def := core.DefaultCategoryColor
		c.Color = &def
	}

	existing, err := s.store.GetCategoryBySlug(ctx, c.Slug)
	if err != nil {
		return core.Category{}, fmt.Errorf("lookup slug: %w", err)
	}
	if existing != nil {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Slug, core.ErrAlreadyExists)
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	s.reports.Invalidate()
	logWrite(ctx, categoryWrite(applog.OpCreate, created.ID, created.Slug))
	publish(ctx, s.events, amqp.CategoryCreated, created.ID)
	return created, nil
}

// Update replaces title and slug. A nil color keeps the stored one.
func (s *CategoryService) Update(ctx context.Context, id int64, title string, color *string) (core.Category, error) {
	current, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	if current == nil {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}

	next := *current
	next.Title = title
	next.Slug = core.Slugify(title)
	if color != nil {
		next.Color = color
	}
	if err := next.Validate(); err != nil {
		return core.Category{}, err
	}

	existing, err := s.store.GetCategoryBySlug(ctx, next.Slug)
	if err != nil {
		return core.Category{}, fmt.Errorf("lookup slug: %w", err)
	}
	if existing != nil && existing.ID != id {
		return core.Category{}, fmt.Errorf("category %q: %w", next.Slug, core.ErrAlreadyExists)
	}

	updated, err := s.store.UpdateCategory(ctx, next)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}

	s.reports.Invalidate()
	logWrite(ctx, categoryWrite(applog.OpUpdate, updated.ID, updated.Slug))
	publish(ctx, s.events, amqp.CategoryUpdated, updated.ID)
	return updated, nil
}

// Remove deletes a category. Categories still referenced by transactions
// fail with core.ErrCategoryInUse.
func (s *CategoryService) Remove(ctx context.Context, id int64) error {
	current, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if current == nil {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.reports.Invalidate()
	logWrite(ctx, categoryWrite(applog.OpDelete, id, current.Slug))
	publish(ctx, s.events, amqp.CategoryDeleted, id)
	return nil
}

func (s *CategoryService) FindAll(ctx context.Context) ([]core.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID returns nil without error when the category does not exist.
func (s *CategoryService) FindByID(ctx context.Context, id int64) (*core.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// MonthlyTotals reports per-category sums bucketed by "MM-YY".
func (s *CategoryService) MonthlyTotals(ctx context.Context) (core.MonthlyCategoryTotals, error) {
	totals, err := s.reports.monthlyTotals(ctx, s.store.MonthlyTotals)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	return totals, nil
}

func categoryWrite(op string, id int64, slug string) applog.Write {
	return applog.Write{
		Resource:  applog.ComponentCategory,
		Operation: op,
		ID:        id,
		Fields:    applog.LogFields{applog.FieldSlug: slug},
	}
}
