package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
)

type constraint int

const (
	noConstraint constraint = iota
	uniqueViolation
	foreignKeyViolation
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name string

	// numbered rewrites "?" placeholders as $1, $2, ...
	numbered bool

	// monthExpr renders t.due_date as "MM-YY".
	monthExpr string

	dateArg  func(core.Date) any
	timeArg  func(time.Time) any
	timeDest func(*time.Time) any
	classify func(error) constraint
}

func (d dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsScanner interface {
	rowScanner
	Next() bool
	Err() error
	Close()
}

// querier is the subset of a connection the SQL store needs. Scan on a row
// with no result reports sql.ErrNoRows.
type querier interface {
	queryRow(ctx context.Context, query string, args ...any) rowScanner
	query(ctx context.Context, query string, args ...any) (rowsScanner, error)
	exec(ctx context.Context, query string, args ...any) (int64, error)
}

// sqlStore implements Store on top of a querier for any supported dialect.
type sqlStore struct {
	q   querier
	d   dialect
	now func() time.Time
}

func (s *sqlStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

const categoryColumns = `id, title, slug, color, created_at, updated_at`

func (s *sqlStore) scanCategory(row rowScanner) (core.Category, error) {
	var (
		c     core.Category
		color sql.NullString
	)
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &color, s.d.timeDest(&c.CreatedAt), s.d.timeDest(&c.UpdatedAt))
	if err != nil {
		return core.Category{}, err
	}
	if color.Valid {
		c.Color = &color.String
	}
	return c, nil
}

func (s *sqlStore) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	now := s.timestamp()
	c.CreatedAt, c.UpdatedAt = now, now

	query := s.d.bind(`INSERT INTO categories (title, slug, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := s.q.queryRow(ctx, query, c.Title, c.Slug, c.Color, s.d.timeArg(now), s.d.timeArg(now)).Scan(&c.ID)
	if err != nil {
		if s.d.classify(err) == uniqueViolation {
			return core.Category{}, fmt.Errorf("category %q: %w", c.Slug, core.ErrAlreadyExists)
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	slog.DebugContext(ctx, "Category saved", "backend", s.d.name, applog.FieldCategoryID, c.ID, applog.FieldSlug, c.Slug)
	return c, nil
}

func (s *sqlStore) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.UpdatedAt = s.timestamp()

	query := s.d.bind(`UPDATE categories SET title = ?, slug = ?, color = ?, updated_at = ? WHERE id = ?`)
	n, err := s.q.exec(ctx, query, c.Title, c.Slug, c.Color, s.d.timeArg(c.UpdatedAt), c.ID)
	if err != nil {
		if s.d.classify(err) == uniqueViolation {
			return core.Category{}, fmt.Errorf("category %q: %w", c.Slug, core.ErrAlreadyExists)
		}
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if n == 0 {
		return core.Category{}, fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}
	return c, nil
}

func (s *sqlStore) DeleteCategory(ctx context.Context, id int64) error {
	n, err := s.q.exec(ctx, s.d.bind(`DELETE FROM categories WHERE id = ?`), id)
	if err != nil {
		if s.d.classify(err) == foreignKeyViolation {
			return fmt.Errorf("category %d: %w", id, core.ErrCategoryInUse)
		}
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *sqlStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.q.query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := s.scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *sqlStore) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	return s.getCategoryWhere(ctx, "id = ?", id)
}

func (s *sqlStore) GetCategoryBySlug(ctx context.Context, slug string) (*core.Category, error) {
	return s.getCategoryWhere(ctx, "slug = ?", slug)
}

func (s *sqlStore) getCategoryWhere(ctx context.Context, cond string, arg any) (*core.Category, error) {
	query := s.d.bind(`SELECT ` + categoryColumns + ` FROM categories WHERE ` + cond)
	c, err := s.scanCategory(s.q.queryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (s *sqlStore) MonthlyTotals(ctx context.Context) (core.MonthlyCategoryTotals, error) {
	query := `SELECT c.id, c.title, c.color, ` + s.d.monthExpr + ` AS month, CAST(SUM(t.amount_cents) AS BIGINT)
		FROM categories c
		LEFT JOIN transactions t ON t.category_id = c.id
		WHERE t.due_date IS NOT NULL
		GROUP BY c.id, c.title, c.color, month
		ORDER BY c.id, month`
	rows, err := s.q.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	totals := core.MonthlyCategoryTotals{}
	for rows.Next() {
		var (
			c     core.CategorySummary
			color sql.NullString
			month string
			cents int64
		)
		if err := rows.Scan(&c.ID, &c.Title, &color, &month, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		if color.Valid {
			c.Color = &color.String
		}
		totals.Add(c, month, core.Money{Cents: cents})
	}
	return totals, rows.Err()
}

const transactionSelect = `SELECT t.id, t.amount_cents, t.due_date, t.type, t.category_id, t.description,
		t.created_at, t.updated_at, c.title, c.color
	FROM transactions t
	JOIN categories c ON c.id = t.category_id`

func (s *sqlStore) scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t     core.Transaction
		due   time.Time
		typ   string
		desc  sql.NullString
		cat   core.CategorySummary
		color sql.NullString
	)
	err := row.Scan(&t.ID, &t.Amount.Cents, s.d.timeDest(&due), &typ, &t.CategoryID, &desc,
		s.d.timeDest(&t.CreatedAt), s.d.timeDest(&t.UpdatedAt), &cat.Title, &color)
	if err != nil {
		return core.Transaction{}, err
	}
	t.DueDate = core.DateOf(due)
	t.Type = core.TransactionType(typ)
	if desc.Valid {
		t.Description = &desc.String
	}
	cat.ID = t.CategoryID
	if color.Valid {
		cat.Color = &color.String
	}
	t.Category = &cat
	return t, nil
}

func (s *sqlStore) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := s.timestamp()

	query := s.d.bind(`INSERT INTO transactions
		(amount_cents, due_date, type, category_id, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	err := s.q.queryRow(ctx, query, t.Amount.Cents, s.d.dateArg(t.DueDate), string(t.Type), t.CategoryID,
		t.Description, s.d.timeArg(now), s.d.timeArg(now)).Scan(&id)
	if err != nil {
		if s.d.classify(err) == foreignKeyViolation {
			return core.Transaction{}, fmt.Errorf("category %d: %w", t.CategoryID, core.ErrInvalidCategory)
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"backend", s.d.name,
		applog.FieldTransactionID, id,
		applog.FieldCategoryID, t.CategoryID)

	return s.mustGetTransaction(ctx, id)
}

func (s *sqlStore) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	query := s.d.bind(`UPDATE transactions
		SET amount_cents = ?, due_date = ?, type = ?, category_id = ?, description = ?, updated_at = ?
		WHERE id = ?`)
	n, err := s.q.exec(ctx, query, t.Amount.Cents, s.d.dateArg(t.DueDate), string(t.Type), t.CategoryID,
		t.Description, s.d.timeArg(s.timestamp()), t.ID)
	if err != nil {
		if s.d.classify(err) == foreignKeyViolation {
			return core.Transaction{}, fmt.Errorf("category %d: %w", t.CategoryID, core.ErrInvalidCategory)
		}
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if n == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return s.mustGetTransaction(ctx, t.ID)
}

func (s *sqlStore) mustGetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t == nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return *t, nil
}

func (s *sqlStore) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := s.q.exec(ctx, s.d.bind(`DELETE FROM transactions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *sqlStore) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	t, err := s.scanTransaction(s.q.queryRow(ctx, s.d.bind(transactionSelect+` WHERE t.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return &t, nil
}

// where renders the filter as a WHERE clause over alias t.
func (s *sqlStore) where(f core.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	for _, c := range f.Clauses() {
		switch c.Kind {
		case core.ClauseCategory:
			conds = append(conds, "t.category_id = ?")
			args = append(args, c.CategoryID)
		case core.ClauseType:
			conds = append(conds, "t.type = ?")
			args = append(args, string(c.Type))
		case core.ClauseStartDate:
			conds = append(conds, "t.due_date >= ?")
			args = append(args, s.d.dateArg(c.Date))
		case core.ClauseEndDate:
			conds = append(conds, "t.due_date <= ?")
			args = append(args, s.d.dateArg(c.Date))
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *sqlStore) ListTransactions(ctx context.Context, f core.TransactionFilter, w *core.Window) ([]core.Transaction, error) {
	where, args := s.where(f)
	query := transactionSelect + where + ` ORDER BY t.due_date DESC, t.created_at DESC, t.id DESC`
	if w != nil {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, w.Limit, w.Offset)
	}

	rows, err := s.q.query(ctx, s.d.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []core.Transaction{}
	for rows.Next() {
		t, err := s.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (s *sqlStore) TransactionStats(ctx context.Context, f core.TransactionFilter) (core.TransactionStats, error) {
	where, args := s.where(f)
	query := `SELECT COUNT(*),
			CAST(COALESCE(SUM(CASE WHEN t.type = 'income' THEN t.amount_cents ELSE 0 END), 0) AS BIGINT),
			CAST(COALESCE(SUM(CASE WHEN t.type = 'expense' THEN t.amount_cents ELSE 0 END), 0) AS BIGINT)
		FROM transactions t` + where

	var count, income, expense int64
	if err := s.q.queryRow(ctx, s.d.bind(query), args...).Scan(&count, &income, &expense); err != nil {
		return core.TransactionStats{}, fmt.Errorf("transaction stats: %w", err)
	}
	return core.TransactionStats{
		Count:   int(count),
		Income:  core.Money{Cents: income},
		Expense: core.Money{Cents: expense},
	}, nil
}

func (s *sqlStore) AmountByCategory(ctx context.Context, f core.TransactionFilter) (core.AmountByCategory, error) {
	where, args := s.where(f)
	query := `SELECT t.type, c.title, CAST(SUM(t.amount_cents) AS BIGINT)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id` + where + `
		GROUP BY t.type, c.id, c.title`

	rows, err := s.q.query(ctx, s.d.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("amount by category: %w", err)
	}
	defer rows.Close()

	result := core.NewAmountByCategory()
	for rows.Next() {
		var (
			typ, title string
			cents      int64
		)
		if err := rows.Scan(&typ, &title, &cents); err != nil {
			return nil, fmt.Errorf("scan amount by category: %w", err)
		}
		result.Add(core.TransactionType(typ), title, core.Money{Cents: cents})
	}
	return result, rows.Err()
}
