package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finance/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresDialect = dialect{
	name:      "postgres",
	numbered:  true,
	monthExpr: `TO_CHAR(t.due_date, 'MM-YY')`,
	dateArg:   func(d core.Date) any { return d.Time },
	timeArg:   func(t time.Time) any { return t },
	timeDest:  func(t *time.Time) any { return t },
	classify:  classifyPostgres,
}

type PostgresRepository struct {
	*sqlStore
	pool *pgxpool.Pool
}

var _ Store = (*PostgresRepository)(nil)

// NewPostgresRepository connects to databaseURL and applies pending
// migrations before returning.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRepository{
		sqlStore: &sqlStore{q: pgxQuerier{pool: pool}, d: postgresDialect, now: time.Now},
		pool:     pool,
	}, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func classifyPostgres(err error) constraint {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return noConstraint
	}
	switch pgErr.Code {
	case "23505":
		return uniqueViolation
	case "23503":
		return foreignKeyViolation
	}
	return noConstraint
}

// pgxQuerier adapts a pgx pool to querier.
type pgxQuerier struct {
	pool *pgxpool.Pool
}

func (q pgxQuerier) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	return pgxRow{q.pool.QueryRow(ctx, query, args...)}
}

func (q pgxQuerier) query(ctx context.Context, query string, args ...any) (rowsScanner, error) {
	rows, err := q.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (q pgxQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := q.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgxRow struct {
	pgx.Row
}

func (r pgxRow) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return sql.ErrNoRows
	}
	return err
}

// Truncate removes every row and resets identities.
func (r *PostgresRepository) Truncate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `TRUNCATE transactions, categories RESTART IDENTITY`)
	return err
}
