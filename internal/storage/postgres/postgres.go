// Package postgres is the storage.Repository backed by PostgreSQL through a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expenses/internal/core"
	"expenses/internal/storage"
)

const selectExpenses = `SELECT e.id, e.description, e.amount::text, e.date, e.category_id, c.name
FROM expenses e LEFT JOIN categories c ON c.id = e.category_id`

type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Repository)(nil)

// Open migrates the schema at url and connects a pool to it.
func Open(ctx context.Context, url string) (*Repository, error) {
	if err := storage.MigratePostgres(url); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		var c core.Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c := core.Category{ID: id}
	err := r.pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, id).Scan(&c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	c := core.Category{Name: name}
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`UPDATE expenses SET category_id = NULL, updated_at = now() WHERE category_id = $1`, id); err != nil {
			return fmt.Errorf("detach expenses from category %d: %w", id, err)
		}
		return nil
	})
}

func (r *Repository) CountCategories(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.queryExpenses(ctx, selectExpenses+` ORDER BY e.id`)
}

func (r *Repository) ListExpensesByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx, selectExpenses+` WHERE e.category_id = $1 ORDER BY e.id`, categoryID)
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, selectExpenses+` WHERE e.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO expenses (description, amount, date, category_id)
		 VALUES ($1, $2::text::numeric, $3, $4) RETURNING id`,
		e.Description, e.Amount.String(), e.Date.Time, storage.CategoryRef(e)).Scan(&id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return r.GetExpense(ctx, id)
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE expenses SET description = $1, amount = $2::text::numeric, date = $3, category_id = $4, updated_at = now()
		 WHERE id = $5`,
		e.Description, e.Amount.String(), e.Date.Time, storage.CategoryRef(e), e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return core.Expense{}, storage.ErrNotFound
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Expense, error) {
		return scanExpense(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan expenses: %w", err)
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e          core.Expense
		amount     string
		date       time.Time
		categoryID *int64
		name       *string
	)
	if err := row.Scan(&e.ID, &e.Description, &amount, &date, &categoryID, &name); err != nil {
		return core.Expense{}, err
	}
	m, err := core.ParseAmount(amount)
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = m
	e.Date = core.DateOf(date)
	if categoryID != nil {
		e.Category = &core.Category{ID: *categoryID}
		if name != nil {
			e.Category.Name = *name
		}
	}
	return e, nil
}
