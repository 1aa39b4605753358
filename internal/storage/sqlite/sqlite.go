// Package sqlite is the storage.Repository backed by a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"expenses/internal/core"
	"expenses/internal/storage"

	_ "modernc.org/sqlite"
)

const expenseColumns = `e.id, e.description, e.amount, e.date, e.category_id, c.name`

const selectExpenses = `SELECT ` + expenseColumns + `
FROM expenses e LEFT JOIN categories c ON c.id = e.category_id`

type Repository struct {
	db *sql.DB
}

var _ storage.Repository = (*Repository)(nil)

// Open creates the database directory if needed, migrates the schema and
// returns a ready repository.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := storage.MigrateSQLite(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c := core.Category{ID: id}
	err := r.db.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, id).Scan(&c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return core.Category{ID: id, Name: name}, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE expenses SET category_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("detach expenses from category %d: %w", id, err)
	}
	return tx.Commit()
}

func (r *Repository) CountCategories(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.queryExpenses(ctx, selectExpenses+` ORDER BY e.id`)
}

func (r *Repository) ListExpensesByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx, selectExpenses+` WHERE e.category_id = ? ORDER BY e.id`, categoryID)
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, selectExpenses+` WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (description, amount, date, category_id) VALUES (?, ?, ?, ?)`,
		e.Description, e.Amount, e.Date.String(), storage.CategoryRef(e))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return r.GetExpense(ctx, id)
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, date = ?, category_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Description, e.Amount, e.Date.String(), storage.CategoryRef(e), e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, storage.ErrNotFound
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e          core.Expense
		date       string
		categoryID sql.NullInt64
		name       sql.NullString
	)
	if err := s.Scan(&e.ID, &e.Description, &e.Amount, &date, &categoryID, &name); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = d
	if categoryID.Valid {
		e.Category = &core.Category{ID: categoryID.Int64, Name: name.String}
	}
	return e, nil
}
