// Package storage defines the persistence contract of the reference
// backend. Implementations live in the memory, sqlite and postgres
// subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"

	"expenses/internal/core"
)

var ErrNotFound = errors.New("not found")

// DefaultCategories are created on first start when the store is empty.
var DefaultCategories = []string{
	"Bills",
	"Food",
	"Travel",
	"Home & Utilities",
	"Shopping",
	"Entertainment",
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, name string) (core.Category, error)
	// DeleteCategory removes the category and detaches it from every
	// expense that referenced it.
	DeleteCategory(ctx context.Context, id int64) error
	CountCategories(ctx context.Context) (int, error)
}

// ExpenseStore persists expenses. The category of an expense is stored by
// id only; reads resolve it to {id,name} when the category exists and keep
// the bare id otherwise.
type ExpenseStore interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListExpensesByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

type Repository interface {
	CategoryStore
	ExpenseStore
	Ping(ctx context.Context) error
	Close() error
}

// Seed creates DefaultCategories (or names, when given) if the store has no
// categories yet. It reports how many were created.
func Seed(ctx context.Context, repo CategoryStore, names ...string) (int, error) {
	n, err := repo.CountCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	if len(names) == 0 {
		names = DefaultCategories
	}
	for i, name := range names {
		if _, err := repo.CreateCategory(ctx, name); err != nil {
			return i, fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return len(names), nil
}

// CategoryRef returns the stored form of an expense's category reference.
func CategoryRef(e core.Expense) *int64 {
	id, ok := e.CategoryID()
	if !ok {
		return nil
	}
	return &id
}
