// Package storagetest holds behaviour checks shared by every
// storage.Repository implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"expenses/internal/core"
	"expenses/internal/storage"
)

// Run exercises repo, which must start without categories or expenses.
func Run(t *testing.T, newRepo func(t *testing.T) storage.Repository) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, repo storage.Repository)
	}{
		{"categories", testCategories},
		{"seed", testSeed},
		{"expenses", testExpenses},
		{"exact amounts", testExactAmounts},
		{"dangling category", testDanglingCategory},
		{"delete category detaches", testDeleteCategoryDetaches},
		{"by category", testByCategory},
		{"not found", testNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			t.Cleanup(func() { _ = repo.Close() })
			tt.fn(t, repo)
		})
	}
}

func expense(desc string, cents int64, date string, category *int64) core.Expense {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	e := core.Expense{Description: desc, Amount: core.Cents(cents), Date: d}
	if category != nil {
		e.Category = &core.Category{ID: *category}
	}
	return e
}

func testExactAmounts(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	for _, in := range []string{"10.555", "0.005", "15.00", "-3.1"} {
		amount, err := core.ParseAmount(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		e := expense("x", 0, "2024-01-10", nil)
		e.Amount = amount
		created, err := repo.CreateExpense(ctx, e)
		if err != nil {
			t.Fatalf("create %q: %v", in, err)
		}
		got, err := repo.GetExpense(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Amount.Equal(amount) {
			t.Errorf("stored %s, read back %s", amount, got.Amount)
		}
	}
}

func testCategories(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	food, err := repo.CreateCategory(ctx, "Food")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	travel, err := repo.CreateCategory(ctx, "Travel")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if food.ID == 0 || travel.ID == food.ID {
		t.Fatalf("ids not assigned: %d %d", food.ID, travel.ID)
	}

	got, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0] != food || got[1] != travel {
		t.Fatalf("list = %+v", got)
	}

	c, err := repo.GetCategory(ctx, travel.ID)
	if err != nil || c.Name != "Travel" {
		t.Fatalf("get = %+v, %v", c, err)
	}
	if err := repo.DeleteCategory(ctx, food.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := repo.CountCategories(ctx); n != 1 {
		t.Fatalf("count after delete = %d", n)
	}
}

func testSeed(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	n, err := storage.Seed(ctx, repo)
	if err != nil || n != len(storage.DefaultCategories) {
		t.Fatalf("seed = %d, %v", n, err)
	}
	n, err = storage.Seed(ctx, repo)
	if err != nil || n != 0 {
		t.Fatalf("second seed = %d, %v", n, err)
	}
	cats, _ := repo.ListCategories(ctx)
	for i, c := range cats {
		if c.Name != storage.DefaultCategories[i] {
			t.Fatalf("category %d = %q, want %q", i, c.Name, storage.DefaultCategories[i])
		}
	}
}

func testExpenses(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	food, _ := repo.CreateCategory(ctx, "Food")

	created, err := repo.CreateExpense(ctx, expense("Lunch", 1500, "2024-01-10", &food.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.Category == nil || created.Category.Name != "Food" {
		t.Fatalf("created = %+v", created)
	}

	created.Description = "Dinner"
	created.Amount = core.Cents(2599)
	created.Category = nil
	updated, err := repo.UpdateExpense(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "Dinner" || updated.Amount.Cents() != 2599 || updated.Category != nil {
		t.Fatalf("updated = %+v", updated)
	}

	got, err := repo.GetExpense(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Date.String() != "2024-01-10" || got.Description != "Dinner" {
		t.Fatalf("get = %+v", got)
	}

	if _, err := repo.CreateExpense(ctx, expense("Taxi", 800, "2024-01-11", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}
	all, err := repo.ListExpenses(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("list = %+v, %v", all, err)
	}
	if all[0].ID != created.ID {
		t.Fatalf("list not in id order: %+v", all)
	}

	if err := repo.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = repo.ListExpenses(ctx)
	if len(all) != 1 || all[0].Description != "Taxi" {
		t.Fatalf("list after delete = %+v", all)
	}
}

func testDanglingCategory(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	missing := int64(999)
	e, err := repo.CreateExpense(ctx, expense("Ghost", 100, "2024-02-01", &missing))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Category == nil || e.Category.ID != 999 || e.Category.Name != "" {
		t.Fatalf("category = %+v, want bare id 999", e.Category)
	}
}

func testDeleteCategoryDetaches(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	food, _ := repo.CreateCategory(ctx, "Food")
	e, _ := repo.CreateExpense(ctx, expense("Lunch", 1500, "2024-01-10", &food.ID))

	if err := repo.DeleteCategory(ctx, food.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := repo.GetExpense(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != nil {
		t.Fatalf("category = %+v, want detached", got.Category)
	}
}

func testByCategory(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	food, _ := repo.CreateCategory(ctx, "Food")
	travel, _ := repo.CreateCategory(ctx, "Travel")
	_, _ = repo.CreateExpense(ctx, expense("Lunch", 1500, "2024-01-10", &food.ID))
	_, _ = repo.CreateExpense(ctx, expense("Train", 2500, "2024-01-11", &travel.ID))
	_, _ = repo.CreateExpense(ctx, expense("Snack", 300, "2024-01-12", &food.ID))
	_, _ = repo.CreateExpense(ctx, expense("Misc", 300, "2024-01-12", nil))

	got, err := repo.ListExpensesByCategory(ctx, food.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Description != "Lunch" || got[1].Description != "Snack" {
		t.Fatalf("by category = %+v", got)
	}
	none, err := repo.ListExpensesByCategory(ctx, 12345)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("unknown category = %#v, %v; want empty slice", none, err)
	}
}

func testNotFound(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	checks := map[string]error{}
	_, checks["get category"] = repo.GetCategory(ctx, 42)
	checks["delete category"] = repo.DeleteCategory(ctx, 42)
	_, checks["get expense"] = repo.GetExpense(ctx, 42)
	_, checks["update expense"] = repo.UpdateExpense(ctx, core.Expense{ID: 42, Description: "x", Date: core.NewDate(2024, 1, 1)})
	checks["delete expense"] = repo.DeleteExpense(ctx, 42)
	for op, err := range checks {
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", op, err)
		}
	}
}
