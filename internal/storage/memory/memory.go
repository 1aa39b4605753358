// Package memory is an in-process storage.Repository, used for local
// development and tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"expenses/internal/core"
	"expenses/internal/storage"
)

type record struct {
	id          int64
	description string
	amount      core.Money
	date        core.Date
	categoryID  *int64
}

type Store struct {
	mu      sync.Mutex
	lastCat int64
	lastExp int64
	cats    []core.Category
	items   []record
}

var _ storage.Repository = (*Store)(nil)

// New creates a store holding the given categories, ids assigned in order.
func New(categories ...string) *Store {
	s := &Store{}
	for _, name := range dedupe(categories) {
		s.lastCat++
		s.cats = append(s.cats, core.Category{ID: s.lastCat, Name: name})
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, falling back
// to storage.DefaultCategories when the file is missing or empty.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = storage.DefaultCategories
	}
	return New(cats...)
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category{}, s.cats...), nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.categoryIndex(id); i >= 0 {
		return s.cats[i], nil
	}
	return core.Category{}, storage.ErrNotFound
}

func (s *Store) CreateCategory(_ context.Context, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCat++
	c := core.Category{ID: s.lastCat, Name: name}
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.cats = append(s.cats[:i], s.cats[i+1:]...)
	for j := range s.items {
		if ref := s.items[j].categoryID; ref != nil && *ref == id {
			s.items[j].categoryID = nil
		}
	}
	return nil
}

func (s *Store) CountCategories(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cats), nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, s.expense(r))
	}
	return out, nil
}

func (s *Store) ListExpensesByCategory(_ context.Context, categoryID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Expense{}
	for _, r := range s.items {
		if r.categoryID != nil && *r.categoryID == categoryID {
			out = append(out, s.expense(r))
		}
	}
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.expenseIndex(id); i >= 0 {
		return s.expense(s.items[i]), nil
	}
	return core.Expense{}, storage.ErrNotFound
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastExp++
	r := newRecord(s.lastExp, e)
	s.items = append(s.items, r)
	return s.expense(r), nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(e.ID)
	if i < 0 {
		return core.Expense{}, storage.ErrNotFound
	}
	s.items[i] = newRecord(e.ID, e)
	return s.expense(s.items[i]), nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func newRecord(id int64, e core.Expense) record {
	return record{
		id:          id,
		description: e.Description,
		amount:      e.Amount,
		date:        e.Date,
		categoryID:  storage.CategoryRef(e),
	}
}

// expense resolves r against the current categories. Caller holds mu.
func (s *Store) expense(r record) core.Expense {
	var cat *core.Category
	if r.categoryID != nil {
		cat = &core.Category{ID: *r.categoryID}
		if i := s.categoryIndex(*r.categoryID); i >= 0 {
			cat.Name = s.cats[i].Name
		}
	}
	return core.Expense{
		ID:          r.id,
		Description: r.description,
		Amount:      r.amount,
		Date:        r.date,
		Category:    cat,
	}
}

func (s *Store) categoryIndex(id int64) int {
	for i, c := range s.cats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) expenseIndex(id int64) int {
	for i, r := range s.items {
		if r.id == id {
			return i
		}
	}
	return -1
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
