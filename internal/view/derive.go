// Package view computes everything the dashboard shows from the current
// snapshots. Every function is pure and leaves its inputs untouched.
package view

import (
	"cmp"
	"slices"
	"strings"

	"expenses/internal/core"
)

// RecentLimit caps the recent-expenses list.
const RecentLimit = 5

// Filters are the two selections of the expense list. Zero values mean
// "no filter": category ids start at 1 on every backend.
type Filters struct {
	CategoryID int64
	Month      string // YYYY-MM prefix
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return f.CategoryID != 0 || f.Month != ""
}

// CategoryTotal is one line of the category breakdown.
type CategoryTotal struct {
	Category string
	Total    core.Money
}

// CategoryCount pairs a category with the number of expenses referencing it.
type CategoryCount struct {
	Category core.Category
	Count    int
}

// FilterExpenses returns the expenses matching f, newest first. Equal dates
// keep their snapshot order.
func FilterExpenses(expenses []core.Expense, f Filters) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.CategoryID != 0 {
			id, ok := e.CategoryID()
			if !ok || id != f.CategoryID {
				continue
			}
		}
		if f.Month != "" && !strings.HasPrefix(e.Date.String(), f.Month) {
			continue
		}
		out = append(out, e)
	}
	sortByDateDesc(out)
	return out
}

// Total sums every amount in expenses.
func Total(expenses []core.Expense) core.Money {
	var sum core.Money
	for _, e := range expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// MonthTotal sums the amounts whose date starts with month (YYYY-MM).
func MonthTotal(expenses []core.Expense, month string) core.Money {
	var sum core.Money
	for _, e := range expenses {
		if strings.HasPrefix(e.Date.String(), month) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

// Recent returns at most limit expenses, newest first.
func Recent(expenses []core.Expense, limit int) []core.Expense {
	out := slices.Clone(expenses)
	sortByDateDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Breakdown totals categorized expenses per category label, largest first.
// Uncategorized expenses are left out; so are categories without expenses.
func Breakdown(expenses []core.Expense, categories []core.Category) []CategoryTotal {
	sums := make(map[string]core.Money)
	for _, e := range expenses {
		if e.Category == nil {
			continue
		}
		name := CategoryLabel(e, categories)
		sums[name] = sums[name].Add(e.Amount)
	}

	out := make([]CategoryTotal, 0, len(sums))
	for name, total := range sums {
		out = append(out, CategoryTotal{Category: name, Total: total})
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

// CategoryCounts pairs each category with a live count of its expenses.
func CategoryCounts(categories []core.Category, expenses []core.Expense) []CategoryCount {
	counts := make(map[int64]int, len(categories))
	for _, e := range expenses {
		if id, ok := e.CategoryID(); ok {
			counts[id]++
		}
	}
	out := make([]CategoryCount, len(categories))
	for i, c := range categories {
		out[i] = CategoryCount{Category: c, Count: counts[c.ID]}
	}
	return out
}

// NoCategory labels expenses without a category reference.
const NoCategory = "No Category"

// CategoryLabel names the category of e. A present reference always wins
// over "No Category": its embedded name is used, then the name found in
// categories, then the empty string.
func CategoryLabel(e core.Expense, categories []core.Category) string {
	if e.Category == nil {
		return NoCategory
	}
	if e.Category.Name != "" {
		return e.Category.Name
	}
	for _, c := range categories {
		if c.ID == e.Category.ID {
			return c.Name
		}
	}
	return ""
}

func sortByDateDesc(expenses []core.Expense) {
	slices.SortStableFunc(expenses, func(a, b core.Expense) int {
		return b.Date.Compare(a.Date.Time)
	})
}
