package view

import (
	"strconv"
	"time"

	"expenses/internal/core"
)

// Empty-state placeholders.
const (
	EmptyExpenses   = "No expenses found."
	EmptyRecent     = "No recent expenses"
	EmptyBreakdown  = "No category data available"
	EmptyCategories = "No categories found. Add your first category!"
)

// DisplayDateLayout renders dates as "Jan 5, 2024".
const DisplayDateLayout = "Jan 2, 2006"

// State is the part of the controller state the renderer reads.
type State struct {
	Categories []core.Category
	Expenses   []core.Expense
}

type (
	ExpenseRow struct {
		ID          int64
		Description string
		Date        string // formatted for display
		ISODate     string
		Category    string
		Amount      string // "$12.50"
	}

	CategoryRow struct {
		ID    int64
		Name  string
		Count int
	}

	BreakdownRow struct {
		Category string
		Total    string
		Amount   core.Money
		// Width is the bar length in percent of the largest total.
		Width int
	}

	Option struct {
		Value    string
		Label    string
		Selected bool
	}

	// Dashboard is everything a front-end needs to draw the three tabs.
	Dashboard struct {
		TotalExpenses   string
		MonthlyExpenses string
		CurrentMonth    string
		Recent          []ExpenseRow
		Breakdown       []BreakdownRow
		Expenses        []ExpenseRow
		Categories      []CategoryRow
		CategoryFilter  []Option
		Filters         Filters
	}
)

// Render maps the snapshots and filters to a Dashboard. today fixes the
// current month so the result is reproducible.
func Render(s State, f Filters, today time.Time) Dashboard {
	month := today.Format("2006-01")
	d := Dashboard{
		TotalExpenses:   Total(s.Expenses).Display(),
		MonthlyExpenses: MonthTotal(s.Expenses, month).Display(),
		CurrentMonth:    month,
		Filters:         f,
	}

	for _, e := range Recent(s.Expenses, RecentLimit) {
		d.Recent = append(d.Recent, expenseRow(e, s.Categories))
	}
	for _, e := range FilterExpenses(s.Expenses, f) {
		d.Expenses = append(d.Expenses, expenseRow(e, s.Categories))
	}

	breakdown := Breakdown(s.Expenses, s.Categories)
	var maxCents int64
	if len(breakdown) > 0 {
		maxCents = breakdown[0].Total.Cents()
	}
	for _, b := range breakdown {
		d.Breakdown = append(d.Breakdown, BreakdownRow{
			Category: b.Category,
			Total:    b.Total.Display(),
			Amount:   b.Total,
			Width:    barWidth(b.Total.Cents(), maxCents),
		})
	}

	for _, c := range CategoryCounts(s.Categories, s.Expenses) {
		d.Categories = append(d.Categories, CategoryRow{ID: c.Category.ID, Name: c.Category.Name, Count: c.Count})
	}
	d.CategoryFilter = CategoryOptions(s.Categories, f.CategoryID)
	return d
}

// CategoryOptions lists the categories as select options, marking selected.
func CategoryOptions(categories []core.Category, selected int64) []Option {
	out := make([]Option, 0, len(categories))
	for _, c := range categories {
		out = append(out, Option{
			Value:    strconv.FormatInt(c.ID, 10),
			Label:    c.Name,
			Selected: selected != 0 && c.ID == selected,
		})
	}
	return out
}

// FormatDate renders d for display, "" for the zero date.
func FormatDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DisplayDateLayout)
}

func expenseRow(e core.Expense, categories []core.Category) ExpenseRow {
	return ExpenseRow{
		ID:          e.ID,
		Description: e.Description,
		Date:        FormatDate(e.Date),
		ISODate:     e.Date.String(),
		Category:    CategoryLabel(e, categories),
		Amount:      e.Amount.Display(),
	}
}

// barWidth returns cents as a rounded percentage of maxCents; non-zero
// totals stay visible with at least 2%.
func barWidth(cents, maxCents int64) int {
	if maxCents <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + maxCents/2) / maxCents)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
