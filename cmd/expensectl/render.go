package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"expenses/internal/view"
)

// barCols is the width of a 100% breakdown bar.
const barCols = 30

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	amount  lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	bar     lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

// newStyles binds the styles to w so color is dropped when w is not a
// terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa")),
		label:   r.NewStyle().Foreground(lipgloss.Color("#7f849c")),
		amount:  r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#7f849c")),
		header:  r.NewStyle().Bold(true).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		bar:     r.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		success: r.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		failure: r.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
	}
}

func renderSummary(w io.Writer, st styles, d view.Dashboard) {
	totals := lipgloss.JoinVertical(lipgloss.Left,
		st.label.Render("Total expenses")+"  "+st.amount.Render(d.TotalExpenses),
		st.label.Render("This month ("+d.CurrentMonth+")")+"  "+st.amount.Render(d.MonthlyExpenses),
	)
	fmt.Fprintln(w, totals)
	fmt.Fprintln(w)

	fmt.Fprintln(w, st.title.Render("Recent expenses"))
	if len(d.Recent) == 0 {
		fmt.Fprintln(w, st.muted.Render(view.EmptyRecent))
	} else {
		fmt.Fprintln(w, expenseTable(st, d.Recent))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, st.title.Render("By category"))
	if len(d.Breakdown) == 0 {
		fmt.Fprintln(w, st.muted.Render(view.EmptyBreakdown))
		return
	}
	fmt.Fprintln(w, breakdownLines(st, d.Breakdown))
}

func renderExpenses(w io.Writer, st styles, d view.Dashboard) {
	fmt.Fprintln(w, st.title.Render("Expenses")+" "+st.muted.Render(filterLabel(d)))
	if len(d.Expenses) == 0 {
		fmt.Fprintln(w, st.muted.Render(view.EmptyExpenses))
		return
	}
	fmt.Fprintln(w, expenseTable(st, d.Expenses))
}

func renderCategories(w io.Writer, st styles, rows []view.CategoryRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, st.muted.Render(view.EmptyCategories))
		return
	}
	t := newTable(st, "ID", "Name", "Expenses")
	for _, c := range rows {
		t.Row(strconv.FormatInt(c.ID, 10), c.Name, strconv.Itoa(c.Count))
	}
	fmt.Fprintln(w, t.String())
}

func expenseTable(st styles, rows []view.ExpenseRow) string {
	t := newTable(st, "ID", "Date", "Description", "Category", "Amount")
	for _, e := range rows {
		t.Row(strconv.FormatInt(e.ID, 10), e.Date, e.Description, e.Category, e.Amount)
	}
	return t.String()
}

func newTable(st styles, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.muted).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			return st.cell
		})
}

func breakdownLines(st styles, rows []view.BreakdownRow) string {
	width := 0
	for _, b := range rows {
		width = max(width, lipgloss.Width(b.Category))
	}
	lines := make([]string, 0, len(rows))
	for _, b := range rows {
		name := b.Category + strings.Repeat(" ", width-lipgloss.Width(b.Category))
		bar := strings.Repeat("█", b.Width*barCols/100)
		lines = append(lines, name+"  "+st.bar.Render(bar)+" "+st.amount.Render(b.Total))
	}
	return strings.Join(lines, "\n")
}

func filterLabel(d view.Dashboard) string {
	var parts []string
	if d.Filters.Month != "" {
		parts = append(parts, d.Filters.Month)
	} else {
		parts = append(parts, "all months")
	}
	for _, o := range d.CategoryFilter {
		if o.Selected && o.Value != "" {
			parts = append(parts, o.Label)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
