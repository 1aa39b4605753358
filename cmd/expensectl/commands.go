package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"expenses/internal/core"
	"expenses/internal/dashboard"
	"expenses/internal/log"
)

type command struct {
	help string
	run  func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"summary":         {"totals, recent expenses and the category breakdown", runSummary},
	"list":            {"list expenses [-category id] [-month YYYY-MM|all]", runList},
	"categories":      {"list categories with expense counts", runCategories},
	"add-expense":     {"add an expense", runAddExpense},
	"edit-expense":    {"change fields of an expense", runEditExpense},
	"delete-expense":  {"delete an expense", runDeleteExpense},
	"add-category":    {"add a category", runAddCategory},
	"delete-category": {"delete a category; its expenses are kept", runDeleteCategory},
}

var commandOrder = []string{
	"summary", "list", "categories",
	"add-expense", "edit-expense", "delete-expense",
	"add-category", "delete-category",
}

type app struct {
	ctrl   *dashboard.Controller
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	styles styles
	now    func() time.Time
}

func newApp(backend dashboard.Backend, stdin io.Reader, stdout, stderr io.Writer, logger *log.Logger) *app {
	a := &app{
		in:     bufio.NewReader(stdin),
		out:    stdout,
		errOut: stderr,
		styles: newStyles(stdout),
		now:    time.Now,
	}
	a.ctrl = dashboard.New(backend,
		dashboard.WithNotifier(dashboard.NotifierFunc(a.notify)),
		dashboard.WithIndicator(newIndicator(stderr)),
		dashboard.WithLogger(logger),
		dashboard.WithClock(func() time.Time { return a.now() }))
	return a
}

func (a *app) notify(_ context.Context, n dashboard.Notification) {
	if n.Kind == dashboard.KindError {
		fmt.Fprintln(a.errOut, a.styles.failure.Render("✗ "+n.Message))
		return
	}
	fmt.Fprintln(a.errOut, a.styles.success.Render("✓ "+n.Message))
}

// confirm asks on stdin; anything but y or yes declines.
func (a *app) confirm(prompt string) bool {
	fmt.Fprintf(a.errOut, "%s [y/N] ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(a.errOut)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) confirmer(yes bool) dashboard.Confirmer {
	if yes {
		return dashboard.Always
	}
	return dashboard.ConfirmFunc(a.confirm)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

func requireID(fs *flag.FlagSet, id int64) error {
	if id <= 0 {
		fmt.Fprintf(fs.Output(), "%s: -id is required\n", fs.Name())
		fs.PrintDefaults()
		return errUsage
	}
	return nil
}

func runSummary(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("summary"), args); err != nil {
		return err
	}
	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}
	renderSummary(a.out, a.styles, a.ctrl.Page().Dashboard)
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := a.flags("list")
	category := fs.Int64("category", 0, "only expenses in this category id")
	month := fs.String("month", "", "only expenses in this month (YYYY-MM); all for every month (default current month)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}

	f := a.ctrl.Filters()
	f.CategoryID = max(*category, 0)
	switch m := strings.TrimSpace(*month); m {
	case "":
	case "all":
		f.Month = ""
	default:
		f.Month = m
	}
	a.ctrl.SetFilters(f)

	renderExpenses(a.out, a.styles, a.ctrl.Page().Dashboard)
	return nil
}

func runCategories(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("categories"), args); err != nil {
		return err
	}
	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}
	renderCategories(a.out, a.styles, a.ctrl.Page().Categories)
	return nil
}

type expenseFlags struct {
	description *string
	amount      *string
	date        *string
	category    *string
}

func addExpenseFlags(fs *flag.FlagSet) expenseFlags {
	return expenseFlags{
		description: fs.String("description", "", "what the money was spent on"),
		amount:      fs.String("amount", "", "amount, e.g. 12.50"),
		date:        fs.String("date", "", "date as YYYY-MM-DD"),
		category:    fs.String("category", "", "category id; empty for none"),
	}
}

// apply copies the flags given on the command line onto form.
func (ef expenseFlags) apply(fs *flag.FlagSet, form *dashboard.ExpenseForm) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "description":
			form.Description = *ef.description
		case "amount":
			form.Amount = *ef.amount
		case "date":
			form.Date = *ef.date
		case "category":
			form.CategoryID = *ef.category
		}
	})
}

func runAddExpense(ctx context.Context, a *app, args []string) error {
	fs := a.flags("add-expense")
	ef := addExpenseFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	form := dashboard.ExpenseForm{Date: core.DateOf(a.now()).String()}
	ef.apply(fs, &form)
	return a.ctrl.AddExpense(ctx, form)
}

func runEditExpense(ctx context.Context, a *app, args []string) error {
	fs := a.flags("edit-expense")
	id := fs.Int64("id", 0, "expense id")
	ef := addExpenseFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	if err := a.ctrl.LoadExpenses(ctx); err != nil {
		return err
	}
	if !a.ctrl.OpenEditModal(*id) {
		err := fmt.Errorf("expense %d not found", *id)
		a.notify(ctx, dashboard.Notification{Kind: dashboard.KindError, Message: "Error updating expense: " + err.Error()})
		return err
	}

	form := a.ctrl.Page().EditForm
	ef.apply(fs, &form)
	return a.ctrl.SubmitEdit(ctx, form)
}

func runDeleteExpense(ctx context.Context, a *app, args []string) error {
	fs := a.flags("delete-expense")
	id := fs.Int64("id", 0, "expense id")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	return a.ctrl.DeleteExpense(ctx, *id, a.confirmer(*yes))
}

func runAddCategory(ctx context.Context, a *app, args []string) error {
	fs := a.flags("add-category")
	name := fs.String("name", "", "category name")
	if err := parse(fs, args); err != nil {
		return err
	}
	return a.ctrl.AddCategory(ctx, dashboard.CategoryForm{Name: *name})
}

func runDeleteCategory(ctx context.Context, a *app, args []string) error {
	fs := a.flags("delete-category")
	id := fs.Int64("id", 0, "category id")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	return a.ctrl.DeleteCategory(ctx, *id, a.confirmer(*yes))
}

// indicator shows a one-line busy marker while a request is in flight. It
// stays silent unless stderr is a terminal.
type indicator struct {
	w  io.Writer
	on bool
}

func newIndicator(w io.Writer) *indicator {
	f, ok := w.(*os.File)
	return &indicator{w: w, on: ok && isatty.IsTerminal(f.Fd())}
}

func (i *indicator) Show() {
	if i.on {
		fmt.Fprint(i.w, "Loading…")
	}
}

func (i *indicator) Hide() {
	if i.on {
		fmt.Fprint(i.w, "\r\033[K")
	}
}
