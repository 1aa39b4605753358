// Package dashboard holds the state of one dashboard session: the category
// and expense snapshots, the filters, the modal and tab state and the form
// drafts. Every operation runs under the controller lock, backend call
// included, so operations on one session never interleave.
package dashboard

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"expenses/internal/client"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/view"
)

var (
	// ErrNoExpenseSelected is returned by SubmitEdit when no edit is in progress.
	ErrNoExpenseSelected = errors.New("no expense selected for editing")
	// ErrDeclined is returned when the user declines a delete confirmation.
	ErrDeclined = errors.New("action declined")
)

// Backend is the REST API the controller synchronizes with.
type Backend interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, req client.CategoryRequest) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	CreateExpense(ctx context.Context, req client.ExpenseRequest) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, req client.ExpenseRequest) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

type Controller struct {
	mu sync.Mutex

	backend   Backend
	notifier  Notifier
	indicator Indicator
	logger    *log.Logger
	now       func() time.Time

	categories []core.Category
	expenses   []core.Expense
	filters    view.Filters
	ui         UI

	expenseForm  ExpenseForm
	editForm     ExpenseForm
	categoryForm CategoryForm
}

type Option func(*Controller)

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithIndicator(i Indicator) Option {
	return func(c *Controller) { c.indicator = i }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		notifier:  NotifierFunc(func(context.Context, Notification) {}),
		indicator: noopIndicator{},
		logger:    log.Discard(),
		now:       time.Now,
		ui:        newUI(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentDashboard)
	return c
}

// Start loads categories, then expenses, then defaults the add-expense date
// to today and the month filter to the current month. A failed load is
// notified and does not stop the next one.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	errCat := c.loadCategories(ctx)
	errExp := c.loadExpenses(ctx)
	c.dateDefaults()
	return errors.Join(errCat, errExp)
}

// LoadCategories replaces the categories snapshot.
func (c *Controller) LoadCategories(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadCategories(ctx)
}

// LoadExpenses replaces the expenses snapshot.
func (c *Controller) LoadExpenses(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadExpenses(ctx)
}

// Refresh reloads both snapshots, categories first.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.loadCategories(ctx), c.loadExpenses(ctx))
}

// AddExpense creates an expense from form. The draft is kept on failure and
// reset on success.
func (c *Controller) AddExpense(ctx context.Context, form ExpenseForm) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expenseForm = form
	req, err := form.Request()
	if err != nil {
		c.fail(ctx, "Error adding expense", err, "")
		return err
	}

	created, err := call(c, ctx, func(ctx context.Context) (core.Expense, error) {
		return c.backend.CreateExpense(ctx, req)
	})
	if err != nil {
		c.fail(ctx, "Error adding expense", err, "Failed to add expense")
		return err
	}

	c.logger.InfoContext(ctx, "Expense created", log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(created.ID, created.Description, created.Amount.String()).ToSlice()...)
	c.succeed(ctx, "Expense added successfully!")
	c.expenseForm = ExpenseForm{}
	c.dateDefaults()
	_ = c.loadExpenses(ctx)
	return nil
}

// AddCategory creates a category and closes the category modal.
func (c *Controller) AddCategory(ctx context.Context, form CategoryForm) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.categoryForm = form
	req, err := form.Request()
	if err != nil {
		c.fail(ctx, "Error adding category", err, "")
		return err
	}

	created, err := call(c, ctx, func(ctx context.Context) (core.Category, error) {
		return c.backend.CreateCategory(ctx, req)
	})
	if err != nil {
		c.fail(ctx, "Error adding category", err, "Failed to add category")
		return err
	}

	c.logger.InfoContext(ctx, "Category created", log.NewFields().
		WithOperation(log.OpCreate).
		WithCategory(created.ID, created.Name).ToSlice()...)
	c.succeed(ctx, "Category added successfully!")
	c.closeCategoryModal()
	_ = c.loadCategories(ctx)
	return nil
}

// SubmitEdit updates the expense remembered by OpenEditModal.
func (c *Controller) SubmitEdit(ctx context.Context, form ExpenseForm) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ui.EditOpen || c.ui.EditID == 0 {
		c.fail(ctx, "Error updating expense", ErrNoExpenseSelected, "")
		return ErrNoExpenseSelected
	}

	id := c.ui.EditID
	c.editForm = form
	req, err := form.Request()
	if err != nil {
		c.fail(ctx, "Error updating expense", err, "")
		return err
	}

	updated, err := call(c, ctx, func(ctx context.Context) (core.Expense, error) {
		return c.backend.UpdateExpense(ctx, id, req)
	})
	if err != nil {
		c.fail(ctx, "Error updating expense", err, "Failed to update expense")
		return err
	}

	c.logger.InfoContext(ctx, "Expense updated", log.NewFields().
		WithOperation(log.OpUpdate).
		WithExpense(updated.ID, updated.Description, updated.Amount.String()).ToSlice()...)
	c.succeed(ctx, "Expense updated successfully!")
	c.closeEditModal()
	_ = c.loadExpenses(ctx)
	return nil
}

// DeleteExpense deletes an expense once confirm agrees. A nil confirm
// counts as agreement.
func (c *Controller) DeleteExpense(ctx context.Context, id int64, confirm Confirmer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if confirm != nil && !confirm.Confirm(PromptDeleteExpense) {
		return ErrDeclined
	}

	_, err := call(c, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.DeleteExpense(ctx, id)
	})
	if err != nil {
		c.fail(ctx, "Error deleting expense", err, "Failed to delete expense")
		return err
	}

	c.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete, log.FieldExpenseID, id)
	c.succeed(ctx, "Expense deleted successfully!")
	_ = c.loadExpenses(ctx)
	return nil
}

// DeleteCategory deletes a category once confirm agrees, then reloads
// categories and expenses in that order.
func (c *Controller) DeleteCategory(ctx context.Context, id int64, confirm Confirmer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if confirm != nil && !confirm.Confirm(PromptDeleteCategory) {
		return ErrDeclined
	}

	_, err := call(c, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.DeleteCategory(ctx, id)
	})
	if err != nil {
		c.fail(ctx, "Error deleting category", err, "Failed to delete category")
		return err
	}

	c.logger.InfoContext(ctx, "Category deleted",
		log.FieldOperation, log.OpDelete, log.FieldCategoryID, id)
	c.succeed(ctx, "Category deleted successfully!")
	if c.filters.CategoryID == id {
		c.filters.CategoryID = 0
	}
	_ = c.loadCategories(ctx)
	_ = c.loadExpenses(ctx)
	return nil
}

func (c *Controller) OpenCategoryModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.CategoryOpen = true
}

func (c *Controller) CloseCategoryModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCategoryModal()
}

// OpenEditModal opens the edit modal pre-filled with the expense id. It
// returns false and changes nothing when the expense is not in the snapshot.
func (c *Controller) OpenEditModal(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.expenses, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return false
	}
	c.ui.EditOpen = true
	c.ui.EditID = id
	c.editForm = formFor(c.expenses[i])
	return true
}

func (c *Controller) CloseEditModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeEditModal()
}

// CloseModal closes m; closing a closed modal is a no-op.
func (c *Controller) CloseModal(m Modal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeModal(m)
}

// ClickOutside closes m if it is open.
func (c *Controller) ClickOutside(m Modal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ui.IsOpen(m) {
		c.closeModal(m)
	}
}

// ActivateTab makes name the active tab. Unknown names are rejected and the
// current tab stays active.
func (c *Controller) ActivateTab(name string) error {
	tab, err := ParseTab(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.ui.Tab = tab
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetFilters(f view.Filters) {
	c.mu.Lock()
	c.filters = f
	c.mu.Unlock()
}

func (c *Controller) Filters() view.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

func (c *Controller) UI() UI {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ui
}

// State returns copies of the current snapshots.
func (c *Controller) State() view.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

// Page is everything a front-end draws: the derived views plus the UI state
// and form drafts.
type Page struct {
	view.Dashboard
	UI UI

	ExpenseForm  ExpenseForm
	EditForm     ExpenseForm
	CategoryForm CategoryForm

	ExpenseOptions []view.Option
	EditOptions    []view.Option
}

// Page renders the session as of now.
func (c *Controller) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Page{
		Dashboard:      view.Render(c.state(), c.filters, c.now()),
		UI:             c.ui,
		ExpenseForm:    c.expenseForm,
		EditForm:       c.editForm,
		CategoryForm:   c.categoryForm,
		ExpenseOptions: view.CategoryOptions(c.categories, selected(c.expenseForm.CategoryID)),
		EditOptions:    view.CategoryOptions(c.categories, selected(c.editForm.CategoryID)),
	}
}

func (c *Controller) state() view.State {
	return view.State{
		Categories: slices.Clone(c.categories),
		Expenses:   slices.Clone(c.expenses),
	}
}

func (c *Controller) loadCategories(ctx context.Context) error {
	categories, err := call(c, ctx, c.backend.ListCategories)
	if err != nil {
		c.fail(ctx, "Error loading categories", err, "Failed to load categories")
		return err
	}
	c.categories = categories
	c.logger.DebugContext(ctx, "Categories loaded", log.FieldCount, len(categories))
	return nil
}

func (c *Controller) loadExpenses(ctx context.Context) error {
	expenses, err := call(c, ctx, c.backend.ListExpenses)
	if err != nil {
		c.fail(ctx, "Error loading expenses", err, "Failed to load expenses")
		return err
	}
	c.expenses = expenses
	c.logger.DebugContext(ctx, "Expenses loaded", log.FieldCount, len(expenses))
	return nil
}

func (c *Controller) dateDefaults() {
	today := c.now()
	c.expenseForm.Date = core.DateOf(today).String()
	c.filters.Month = today.Format("2006-01")
}

func (c *Controller) closeModal(m Modal) {
	switch m {
	case ModalCategory:
		c.closeCategoryModal()
	case ModalEdit:
		c.closeEditModal()
	}
}

func (c *Controller) closeCategoryModal() {
	c.ui.CategoryOpen = false
	c.categoryForm = CategoryForm{}
}

func (c *Controller) closeEditModal() {
	c.ui.EditOpen = false
	c.ui.EditID = 0
	c.editForm = ExpenseForm{}
}

func (c *Controller) succeed(ctx context.Context, msg string) {
	c.logger.InfoContext(ctx, msg, log.FieldSuccess, true)
	c.notifier.Notify(ctx, Notification{Kind: KindSuccess, Message: msg})
}

// fail notifies prefix plus a message for err. Non-2xx responses are
// reported as statusMsg when it is set; other errors by their own text.
func (c *Controller) fail(ctx context.Context, prefix string, err error, statusMsg string) {
	msg := err.Error()
	var se *client.StatusError
	if statusMsg != "" && errors.As(err, &se) {
		msg = statusMsg
	}
	c.logger.WarnContext(ctx, prefix, log.FieldSuccess, false, log.FieldError, err.Error())
	c.notifier.Notify(ctx, Notification{Kind: KindError, Message: prefix + ": " + msg})
}

// call runs fn with the busy indicator shown.
func call[T any](c *Controller, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	c.indicator.Show()
	defer c.indicator.Hide()
	return fn(ctx)
}

func selected(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}
