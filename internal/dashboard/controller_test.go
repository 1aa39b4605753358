package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"expenses/internal/client"
	"expenses/internal/core"
	"expenses/internal/view"
)

// fakeBackend is an in-memory API that records every call.
type fakeBackend struct {
	mu         sync.Mutex
	categories []core.Category
	expenses   []core.Expense
	nextID     int64
	calls      []string
	failOn     map[string]error

	lastExpense  client.ExpenseRequest
	lastCategory client.CategoryRequest
}

func newFakeBackend() *fakeBackend {
	food := core.Category{ID: 1, Name: "Food"}
	return &fakeBackend{
		categories: []core.Category{food, {ID: 2, Name: "Travel"}},
		expenses: []core.Expense{
			{ID: 1, Description: "Lunch", Amount: core.Cents(1000), Date: core.NewDate(2024, 1, 5), Category: &food},
			{ID: 2, Description: "Dinner", Amount: core.Cents(500), Date: core.NewDate(2024, 1, 20), Category: &food},
		},
		nextID: 10,
		failOn: map[string]error{},
	}
}

func (f *fakeBackend) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeBackend) ListCategories(context.Context) ([]core.Category, error) {
	if err := f.record("ListCategories"); err != nil {
		return nil, err
	}
	return slices.Clone(f.categories), nil
}

func (f *fakeBackend) CreateCategory(_ context.Context, req client.CategoryRequest) (core.Category, error) {
	if err := f.record("CreateCategory"); err != nil {
		return core.Category{}, err
	}
	f.lastCategory = req
	f.nextID++
	c := core.Category{ID: f.nextID, Name: req.Name}
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeBackend) DeleteCategory(_ context.Context, id int64) error {
	if err := f.record("DeleteCategory"); err != nil {
		return err
	}
	f.categories = slices.DeleteFunc(f.categories, func(c core.Category) bool { return c.ID == id })
	for i := range f.expenses {
		if f.expenses[i].Category != nil && f.expenses[i].Category.ID == id {
			f.expenses[i].Category = nil
		}
	}
	return nil
}

func (f *fakeBackend) ListExpenses(context.Context) ([]core.Expense, error) {
	if err := f.record("ListExpenses"); err != nil {
		return nil, err
	}
	return slices.Clone(f.expenses), nil
}

func (f *fakeBackend) CreateExpense(_ context.Context, req client.ExpenseRequest) (core.Expense, error) {
	if err := f.record("CreateExpense"); err != nil {
		return core.Expense{}, err
	}
	f.lastExpense = req
	f.nextID++
	e := f.toExpense(f.nextID, req)
	f.expenses = append(f.expenses, e)
	return e, nil
}

func (f *fakeBackend) UpdateExpense(_ context.Context, id int64, req client.ExpenseRequest) (core.Expense, error) {
	if err := f.record("UpdateExpense"); err != nil {
		return core.Expense{}, err
	}
	f.lastExpense = req
	for i := range f.expenses {
		if f.expenses[i].ID == id {
			f.expenses[i] = f.toExpense(id, req)
			return f.expenses[i], nil
		}
	}
	return core.Expense{}, &client.StatusError{Method: http.MethodPut, StatusCode: http.StatusNotFound}
}

func (f *fakeBackend) DeleteExpense(_ context.Context, id int64) error {
	if err := f.record("DeleteExpense"); err != nil {
		return err
	}
	f.expenses = slices.DeleteFunc(f.expenses, func(e core.Expense) bool { return e.ID == id })
	return nil
}

func (f *fakeBackend) toExpense(id int64, req client.ExpenseRequest) core.Expense {
	date, _ := core.ParseDate(req.Date)
	e := core.Expense{ID: id, Description: req.Description, Amount: req.Amount, Date: date}
	if req.Category != nil {
		e.Category = &core.Category{ID: req.Category.ID}
		for _, c := range f.categories {
			if c.ID == req.Category.ID {
				e.Category.Name = c.Name
			}
		}
	}
	return e
}

type countingIndicator struct{ shown, hidden int }

func (i *countingIndicator) Show() { i.shown++ }
func (i *countingIndicator) Hide() { i.hidden++ }

var fixedNow = time.Date(2024, 1, 25, 9, 30, 0, 0, time.UTC)

func newController(t *testing.T, backend Backend) (*Controller, *Inbox) {
	t.Helper()
	inbox := &Inbox{}
	c := New(backend, WithNotifier(inbox), WithClock(func() time.Time { return fixedNow }))
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	inbox.Drain()
	return c, inbox
}

func expectNotification(t *testing.T, inbox *Inbox, kind Kind, message string) {
	t.Helper()
	got := inbox.Drain()
	if len(got) == 0 {
		t.Fatalf("expected notification %q, got none", message)
	}
	last := got[len(got)-1]
	if last.Kind != kind || last.Message != message {
		t.Fatalf("notification = %+v, want %s %q", last, kind, message)
	}
}

func TestStartLoadsCategoriesBeforeExpenses(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newController(t, backend)

	if got := backend.Calls(); !slices.Equal(got, []string{"ListCategories", "ListExpenses"}) {
		t.Fatalf("calls = %v", got)
	}
	state := c.State()
	if len(state.Categories) != 2 || len(state.Expenses) != 2 {
		t.Fatalf("unexpected state: %+v", state)
	}
	page := c.Page()
	if page.ExpenseForm.Date != "2024-01-25" {
		t.Errorf("expense date default = %q", page.ExpenseForm.Date)
	}
	if page.Filters.Month != "2024-01" {
		t.Errorf("month filter default = %q", page.Filters.Month)
	}
	if page.UI.Tab != TabDashboard {
		t.Errorf("initial tab = %q", page.UI.Tab)
	}
}

func TestStartFailureKeepsGoing(t *testing.T) {
	backend := newFakeBackend()
	backend.failOn["ListCategories"] = &client.StatusError{StatusCode: http.StatusInternalServerError}

	inbox := &Inbox{}
	ind := &countingIndicator{}
	c := New(backend, WithNotifier(inbox), WithIndicator(ind))
	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("expected error from failed category load")
	}
	if len(c.State().Expenses) != 2 {
		t.Fatal("expenses should still load after a category failure")
	}
	if ind.shown != 2 || ind.hidden != 2 {
		t.Errorf("indicator shown=%d hidden=%d", ind.shown, ind.hidden)
	}
	expectNotification(t, inbox, KindError, "Error loading categories: Failed to load categories")
}

func TestLoadFailureLeavesSnapshot(t *testing.T) {
	backend := newFakeBackend()
	c, inbox := newController(t, backend)

	backend.failOn["ListExpenses"] = errors.New("connection refused")
	if err := c.LoadExpenses(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(c.State().Expenses) != 2 {
		t.Fatal("snapshot should be unchanged")
	}
	expectNotification(t, inbox, KindError, "Error loading expenses: connection refused")
}

func TestController_WorkedExample(t *testing.T) {
	c, _ := newController(t, newFakeBackend())
	c.SetFilters(view.Filters{Month: "2024-01"})

	page := c.Page()
	if page.TotalExpenses != "$15.00" {
		t.Errorf("total = %q", page.TotalExpenses)
	}
	if len(page.Breakdown) != 1 || page.Breakdown[0].Category != "Food" || page.Breakdown[0].Amount.String() != "15.00" {
		t.Errorf("breakdown = %+v", page.Breakdown)
	}
	if len(page.Expenses) != 2 || page.Expenses[0].ID != 2 {
		t.Errorf("filtered expenses = %+v", page.Expenses)
	}
}

func TestAddExpense(t *testing.T) {
	backend := newFakeBackend()
	c, inbox := newController(t, backend)
	c.SetFilters(view.Filters{Month: "2023-12"})

	form := ExpenseForm{Description: "Taxi", Amount: "12,5", Date: "2024-01-24", CategoryID: "2"}
	if err := c.AddExpense(context.Background(), form); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	expectNotification(t, inbox, KindSuccess, "Expense added successfully!")

	req := backend.lastExpense
	if req.Description != "Taxi" || req.Amount.Cents() != 1250 || req.Date != "2024-01-24" || req.Category == nil || req.Category.ID != 2 {
		t.Errorf("unexpected request: %+v", req)
	}
	if got := backend.Calls(); got[len(got)-1] != "ListExpenses" {
		t.Errorf("expected a reload after the mutation, calls = %v", got)
	}
	if len(c.State().Expenses) != 3 {
		t.Errorf("expected 3 expenses after reload")
	}
	page := c.Page()
	if page.ExpenseForm != (ExpenseForm{Date: "2024-01-25"}) {
		t.Errorf("form not reset: %+v", page.ExpenseForm)
	}
	if page.Filters.Month != "2024-01" {
		t.Errorf("month filter not reset: %q", page.Filters.Month)
	}
}

func TestAddExpenseWithoutCategoryOmitsIt(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newController(t, backend)

	if err := c.AddExpense(context.Background(), ExpenseForm{Description: "Misc", Amount: "1", Date: "2024-01-01"}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if backend.lastExpense.Category != nil {
		t.Errorf("category should be omitted, got %+v", backend.lastExpense.Category)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	tests := []struct {
		name string
		form ExpenseForm
		want error
	}{
		{"missing description", ExpenseForm{Amount: "1", Date: "2024-01-01"}, ErrRequired},
		{"missing amount", ExpenseForm{Description: "x", Date: "2024-01-01"}, ErrRequired},
		{"bad amount", ExpenseForm{Description: "x", Amount: "abc", Date: "2024-01-01"}, core.ErrInvalidAmount},
		{"missing date", ExpenseForm{Description: "x", Amount: "1"}, ErrRequired},
		{"bad date", ExpenseForm{Description: "x", Amount: "1", Date: "yesterday"}, core.ErrInvalidDate},
		{"bad category", ExpenseForm{Description: "x", Amount: "1", Date: "2024-01-01", CategoryID: "food"}, ErrInvalidCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			c, inbox := newController(t, backend)
			before := len(backend.Calls())

			err := c.AddExpense(context.Background(), tt.form)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(backend.Calls()) != before {
				t.Errorf("no request expected, calls = %v", backend.Calls())
			}
			n := inbox.Drain()
			if len(n) != 1 || n[0].Kind != KindError || !strings.HasPrefix(n[0].Message, "Error adding expense: ") {
				t.Errorf("unexpected notifications: %+v", n)
			}
			if c.Page().ExpenseForm != tt.form {
				t.Errorf("draft should be kept on failure")
			}
		})
	}
}

func TestAddExpenseFailureKeepsState(t *testing.T) {
	backend := newFakeBackend()
	backend.failOn["CreateExpense"] = &client.StatusError{StatusCode: http.StatusBadRequest}
	c, inbox := newController(t, backend)

	form := ExpenseForm{Description: "Taxi", Amount: "3", Date: "2024-01-24"}
	if err := c.AddExpense(context.Background(), form); err == nil {
		t.Fatal("expected error")
	}
	expectNotification(t, inbox, KindError, "Error adding expense: Failed to add expense")
	if len(c.State().Expenses) != 2 {
		t.Error("snapshot should be unchanged")
	}
	if c.Page().ExpenseForm != form {
		t.Error("draft should be kept")
	}
}

func TestAddCategory(t *testing.T) {
	backend := newFakeBackend()
	c, inbox := newController(t, backend)
	c.OpenCategoryModal()

	if err := c.AddCategory(context.Background(), CategoryForm{Name: " Pets "}); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	expectNotification(t, inbox, KindSuccess, "Category added successfully!")
	if backend.lastCategory.Name != "Pets" {
		t.Errorf("name = %q", backend.lastCategory.Name)
	}
	if c.UI().CategoryOpen {
		t.Error("category modal should be closed")
	}
	if len(c.State().Categories) != 3 {
		t.Error("categories should be reloaded")
	}
}

func TestAddCategoryFailureKeepsModalOpen(t *testing.T) {
	backend := newFakeBackend()
	backend.failOn["CreateCategory"] = errors.New("timeout")
	c, inbox := newController(t, backend)
	c.OpenCategoryModal()

	if err := c.AddCategory(context.Background(), CategoryForm{Name: "Pets"}); err == nil {
		t.Fatal("expected error")
	}
	expectNotification(t, inbox, KindError, "Error adding category: timeout")
	page := c.Page()
	if !page.UI.CategoryOpen || page.CategoryForm.Name != "Pets" {
		t.Errorf("modal and draft should be kept: %+v", page)
	}
}

func TestEditFlow(t *testing.T) {
	backend := newFakeBackend()
	c, inbox := newController(t, backend)

	if c.OpenEditModal(99) {
		t.Fatal("unknown expense should not open the modal")
	}
	if c.UI().EditOpen {
		t.Fatal("modal should stay closed")
	}

	if !c.OpenEditModal(1) {
		t.Fatal("expected modal to open")
	}
	page := c.Page()
	want := ExpenseForm{Description: "Lunch", Amount: "10.00", Date: "2024-01-05", CategoryID: "1"}
	if page.EditForm != want {
		t.Fatalf("prefill = %+v, want %+v", page.EditForm, want)
	}
	if !page.EditOptions[0].Selected {
		t.Error("edit select should preselect the current category")
	}

	form := page.EditForm
	form.Amount = "11"
	if err := c.SubmitEdit(context.Background(), form); err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}
	expectNotification(t, inbox, KindSuccess, "Expense updated successfully!")
	if backend.lastExpense.Amount.Cents() != 1100 {
		t.Errorf("amount = %d", backend.lastExpense.Amount.Cents())
	}
	if ui := c.UI(); ui.EditOpen || ui.EditID != 0 {
		t.Errorf("edit state not cleared: %+v", ui)
	}
}

func TestEditKeepsSubCentAmount(t *testing.T) {
	backend := newFakeBackend()
	amount, _ := core.ParseAmount("10.555")
	backend.expenses = append(backend.expenses, core.Expense{
		ID: 3, Description: "Fuel", Amount: amount, Date: core.NewDate(2024, 1, 7),
	})
	c, _ := newController(t, backend)

	if !c.OpenEditModal(3) {
		t.Fatal("expected modal to open")
	}
	form := c.Page().EditForm
	if form.Amount != "10.555" {
		t.Fatalf("prefilled amount = %q, want 10.555", form.Amount)
	}
	form.Description = "Fuel and snacks"
	if err := c.SubmitEdit(context.Background(), form); err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}

	if !backend.lastExpense.Amount.Equal(amount) {
		t.Errorf("sent amount = %s, want 10.555", backend.lastExpense.Amount)
	}
	body, err := json.Marshal(backend.lastExpense)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"amount":10.555`) {
		t.Errorf("request body = %s", body)
	}
}

func TestSubmitEditAfterCloseIssuesNoRequest(t *testing.T) {
	tests := []struct {
		name  string
		close func(c *Controller)
	}{
		{"close", func(c *Controller) { c.CloseEditModal() }},
		{"close modal", func(c *Controller) { c.CloseModal(ModalEdit) }},
		{"click outside", func(c *Controller) { c.ClickOutside(ModalEdit) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			c, inbox := newController(t, backend)
			c.OpenEditModal(1)
			tt.close(c)
			before := len(backend.Calls())

			err := c.SubmitEdit(context.Background(), ExpenseForm{Description: "x", Amount: "1", Date: "2024-01-01"})
			if !errors.Is(err, ErrNoExpenseSelected) {
				t.Fatalf("err = %v", err)
			}
			if len(backend.Calls()) != before {
				t.Errorf("no request expected, calls = %v", backend.Calls())
			}
			expectNotification(t, inbox, KindError, "Error updating expense: "+ErrNoExpenseSelected.Error())
		})
	}
}

func TestSubmitEditFailureKeepsModal(t *testing.T) {
	backend := newFakeBackend()
	backend.failOn["UpdateExpense"] = &client.StatusError{StatusCode: http.StatusNotFound}
	c, inbox := newController(t, backend)
	c.OpenEditModal(2)

	if err := c.SubmitEdit(context.Background(), ExpenseForm{Description: "x", Amount: "1", Date: "2024-01-01"}); err == nil {
		t.Fatal("expected error")
	}
	expectNotification(t, inbox, KindError, "Error updating expense: Failed to update expense")
	if ui := c.UI(); !ui.EditOpen || ui.EditID != 2 {
		t.Errorf("edit modal should stay open: %+v", ui)
	}
}

func TestDeleteExpense(t *testing.T) {
	backend := newFakeBackend()
	c, inbox := newController(t, backend)

	var prompt string
	confirm := ConfirmFunc(func(p string) bool { prompt = p; return true })
	if err := c.DeleteExpense(context.Background(), 1, confirm); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if prompt != PromptDeleteExpense {
		t.Errorf("prompt = %q", prompt)
	}
	expectNotification(t, inbox, KindSuccess, "Expense deleted successfully!")
	if len(c.State().Expenses) != 1 {
		t.Error("expense should be gone after reload")
	}
}

func TestDeclinedDeleteHasNoSideEffects(t *testing.T) {
	backend := newFakeBackend()
	c, inbox := newController(t, backend)
	before := len(backend.Calls())
	no := ConfirmFunc(func(string) bool { return false })

	if err := c.DeleteExpense(context.Background(), 1, no); !errors.Is(err, ErrDeclined) {
		t.Fatalf("err = %v", err)
	}
	if err := c.DeleteCategory(context.Background(), 1, no); !errors.Is(err, ErrDeclined) {
		t.Fatalf("err = %v", err)
	}
	if len(backend.Calls()) != before {
		t.Errorf("no request expected, calls = %v", backend.Calls())
	}
	if n := inbox.Drain(); len(n) != 0 {
		t.Errorf("no notification expected, got %+v", n)
	}
}

func TestDeleteCategoryReloadsBoth(t *testing.T) {
	backend := newFakeBackend()
	c, inbox := newController(t, backend)
	c.SetFilters(view.Filters{CategoryID: 1})
	before := len(backend.Calls())

	if err := c.DeleteCategory(context.Background(), 1, Always); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	expectNotification(t, inbox, KindSuccess, "Category deleted successfully!")

	calls := backend.Calls()[before:]
	if !slices.Equal(calls, []string{"DeleteCategory", "ListCategories", "ListExpenses"}) {
		t.Fatalf("calls = %v", calls)
	}

	page := c.Page()
	for _, o := range page.CategoryFilter {
		if o.Value == "1" {
			t.Error("deleted category still offered in the filter")
		}
	}
	for _, row := range page.Categories {
		if row.ID == 1 {
			t.Error("deleted category still listed")
		}
	}
	if page.Filters.CategoryID != 0 {
		t.Error("filter on the deleted category should be cleared")
	}
}

func TestDeleteFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failOn["DeleteCategory"] = &client.StatusError{StatusCode: http.StatusInternalServerError}
	c, inbox := newController(t, backend)

	if err := c.DeleteCategory(context.Background(), 1, nil); err == nil {
		t.Fatal("expected error")
	}
	expectNotification(t, inbox, KindError, "Error deleting category: Failed to delete category")
	if len(c.State().Categories) != 2 {
		t.Error("snapshot should be unchanged")
	}
}

func TestModalsAndTabs(t *testing.T) {
	c := New(newFakeBackend())

	c.OpenCategoryModal()
	c.ClickOutside(ModalEdit)
	if !c.UI().CategoryOpen {
		t.Fatal("clicking outside a closed modal should not affect the other one")
	}
	c.ClickOutside(ModalCategory)
	if c.UI().CategoryOpen {
		t.Fatal("clicking outside should close the open modal")
	}

	if err := c.ActivateTab("expenses"); err != nil {
		t.Fatalf("ActivateTab: %v", err)
	}
	if err := c.ActivateTab("settings"); !errors.Is(err, ErrUnknownTab) {
		t.Fatalf("err = %v", err)
	}
	if c.UI().Tab != TabExpenses {
		t.Fatalf("tab = %q, unknown tab must leave the current one active", c.UI().Tab)
	}
}

func TestConcurrentOperationsAreSerialized(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newController(t, backend)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.AddExpense(context.Background(), ExpenseForm{Description: "x", Amount: "1", Date: "2024-01-01"})
			_ = c.Page()
		}()
	}
	wg.Wait()
	if len(c.State().Expenses) != 12 {
		t.Fatalf("expected 12 expenses, got %d", len(c.State().Expenses))
	}
}
