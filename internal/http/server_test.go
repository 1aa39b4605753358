package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"expenses/internal/client"
	"expenses/internal/core"
)

type memoryBackend struct {
	mu         sync.Mutex
	categories []core.Category
	expenses   []core.Expense
	nextID     int64
	deletes    int
	pingErr    error
}

func newMemoryBackend() *memoryBackend {
	food := core.Category{ID: 1, Name: "Food"}
	return &memoryBackend{
		categories: []core.Category{food},
		expenses: []core.Expense{
			{ID: 1, Description: "Groceries", Amount: core.Cents(1000), Date: core.NewDate(2024, 1, 5), Category: &food},
			{ID: 2, Description: "Pizza", Amount: core.Cents(500), Date: core.NewDate(2024, 1, 20), Category: &food},
		},
		nextID: 100,
	}
}

func (m *memoryBackend) ListCategories(context.Context) ([]core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.categories), nil
}

func (m *memoryBackend) CreateCategory(_ context.Context, req client.CategoryRequest) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := core.Category{ID: m.nextID, Name: req.Name}
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *memoryBackend) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.categories = slices.DeleteFunc(m.categories, func(c core.Category) bool { return c.ID == id })
	return nil
}

func (m *memoryBackend) ListExpenses(context.Context) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.expenses), nil
}

func (m *memoryBackend) CreateExpense(_ context.Context, req client.ExpenseRequest) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	date, _ := core.ParseDate(req.Date)
	e := core.Expense{ID: m.nextID, Description: req.Description, Amount: req.Amount, Date: date}
	m.expenses = append(m.expenses, e)
	return e, nil
}

func (m *memoryBackend) UpdateExpense(_ context.Context, id int64, req client.ExpenseRequest) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.expenses {
		if m.expenses[i].ID == id {
			m.expenses[i].Description = req.Description
			m.expenses[i].Amount = req.Amount
			return m.expenses[i], nil
		}
	}
	return core.Expense{}, &client.StatusError{StatusCode: http.StatusNotFound}
}

func (m *memoryBackend) DeleteExpense(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.expenses = slices.DeleteFunc(m.expenses, func(e core.Expense) bool { return e.ID == id })
	return nil
}

func (m *memoryBackend) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *memoryBackend) Deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

type testClient struct {
	t    *testing.T
	srv  *httptest.Server
	http *http.Client
}

func newTestServer(t *testing.T, backend Backend, mutate func(*Config)) (*Server, *testClient) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CleanupInterval = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg, backend, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 1, 25, 12, 0, 0, 0, time.UTC) }

	srv := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = s.Shutdown(context.Background())
	})

	jar, _ := cookiejar.New(nil)
	return s, &testClient{t: t, srv: srv, http: &http.Client{Jar: jar}}
}

func (c *testClient) get(path string) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Get(c.srv.URL + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(c.t, resp)
}

func (c *testClient) post(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.PostForm(c.srv.URL+path, form)
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(c.t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestIndex(t *testing.T) {
	s, c := newTestServer(t, newMemoryBackend(), nil)

	resp, body := c.get("/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{"$15.00", "Groceries", "Food"} {
		if !strings.Contains(body, want) {
			t.Errorf("page does not contain %q", want)
		}
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
	if s.Sessions() != 1 {
		t.Errorf("sessions = %d", s.Sessions())
	}

	c.get("/")
	if s.Sessions() != 1 {
		t.Errorf("cookie should reuse the session, sessions = %d", s.Sessions())
	}
}

func TestAddExpenseShowsToastOnce(t *testing.T) {
	_, c := newTestServer(t, newMemoryBackend(), nil)
	c.get("/")

	resp, body := c.post("/expenses", url.Values{
		"description": {"Coffee"},
		"amount":      {"3.50"},
		"date":        {"2024-01-25"},
	})
	if resp.Request.URL.Path != "/" {
		t.Fatalf("expected redirect to /, ended at %s", resp.Request.URL.Path)
	}
	if !strings.Contains(body, "Expense added successfully!") {
		t.Error("missing success toast")
	}
	if !strings.Contains(body, "$18.50") {
		t.Error("total not updated")
	}

	_, body = c.get("/")
	if strings.Contains(body, "Expense added successfully!") {
		t.Error("toast should be shown only once")
	}
}

func TestAddExpenseValidationError(t *testing.T) {
	_, c := newTestServer(t, newMemoryBackend(), nil)
	c.get("/")

	_, body := c.post("/expenses", url.Values{"description": {"Coffee"}, "amount": {"abc"}, "date": {"2024-01-25"}})
	if !strings.Contains(body, "Error adding expense:") {
		t.Error("missing error toast")
	}
	if !strings.Contains(body, `value="Coffee"`) {
		t.Error("draft should be kept")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	backend := newMemoryBackend()
	_, c := newTestServer(t, backend, nil)
	c.get("/")

	_, body := c.post("/expenses/1/delete", nil)
	if !strings.Contains(body, "Are you sure you want to delete this expense?") {
		t.Fatal("confirmation dialog not shown")
	}
	if backend.Deletes() != 0 {
		t.Fatal("nothing should be deleted before confirmation")
	}

	_, body = c.post("/expenses/1/delete", url.Values{"confirm": {"no"}})
	if backend.Deletes() != 0 {
		t.Fatal("declined delete must not reach the backend")
	}
	if strings.Contains(body, "successfully") || strings.Contains(body, "Error") {
		t.Error("declined delete should not notify")
	}

	_, body = c.post("/expenses/1/delete", url.Values{"confirm": {"yes"}})
	if backend.Deletes() != 1 {
		t.Fatalf("deletes = %d", backend.Deletes())
	}
	if !strings.Contains(body, "Expense deleted successfully!") {
		t.Error("missing success toast")
	}
}

func TestDeleteCategory(t *testing.T) {
	backend := newMemoryBackend()
	_, c := newTestServer(t, backend, nil)
	c.get("/")

	_, body := c.post("/categories/1/delete", url.Values{"confirm": {"yes"}})
	if !strings.Contains(body, "Category deleted successfully!") {
		t.Error("missing success toast")
	}
}

func TestEditFlow(t *testing.T) {
	_, c := newTestServer(t, newMemoryBackend(), nil)
	c.get("/")

	_, body := c.post("/expenses/edit", url.Values{"description": {"x"}, "amount": {"1"}, "date": {"2024-01-01"}})
	if !strings.Contains(body, "Error updating expense: no expense selected for editing") {
		t.Error("submit without an open edit should fail")
	}

	_, body = c.post("/expenses/2/edit", nil)
	if !strings.Contains(body, `id="editExpenseModal"`) || !strings.Contains(body, `value="Pizza"`) {
		t.Fatal("edit modal should be open and pre-filled")
	}

	_, body = c.post("/expenses/edit", url.Values{"description": {"Pizza night"}, "amount": {"7"}, "date": {"2024-01-20"}, "category": {"1"}})
	if !strings.Contains(body, "Expense updated successfully!") {
		t.Error("missing success toast")
	}
	if strings.Contains(body, `id="editExpenseModal"`) {
		t.Error("modal should be closed after a successful edit")
	}
}

func TestModalsAndTabs(t *testing.T) {
	_, c := newTestServer(t, newMemoryBackend(), nil)
	c.get("/")

	_, body := c.post("/modals/category/open", nil)
	if !strings.Contains(body, `id="categoryModal"`) {
		t.Fatal("category modal should be open")
	}
	_, body = c.post("/modals/category/outside", nil)
	if strings.Contains(body, `id="categoryModal"`) {
		t.Fatal("clicking outside should close the modal")
	}

	resp, _ := c.post("/modals/settings/close", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown modal status = %d", resp.StatusCode)
	}

	_, body = c.post("/tabs/categories", nil)
	if !strings.Contains(body, `id="categories"`) {
		t.Error("categories tab should be active")
	}
	resp, _ = c.post("/tabs/settings", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown tab status = %d", resp.StatusCode)
	}
	_, body = c.get("/")
	if !strings.Contains(body, `id="categories"`) {
		t.Error("unknown tab must leave the current tab active")
	}
}

func TestFilters(t *testing.T) {
	_, c := newTestServer(t, newMemoryBackend(), nil)
	c.get("/")

	_, body := c.get("/filters?category=1&month=2024-01")
	if !strings.Contains(body, `id="expenses"`) {
		t.Fatal("filters should switch to the expenses tab")
	}
	pizza, groceries := strings.Index(body, "Pizza"), strings.Index(body, "Groceries")
	if pizza < 0 || groceries < 0 || pizza > groceries {
		t.Error("filtered list should be newest first")
	}

	_, body = c.get("/filters?month=2023-12")
	if !strings.Contains(body, "No expenses found.") {
		t.Error("expected empty state")
	}
}

func TestCategoryChart(t *testing.T) {
	_, c := newTestServer(t, newMemoryBackend(), nil)

	resp, body := c.get("/charts/categories.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(body, "\x89PNG") {
		t.Error("body is not a PNG")
	}
}

func TestHealthAndReady(t *testing.T) {
	backend := newMemoryBackend()
	_, c := newTestServer(t, backend, nil)

	if resp, _ := c.get("/healthz"); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}
	if resp, _ := c.get("/readyz"); resp.StatusCode != http.StatusOK {
		t.Errorf("readyz = %d", resp.StatusCode)
	}

	backend.mu.Lock()
	backend.pingErr = errors.New("down")
	backend.mu.Unlock()
	if resp, _ := c.get("/readyz"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readyz with backend down = %d", resp.StatusCode)
	}
}

func TestPostRateLimit(t *testing.T) {
	_, c := newTestServer(t, newMemoryBackend(), func(cfg *Config) { cfg.PostsPerMinute = 2 })

	for i := 0; i < 2; i++ {
		if resp, _ := c.post("/refresh", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("post %d status = %d", i+1, resp.StatusCode)
		}
	}
	if resp, _ := c.post("/refresh", nil); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp, _ := c.get("/"); resp.StatusCode != http.StatusOK {
		t.Fatalf("GET should not be limited, status = %d", resp.StatusCode)
	}
}

func TestStaticAssets(t *testing.T) {
	_, c := newTestServer(t, newMemoryBackend(), nil)
	resp, body := c.get("/static/style.css")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, ".tab-button") {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
