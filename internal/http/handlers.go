package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"expenses/internal/charts"
	"expenses/internal/dashboard"
	"expenses/internal/log"
	"expenses/internal/view"
)

type tabLink struct {
	Name   string
	Label  string
	Active bool
}

var tabLabels = map[dashboard.Tab]string{
	dashboard.TabDashboard:  "Dashboard",
	dashboard.TabExpenses:   "Expenses",
	dashboard.TabCategories: "Categories",
}

type pageData struct {
	Page          dashboard.Page
	Tabs          []tabLink
	Notifications []dashboard.Notification
	Confirm       *pendingDelete

	EmptyExpenses   string
	EmptyRecent     string
	EmptyBreakdown  string
	EmptyCategories string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	page := sess.ctrl.Page()

	data := pageData{
		Page:            page,
		Notifications:   sess.inbox.Drain(),
		Confirm:         sess.takePending(),
		EmptyExpenses:   view.EmptyExpenses,
		EmptyRecent:     view.EmptyRecent,
		EmptyBreakdown:  view.EmptyBreakdown,
		EmptyCategories: view.EmptyCategories,
	}
	for _, t := range dashboard.Tabs {
		data.Tabs = append(data.Tabs, tabLink{Name: string(t), Label: tabLabels[t], Active: t == page.UI.Tab})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err, log.FieldOperation, log.OpRender)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// handleFilters applies the expense list filters. An empty or malformed
// category means all categories.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	q := r.URL.Query()
	id, _ := strconv.ParseInt(strings.TrimSpace(q.Get("category")), 10, 64)
	sess.ctrl.SetFilters(view.Filters{
		CategoryID: max(id, 0),
		Month:      sanitizeInput(q.Get("month")),
	})
	_ = sess.ctrl.ActivateTab(string(dashboard.TabExpenses))
	redirectHome(w, r)
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := sess.ctrl.ActivateTab(r.PathValue("tab")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	_ = sess.ctrl.Refresh(r.Context())
	redirectHome(w, r)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	form, ok := parseForm(w, r)
	if !ok {
		return
	}
	_ = sess.ctrl.AddExpense(r.Context(), expenseForm(form.Get))
	redirectHome(w, r)
}

func (s *Server) handleOpenEdit(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sess.ctrl.OpenEditModal(id)
	redirectHome(w, r)
}

func (s *Server) handleSubmitEdit(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	form, ok := parseForm(w, r)
	if !ok {
		return
	}
	_ = sess.ctrl.SubmitEdit(r.Context(), expenseForm(form.Get))
	redirectHome(w, r)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	form, ok := parseForm(w, r)
	if !ok {
		return
	}
	_ = sess.ctrl.AddCategory(r.Context(), dashboard.CategoryForm{Name: sanitizeInput(form.Get("categoryName"))})
	redirectHome(w, r)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.handleDelete(w, r, dashboard.PromptDeleteExpense, "/expenses/%d/delete",
		(*dashboard.Controller).DeleteExpense)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.handleDelete(w, r, dashboard.PromptDeleteCategory, "/categories/%d/delete",
		(*dashboard.Controller).DeleteCategory)
}

// handleDelete asks for confirmation on the first request and acts on the
// answer carried by the second one (confirm=yes|no).
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, prompt, action string, del deleteFunc) {
	sess := s.session(w, r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	form, ok := parseForm(w, r)
	if !ok {
		return
	}

	answer := form.Get("confirm")
	if answer == "" {
		sess.setPending(&pendingDelete{Prompt: prompt, Action: actionPath(action, id)})
		redirectHome(w, r)
		return
	}

	confirm := dashboard.ConfirmFunc(func(string) bool { return answer == "yes" })
	if err := del(sess.ctrl, r.Context(), id, confirm); errors.Is(err, dashboard.ErrDeclined) {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Delete declined", log.FieldOperation, log.OpDelete)
	}
	redirectHome(w, r)
}

func (s *Server) handleOpenCategory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.ctrl.OpenCategoryModal()
	redirectHome(w, r)
}

func (s *Server) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	s.withModal(w, r, (*dashboard.Controller).CloseModal)
}

func (s *Server) handleClickOutside(w http.ResponseWriter, r *http.Request) {
	s.withModal(w, r, (*dashboard.Controller).ClickOutside)
}

func (s *Server) withModal(w http.ResponseWriter, r *http.Request, fn func(*dashboard.Controller, dashboard.Modal)) {
	sess := s.session(w, r)
	m, err := dashboard.ParseModal(r.PathValue("modal"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	fn(sess.ctrl, m)
	redirectHome(w, r)
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	state := sess.ctrl.State()

	img, err := charts.CategoryBreakdown(view.Breakdown(state.Expenses, state.Categories), charts.DefaultSize)
	if errors.Is(err, charts.ErrNoData) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart rendering failed", log.FieldError, err)
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}
