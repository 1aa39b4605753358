package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/dashboard"
)

type deleteFunc func(c *dashboard.Controller, ctx context.Context, id int64, confirm dashboard.Confirmer) error

// redirectHome answers a form post with 303 See Other so a reload does not
// resubmit it.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return nil, false
	}
	return r.PostForm, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func actionPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}

// expenseForm reads the add and edit expense form fields.
func expenseForm(get func(string) string) dashboard.ExpenseForm {
	return dashboard.ExpenseForm{
		Description: sanitizeInput(get("description")),
		Amount:      strings.TrimSpace(get("amount")),
		Date:        strings.TrimSpace(get("date")),
		CategoryID:  strings.TrimSpace(get("category")),
	}
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
