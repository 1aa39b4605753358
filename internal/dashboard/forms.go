package dashboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"expenses/internal/client"
	"expenses/internal/core"
)

// ErrRequired marks a required form field left empty.
var ErrRequired = errors.New("please fill out this field")

// ErrInvalidCategory is returned for a category selection that is not an id.
var ErrInvalidCategory = errors.New("invalid category")

// ExpenseForm is the draft of the add and edit expense forms, as typed.
// An empty CategoryID means no category is selected.
type ExpenseForm struct {
	Description string
	Amount      string
	Date        string
	CategoryID  string
}

// CategoryForm is the draft of the add category form.
type CategoryForm struct {
	Name string
}

// Request checks the form the way the browser form does and builds the API
// request body.
func (f ExpenseForm) Request() (client.ExpenseRequest, error) {
	var req client.ExpenseRequest

	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		return req, fmt.Errorf("description: %w", ErrRequired)
	}
	if strings.TrimSpace(f.Amount) == "" {
		return req, fmt.Errorf("amount: %w", ErrRequired)
	}
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return req, err
	}
	if strings.TrimSpace(f.Date) == "" {
		return req, fmt.Errorf("date: %w", ErrRequired)
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return req, err
	}

	req.Description = desc
	req.Amount = amount
	req.Date = date.String()

	if s := strings.TrimSpace(f.CategoryID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
		}
		req.Category = &client.CategoryRef{ID: id}
	}
	return req, nil
}

// Request checks the category form and builds the API request body.
func (f CategoryForm) Request() (client.CategoryRequest, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return client.CategoryRequest{}, fmt.Errorf("name: %w", ErrRequired)
	}
	return client.CategoryRequest{Name: name}, nil
}

// formFor pre-fills an edit form from e.
func formFor(e core.Expense) ExpenseForm {
	f := ExpenseForm{
		Description: e.Description,
		Amount:      e.Amount.String(),
		Date:        e.Date.String(),
	}
	if id, ok := e.CategoryID(); ok {
		f.CategoryID = strconv.FormatInt(id, 10)
	}
	return f
}
