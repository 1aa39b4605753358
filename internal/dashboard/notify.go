package dashboard

import (
	"context"
	"sync"
)

// Kind tells success and error notifications apart.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a transient message for the user, the toast of the page.
type Notification struct {
	Kind    Kind
	Message string
}

// Notifier receives every notification the controller emits.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Inbox keeps notifications until a front-end drains them, so that each one
// is shown exactly once.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

func (i *Inbox) Notify(_ context.Context, n Notification) {
	i.mu.Lock()
	i.items = append(i.items, n)
	i.mu.Unlock()
}

// Drain returns the pending notifications and forgets them.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	return out
}

// Indicator is the busy indicator shown while a backend call is in flight.
type Indicator interface {
	Show()
	Hide()
}

type noopIndicator struct{}

func (noopIndicator) Show() {}
func (noopIndicator) Hide() {}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Always is a Confirmer for callers that already asked.
var Always = ConfirmFunc(func(string) bool { return true })

// Confirmation prompts.
const (
	PromptDeleteExpense  = "Are you sure you want to delete this expense?"
	PromptDeleteCategory = "Are you sure you want to delete this category? This action cannot be undone."
)
