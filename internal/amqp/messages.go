package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expenses/internal/core"
)

type Entity string

const (
	EntityExpense  Entity = "expense"
	EntityCategory Entity = "category"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

var ErrMalformedEvent = errors.New("malformed change event")

// ChangeEvent announces one successful mutation of the expense store.
// Deletions carry only EntityID; the other actions also carry a snapshot of
// the entity after the change.
type ChangeEvent struct {
	ID        string         `json:"id"`
	Entity    Entity         `json:"entity"`
	Action    Action         `json:"action"`
	EntityID  int64          `json:"entity_id"`
	Timestamp time.Time      `json:"timestamp"`
	Expense   *core.Expense  `json:"expense,omitempty"`
	Category  *core.Category `json:"category,omitempty"`
}

func newEvent(entity Entity, action Action, id int64) *ChangeEvent {
	return &ChangeEvent{
		ID:        uuid.NewString(),
		Entity:    entity,
		Action:    action,
		EntityID:  id,
		Timestamp: time.Now().UTC(),
	}
}

func NewExpenseEvent(action Action, e core.Expense) *ChangeEvent {
	ev := newEvent(EntityExpense, action, e.ID)
	if action != ActionDeleted {
		ev.Expense = &e
	}
	return ev
}

func NewCategoryEvent(action Action, c core.Category) *ChangeEvent {
	ev := newEvent(EntityCategory, action, c.ID)
	if action != ActionDeleted {
		ev.Category = &c
	}
	return ev
}

// Validate reports whether the event can be processed at all.
func (e *ChangeEvent) Validate() error {
	switch e.Entity {
	case EntityExpense, EntityCategory:
	default:
		return fmt.Errorf("%w: unknown entity %q", ErrMalformedEvent, e.Entity)
	}
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, e.Action)
	}
	if e.EntityID <= 0 {
		return fmt.Errorf("%w: missing entity id", ErrMalformedEvent)
	}
	if e.Action != ActionDeleted {
		if e.Entity == EntityExpense && e.Expense == nil {
			return fmt.Errorf("%w: expense snapshot missing", ErrMalformedEvent)
		}
		if e.Entity == EntityCategory && e.Category == nil {
			return fmt.Errorf("%w: category snapshot missing", ErrMalformedEvent)
		}
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes and validates an event.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
