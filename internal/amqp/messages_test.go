package amqp

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"expenses/internal/core"
	"expenses/internal/log"
)

var discard = log.Discard()

func TestNewExpenseEvent(t *testing.T) {
	e := core.Expense{ID: 3, Description: "Lunch", Amount: core.Cents(1500), Date: core.NewDate(2024, 1, 10)}

	ev := NewExpenseEvent(ActionCreated, e)
	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("event id %q is not a uuid: %v", ev.ID, err)
	}
	if ev.EntityID != 3 || ev.Expense == nil || ev.Expense.Description != "Lunch" {
		t.Errorf("event = %+v", ev)
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}

	del := NewExpenseEvent(ActionDeleted, e)
	if del.Expense != nil {
		t.Error("delete events carry no snapshot")
	}
	if err := del.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestChangeEvent_JSON(t *testing.T) {
	ev := NewCategoryEvent(ActionUpdated, core.Category{ID: 2, Name: "Travel"})

	b, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := ChangeEventFromJSON(b)
	if err != nil {
		t.Fatalf("ChangeEventFromJSON() error = %v", err)
	}
	if parsed.ID != ev.ID || parsed.Category == nil || parsed.Category.Name != "Travel" {
		t.Errorf("parsed = %+v", parsed)
	}
	if !parsed.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("timestamp = %v, want %v", parsed.Timestamp, ev.Timestamp)
	}
}

func TestChangeEventFromJSON_Malformed(t *testing.T) {
	tests := map[string]string{
		"not json":         `{"id": 1`,
		"unknown action":   `{"entity":"expense","action":"archived","entity_id":1}`,
		"missing id":       `{"entity":"expense","action":"deleted"}`,
		"missing snapshot": `{"entity":"category","action":"created","entity_id":1}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ChangeEventFromJSON([]byte(body)); !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("err = %v, want ErrMalformedEvent", err)
			}
		})
	}
}
