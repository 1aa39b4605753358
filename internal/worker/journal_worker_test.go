package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/sheets"
	"expenses/internal/sheets/memory"
)

type failingJournal struct{ err error }

func (f failingJournal) Append(context.Context, sheets.Row) (string, error) { return "", f.err }

func TestRowFromEvent(t *testing.T) {
	food := &core.Category{ID: 1, Name: "Food"}
	expense := core.Expense{ID: 5, Description: "Lunch", Amount: core.Cents(1500), Date: core.NewDate(2024, 1, 10), Category: food}

	tests := []struct {
		name string
		ev   *amqp.ChangeEvent
		want sheets.Row
	}{
		{
			name: "expense created",
			ev:   amqp.NewExpenseEvent(amqp.ActionCreated, expense),
			want: sheets.Row{Entity: "expense", Action: "created", ID: 5, Date: "2024-01-10", Description: "Lunch", Amount: "15.00", Category: "Food"},
		},
		{
			name: "dangling category",
			ev: amqp.NewExpenseEvent(amqp.ActionUpdated, core.Expense{
				ID: 6, Description: "Ghost", Amount: core.Cents(1), Date: core.NewDate(2024, 2, 1), Category: &core.Category{ID: 9},
			}),
			want: sheets.Row{Entity: "expense", Action: "updated", ID: 6, Date: "2024-02-01", Description: "Ghost", Amount: "0.01", Category: "#9"},
		},
		{
			name: "expense deleted",
			ev:   amqp.NewExpenseEvent(amqp.ActionDeleted, expense),
			want: sheets.Row{Entity: "expense", Action: "deleted", ID: 5},
		},
		{
			name: "category created",
			ev:   amqp.NewCategoryEvent(amqp.ActionCreated, *food),
			want: sheets.Row{Entity: "category", Action: "created", ID: 1, Category: "Food"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RowFromEvent(tt.ev)
			tt.want.Timestamp = tt.ev.Timestamp
			if got != tt.want {
				t.Errorf("row = %+v\nwant  %+v", got, tt.want)
			}
		})
	}
}

func TestHandleEvent(t *testing.T) {
	journal := memory.New()
	w := NewJournalWorker(journal, nil)

	ev := amqp.NewCategoryEvent(amqp.ActionDeleted, core.Category{ID: 3})
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	rows := journal.Rows()
	if len(rows) != 1 || rows[0].ID != 3 || rows[0].Action != "deleted" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestHandleEventJournalFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewJournalWorker(failingJournal{err: boom}, nil)

	err := w.HandleEvent(context.Background(), amqp.NewCategoryEvent(amqp.ActionDeleted, core.Category{ID: 3}))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped journal error", err)
	}
}

type scriptedConsumer struct {
	events []*amqp.ChangeEvent
	errs   []error
}

func (c *scriptedConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, ev := range c.events {
		c.errs = append(c.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRun(t *testing.T) {
	journal := memory.New()
	w := NewJournalWorker(journal, nil)
	consumer := &scriptedConsumer{events: []*amqp.ChangeEvent{
		amqp.NewCategoryEvent(amqp.ActionCreated, core.Category{ID: 1, Name: "Food"}),
		amqp.NewCategoryEvent(amqp.ActionDeleted, core.Category{ID: 1}),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx, consumer); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v", err)
	}
	if len(journal.Rows()) != 2 {
		t.Fatalf("rows = %+v", journal.Rows())
	}
	for i, err := range consumer.errs {
		if err != nil {
			t.Errorf("event %d: %v", i, err)
		}
	}
}
