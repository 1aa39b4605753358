// Package worker turns change events into change journal rows.
package worker

import (
	"context"
	"fmt"
	"strconv"

	"expenses/internal/amqp"
	"expenses/internal/log"
	"expenses/internal/sheets"
)

// Consumer delivers change events until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// JournalWorker appends one journal row per change event.
type JournalWorker struct {
	journal sheets.Journal
	logger  *log.Logger
}

func NewJournalWorker(journal sheets.Journal, logger *log.Logger) *JournalWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &JournalWorker{
		journal: journal,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes events from c until ctx is cancelled.
func (w *JournalWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Journal worker started")
	err := c.Consume(ctx, w.HandleEvent)
	w.logger.InfoContext(ctx, "Journal worker stopped", log.FieldError, err)
	return err
}

// HandleEvent writes ev to the journal. A returned error makes the broker
// redeliver the event.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev *amqp.ChangeEvent) error {
	row := RowFromEvent(ev)
	ref, err := w.journal.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append journal row: %w", err)
	}

	w.logger.InfoContext(ctx, "Change journaled",
		log.FieldOperation, log.OpJournal,
		log.FieldEventID, ev.ID,
		log.FieldEntity, ev.Entity,
		log.FieldAction, ev.Action,
		"row_ref", ref)
	return nil
}

// RowFromEvent flattens ev into a journal row.
func RowFromEvent(ev *amqp.ChangeEvent) sheets.Row {
	row := sheets.Row{
		Timestamp: ev.Timestamp,
		Entity:    string(ev.Entity),
		Action:    string(ev.Action),
		ID:        ev.EntityID,
	}
	switch {
	case ev.Expense != nil:
		e := ev.Expense
		row.Date = e.Date.String()
		row.Description = e.Description
		row.Amount = e.Amount.String()
		if e.Category != nil {
			row.Category = e.Category.Name
			if row.Category == "" {
				// dangling reference
				row.Category = "#" + strconv.FormatInt(e.Category.ID, 10)
			}
		}
	case ev.Category != nil:
		row.Category = ev.Category.Name
	}
	return row
}
