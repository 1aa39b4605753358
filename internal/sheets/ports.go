// Package sheets defines the change journal: an append-only table with one
// row per store mutation.
package sheets

import (
	"context"
	"strconv"
	"time"
)

// Header is the first row of a journal sheet.
var Header = []string{"timestamp", "entity", "action", "id", "date", "description", "amount", "category"}

// Row is one journal line. Date, Description, Amount and Category are empty
// for deletions.
type Row struct {
	Timestamp   time.Time
	Entity      string
	Action      string
	ID          int64
	Date        string
	Description string
	Amount      string
	Category    string
}

// Values returns the cells in Header order.
func (r Row) Values() []any {
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Entity,
		r.Action,
		strconv.FormatInt(r.ID, 10),
		r.Date,
		r.Description,
		r.Amount,
		r.Category,
	}
}

// Journal appends rows to the change journal.
type Journal interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}
