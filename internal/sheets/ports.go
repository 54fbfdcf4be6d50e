// Package sheets defines the outbound port used to mirror recorded expenses
// into a spreadsheet.
package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// ExpenseWriter appends one expense row. ref identifies the source event;
// writing the same ref twice must not produce a second row.
type ExpenseWriter interface {
	Append(ctx context.Context, ref string, e core.Expense) (rowRef string, err error)
}
