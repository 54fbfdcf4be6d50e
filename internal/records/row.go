package records

import (
	"fmt"
	"strings"

	"expensetracker/internal/core"
)

// Columns is the stored column order, also used as the CSV header.
var Columns = []string{"date", "amount", "category", "description"}

// ParseRow converts the stored textual fields of one record into an Expense.
// Any failure is wrapped with core.ErrMalformedRecord.
func ParseRow(date, amount, category, description string) (core.Expense, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: date %q: %v", core.ErrMalformedRecord, date, err)
	}
	a, err := core.ParseAmount(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: amount %q is not a number", core.ErrMalformedRecord, amount)
	}
	e := core.Expense{
		Date:        d,
		Amount:      a,
		Category:    core.NormalizeCategory(category),
		Description: strings.TrimSpace(description),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err)
	}
	return e, nil
}

// FormatRow renders e in Columns order.
func FormatRow(e core.Expense) []string {
	return []string{e.Date.String(), e.Amount.String(), string(e.Category), e.Description}
}
