package adapters

import (
	"context"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/services"
)

// Filter narrows ListExpenses. Zero values disable a criterion; Month is
// only applied together with Year.
type Filter struct {
	Category string
	Year     int
	Month    int
}

// LedgerAdapter exposes the ledger reads and the expense service writes
// behind the context-aware methods the HTTP handlers use.
type LedgerAdapter struct {
	ledger  *ledger.Ledger
	service *services.ExpenseService
}

func NewLedgerAdapter(l *ledger.Ledger, service *services.ExpenseService) *LedgerAdapter {
	return &LedgerAdapter{ledger: l, service: service}
}

// Record adds an expense through the service so it is also published.
func (a *LedgerAdapter) Record(ctx context.Context, amount, category, description string) (core.Expense, error) {
	return a.service.Record(ctx, amount, category, description)
}

// ListExpenses returns the expenses matching f in ledger order.
func (a *LedgerAdapter) ListExpenses(ctx context.Context, f Filter) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []core.Expense
	switch {
	case f.Category != "":
		items = a.ledger.ExpensesByCategory(f.Category)
	case f.Year != 0 && f.Month != 0:
		return a.ledger.ExpensesForMonth(f.Year, f.Month), nil
	default:
		items = a.ledger.Expenses()
	}

	if f.Year == 0 {
		return items, nil
	}
	out := items[:0]
	for _, e := range items {
		if e.Date.Year() == f.Year && (f.Month == 0 || e.Date.Month() == f.Month) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Report builds the full report.
func (a *LedgerAdapter) Report(ctx context.Context) (core.Report, error) {
	if err := ctx.Err(); err != nil {
		return core.Report{}, err
	}
	return a.ledger.Report(), nil
}

// ReadMonthOverview builds the report for one month.
func (a *LedgerAdapter) ReadMonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if err := ctx.Err(); err != nil {
		return core.MonthOverview{}, err
	}
	return a.ledger.MonthReport(year, month), nil
}

func (a *LedgerAdapter) Ping(ctx context.Context) error {
	return a.ledger.Ping(ctx)
}
