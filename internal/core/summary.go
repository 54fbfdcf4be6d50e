package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Total    decimal.Decimal
}

// Report is a read-only view over a snapshot of expenses.
type Report struct {
	Total      decimal.Decimal
	Categories []CategoryAmount // first-occurrence order
	Expenses   []Expense
}

// MonthOverview is a Report restricted to one calendar month.
type MonthOverview struct {
	Year   int
	Month  int // 1-12
	Report Report
}

// BuildReport derives the total and per-category sums from records.
// Categories appear in the order they are first seen. The records are copied,
// so later mutation of the input does not leak into the report.
func BuildReport(records []Expense) Report {
	rep := Report{
		Total:    decimal.Zero,
		Expenses: append([]Expense(nil), records...),
	}
	index := make(map[Category]int)
	for _, e := range records {
		rep.Total = rep.Total.Add(e.Amount)
		i, ok := index[e.Category]
		if !ok {
			index[e.Category] = len(rep.Categories)
			rep.Categories = append(rep.Categories, CategoryAmount{Category: e.Category, Total: e.Amount})
			continue
		}
		rep.Categories[i].Total = rep.Categories[i].Total.Add(e.Amount)
	}
	return rep
}

// Summary returns the category totals keyed by category name.
func (r Report) Summary() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Categories))
	for _, c := range r.Categories {
		out[string(c.Category)] = c.Total
	}
	return out
}

// CategoryTotal returns the total for c, or zero when c has no expenses.
func (r Report) CategoryTotal(c Category) decimal.Decimal {
	for _, ca := range r.Categories {
		if ca.Category == c {
			return ca.Total
		}
	}
	return decimal.Zero
}
