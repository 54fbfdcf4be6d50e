package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/records/memory"
	"expensetracker/internal/services"

	"github.com/shopspring/decimal"
)

func expense(y, m, d int, amount string, c core.Category, desc string) core.Expense {
	return core.Expense{Date: core.NewDate(y, m, d), Amount: decimal.RequireFromString(amount), Category: c, Description: desc}
}

func newAdapter(t *testing.T) *LedgerAdapter {
	t.Helper()
	store := memory.New(
		expense(2024, 1, 3, "10", core.Food, "groceries"),
		expense(2024, 2, 9, "25", core.Travel, "train"),
		expense(2024, 2, 11, "4.5", core.Food, "coffee"),
		expense(2023, 2, 1, "7", core.Food, "old snack"),
	)
	l, err := ledger.New(context.Background(), store,
		ledger.WithClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }))
	if err != nil {
		t.Fatal(err)
	}
	return NewLedgerAdapter(l, services.NewExpenseService(l, nil, nil))
}

func descriptions(items []core.Expense) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.Description
	}
	return out
}

func TestListExpenses(t *testing.T) {
	a := newAdapter(t)
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"groceries", "train", "coffee", "old snack"}},
		{"category any case", Filter{Category: "FOOD"}, []string{"groceries", "coffee", "old snack"}},
		{"month", Filter{Year: 2024, Month: 2}, []string{"train", "coffee"}},
		{"year only", Filter{Year: 2023}, []string{"old snack"}},
		{"category and month", Filter{Category: "food", Year: 2024, Month: 2}, []string{"coffee"}},
		{"unknown category", Filter{Category: "spaceships"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.ListExpenses(context.Background(), tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			gotDesc := descriptions(got)
			if len(gotDesc) != len(tt.want) {
				t.Fatalf("got %v, want %v", gotDesc, tt.want)
			}
			for i := range gotDesc {
				if gotDesc[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", gotDesc, tt.want)
				}
			}
		})
	}
}

func TestRecordGoesThroughLedger(t *testing.T) {
	a := newAdapter(t)
	e, err := a.Record(context.Background(), "12.30", "Books", "novel")
	if err != nil {
		t.Fatal(err)
	}
	if e.Category != core.Books || e.Date != core.NewDate(2024, 3, 1) {
		t.Fatalf("recorded %+v", e)
	}

	rep, err := a.Report(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Total.Equal(decimal.RequireFromString("58.8")) || len(rep.Expenses) != 5 {
		t.Fatalf("report total=%s len=%d", rep.Total, len(rep.Expenses))
	}

	ov, err := a.ReadMonthOverview(context.Background(), 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Report.Expenses) != 1 || ov.Report.Expenses[0].Description != "novel" {
		t.Fatalf("month overview = %+v", ov)
	}
}

func TestCancelledContext(t *testing.T) {
	a := newAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.ListExpenses(ctx, Filter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("ListExpenses err = %v", err)
	}
	if _, err := a.Report(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Report err = %v", err)
	}
	if _, err := a.ReadMonthOverview(ctx, 2024, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("ReadMonthOverview err = %v", err)
	}
}
