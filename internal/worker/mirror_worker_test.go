package worker

import (
	"context"
	"errors"
	"testing"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/sheets/memory"

	"github.com/shopspring/decimal"
)

type countingWriter struct {
	calls int
	err   error
}

func (c *countingWriter) Append(ctx context.Context, ref string, e core.Expense) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "row-" + ref, nil
}

func message() *amqp.ExpenseRecordedMessage {
	return amqp.NewExpenseRecordedMessage(core.Expense{
		Date: core.NewDate(2024, 1, 15), Amount: decimal.RequireFromString("42.5"), Category: core.Food, Description: "Lunch",
	})
}

func TestHandleMirrorsOnce(t *testing.T) {
	w := &countingWriter{}
	mw := NewMirrorWorker(w, nil)
	msg := message()

	for i := 0; i < 3; i++ {
		if err := mw.Handle(context.Background(), msg); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	if w.calls != 1 {
		t.Fatalf("writer called %d times, want 1", w.calls)
	}
	if err := mw.Handle(context.Background(), message()); err != nil {
		t.Fatal(err)
	}
	if w.calls != 2 {
		t.Fatalf("a new message should be written, calls = %d", w.calls)
	}
}

func TestHandleWriteFailureIsRetryable(t *testing.T) {
	w := &countingWriter{err: errors.New("quota exceeded")}
	mw := NewMirrorWorker(w, nil)
	msg := message()

	if err := mw.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	w.err = nil
	if err := mw.Handle(context.Background(), msg); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if w.calls != 2 {
		t.Fatalf("calls = %d, want 2", w.calls)
	}
}

func TestHandleInvalidMessage(t *testing.T) {
	w := &countingWriter{}
	mw := NewMirrorWorker(w, nil)
	msg := message()
	msg.Amount = "abc"
	if err := mw.Handle(context.Background(), msg); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if w.calls != 0 {
		t.Fatal("invalid message reached the writer")
	}
}

func TestHandleWithMemoryWriter(t *testing.T) {
	writer := memory.New()
	mw := NewMirrorWorker(writer, nil)
	msg := message()
	if err := mw.Handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	rows := writer.Rows()
	if len(rows) != 1 || rows[0].Ref != msg.ID || rows[0].Expense.Category != core.Food {
		t.Fatalf("rows = %+v", rows)
	}
	if mw.Seen().CleanExpired() != 0 {
		t.Fatal("fresh entry should not be expired")
	}
}
