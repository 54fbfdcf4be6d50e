// Package memory is a sheets.ExpenseWriter that keeps rows in memory. The
// worker uses it as a dry-run target when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
)

type Row struct {
	Ref     string
	Expense core.Expense
}

type Writer struct {
	mu   sync.Mutex
	rows []Row
	refs map[string]string
}

var _ sheets.ExpenseWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{refs: make(map[string]string)}
}

// Append stores the expense and returns a synthetic row reference. A ref
// that was already written returns its original row reference.
func (w *Writer) Append(_ context.Context, ref string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if row, ok := w.refs[ref]; ok {
		return row, nil
	}
	w.rows = append(w.rows, Row{Ref: ref, Expense: e})
	row := fmt.Sprintf("mem:%d", len(w.rows))
	w.refs[ref] = row
	return row, nil
}

// Rows returns a copy of everything written so far.
func (w *Writer) Rows() []Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Row(nil), w.rows...)
}
