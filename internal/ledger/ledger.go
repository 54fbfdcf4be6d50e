// Package ledger holds the in-memory expense sequence and keeps it in step
// with a records.Store.
//
// Every mutation runs under one write lock that also covers the store write,
// so the in-memory ledger and the stored copy never diverge. Reads take the
// read lock and return copies.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/records"

	"github.com/shopspring/decimal"
)

const (
	MsgAdded      = "Expense added successfully."
	MsgSaveFailed = "Failed to save expense."
)

type Ledger struct {
	mu       sync.RWMutex
	expenses []core.Expense
	store    records.Store
	now      func() time.Time
	logger   *log.Logger
}

type Option func(*Ledger)

// WithClock sets the time source used to date new expenses.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New loads the current records from store and returns a ready ledger.
func New(ctx context.Context, store records.Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: nil store")
	}
	l := &Ledger{
		store:  store,
		now:    time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithComponent(log.ComponentLedger)

	loaded, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	l.expenses = loaded
	l.logger.InfoContext(ctx, "Ledger ready", log.FieldLedgerSize, len(loaded))
	return l, nil
}

// Add validates the raw input, appends the expense dated today and persists
// the whole ledger. On a store failure the append is undone and the returned
// error wraps core.ErrPersistence.
func (l *Ledger) Add(ctx context.Context, amount, category, description string) (core.Expense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := core.NewExpense(amount, category, description, core.DateOf(l.now()))
	if err != nil {
		l.logger.DebugContext(ctx, "Expense rejected", log.FieldOperation, log.OpValidate, log.FieldError, err)
		return core.Expense{}, err
	}

	l.expenses = append(l.expenses, e)
	if err := l.store.Save(ctx, l.expenses); err != nil {
		l.expenses = l.expenses[:len(l.expenses)-1]
		l.logger.ErrorContext(ctx, "Failed to persist expense", log.NewFields().
			WithOperation(log.OpSave).
			WithError(err).
			WithExpense(e.Description, e.Amount, e.Category.String(), e.Date.String()).
			ToSlice()...)
		if errors.Is(err, core.ErrPersistence) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return e, nil
}

// ExpensesByCategory returns the expenses whose category matches category,
// ignoring case, in ledger order.
func (l *Ledger) ExpensesByCategory(category string) []core.Expense {
	c := core.NormalizeCategory(category)
	return l.filter(func(e core.Expense) bool { return e.Category == c })
}

// ExpensesForMonth returns the expenses dated in the given year and month.
func (l *Ledger) ExpensesForMonth(year, month int) []core.Expense {
	return l.filter(func(e core.Expense) bool { return e.Date.Year() == year && e.Date.Month() == month })
}

// Total sums every amount. An empty ledger totals zero.
func (l *Ledger) Total() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return core.Sum(l.expenses)
}

// Expenses returns a copy of the ledger in insertion order.
func (l *Ledger) Expenses() []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Expense{}, l.expenses...)
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.expenses)
}

// Report builds a report over a consistent snapshot of the ledger.
func (l *Ledger) Report() core.Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return core.BuildReport(l.expenses)
}

func (l *Ledger) MonthReport(year, month int) core.MonthOverview {
	return core.MonthOverview{
		Year:   year,
		Month:  month,
		Report: core.BuildReport(l.ExpensesForMonth(year, month)),
	}
}

// Ping reports whether the backing store is reachable. Stores without a
// health check are assumed healthy.
func (l *Ledger) Ping(ctx context.Context) error {
	if p, ok := l.store.(records.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (l *Ledger) filter(keep func(core.Expense) bool) []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []core.Expense{}
	for _, e := range l.expenses {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// ResultMessage maps the outcome of Add to the text shown to the user.
func ResultMessage(err error) string {
	if err == nil {
		return MsgAdded
	}
	if msg := core.UserMessage(err); msg != "" {
		return msg
	}
	return MsgSaveFailed
}
