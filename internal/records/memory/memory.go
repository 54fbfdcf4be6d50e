// Package memory is an in-process records.Store used for local development and tests.
package memory

import (
	"context"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/records"
)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
	saves int
}

var _ records.Store = (*Store)(nil)

// New returns a store pre-populated with seed.
func New(seed ...core.Expense) *Store {
	return &Store{items: append([]core.Expense{}, seed...)}
}

func (s *Store) Load(ctx context.Context) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense{}, s.items...), nil
}

func (s *Store) Save(ctx context.Context, recs []core.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Expense{}, recs...)
	s.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
