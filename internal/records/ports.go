// Package records defines the durable store behind the ledger.
package records

import (
	"context"

	"expensetracker/internal/core"
)

// Store persists the full expense sequence. Save always replaces everything
// previously stored; there are no incremental writes.
type Store interface {
	// Load returns every stored expense in stored order. A store that has
	// never been written returns an empty slice and no error.
	Load(ctx context.Context) ([]core.Expense, error)
	// Save overwrites the store with records.
	Save(ctx context.Context, records []core.Expense) error
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}
