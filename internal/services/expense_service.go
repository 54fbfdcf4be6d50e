package services

import (
	"context"
	"fmt"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
)

// Publisher announces expenses that have been persisted.
type Publisher interface {
	PublishExpenseRecorded(ctx context.Context, e core.Expense) error
	Close() error
}

// ExpenseService records expenses in the ledger and announces them on the
// event bus.
type ExpenseService struct {
	ledger    *ledger.Ledger
	publisher Publisher
	logger    *log.Logger
}

// NewExpenseService builds the service. publisher may be nil, in which case
// no events are published.
func NewExpenseService(l *ledger.Ledger, publisher Publisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		ledger:    l,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
	}
}

// Record adds the expense to the ledger and then publishes it.
// Publishing failures are logged only: the expense is already persisted.
func (s *ExpenseService) Record(ctx context.Context, amount, category, description string) (core.Expense, error) {
	e, err := s.ledger.Add(ctx, amount, category, description)
	if err != nil {
		return core.Expense{}, err
	}

	s.logger.InfoContext(ctx, "Expense recorded", append(log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(e.Description, e.Amount, e.Category.String(), e.Date.String()).
		ToSlice(), log.FieldLedgerSize, s.ledger.Len())...)

	if err := s.publish(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense recorded event",
			log.FieldOperation, log.OpPublish, log.FieldError, err)
	}
	return e, nil
}

func (s *ExpenseService) publish(ctx context.Context, e core.Expense) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping event")
		return nil
	}
	return s.publisher.PublishExpenseRecorded(ctx, e)
}

// Close closes the publisher, if any.
func (s *ExpenseService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close expense service: amqp: %w", err)
	}
	return nil
}
