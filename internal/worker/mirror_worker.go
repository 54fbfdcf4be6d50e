// Package worker applies consumed expense events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
)

const (
	seenCapacity = 10000
	seenTTL      = 24 * time.Hour
)

// MirrorWorker writes each recorded expense to a sheets.ExpenseWriter once.
type MirrorWorker struct {
	writer sheets.ExpenseWriter
	seen   *cache.LRUCache[string]
	logger *log.Logger
}

func NewMirrorWorker(writer sheets.ExpenseWriter, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		writer: writer,
		seen:   cache.NewLRUCache[string](seenCapacity, seenTTL),
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Seen exposes the dedupe cache so it can be registered for cleanup.
func (w *MirrorWorker) Seen() cache.Cleaner {
	return w.seen
}

// Handle mirrors one message. Redeliveries of a message already mirrored by
// this process are acknowledged without writing. A write failure is returned
// so the broker requeues the message.
func (w *MirrorWorker) Handle(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	if row, ok := w.seen.Get(msg.ID); ok {
		w.logger.DebugContext(ctx, "Skipping already mirrored message",
			log.FieldMessageID, msg.ID, "row", row)
		return nil
	}

	e, err := msg.Expense()
	if err != nil {
		return fmt.Errorf("convert message: %w", err)
	}

	row, err := w.writer.Append(ctx, msg.ID, e)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror expense", log.NewFields().
			WithOperation(log.OpMirror).
			WithError(err).
			WithExpense(e.Description, e.Amount, e.Category.String(), e.Date.String()).
			ToSlice()...)
		return fmt.Errorf("mirror expense %s: %w", msg.ID, err)
	}

	w.seen.Set(msg.ID, row)
	w.logger.InfoContext(ctx, "Expense mirrored",
		log.FieldMessageID, msg.ID, "row", row, log.FieldCategory, e.Category.String())
	return nil
}
