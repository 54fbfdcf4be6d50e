package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/core"

	"github.com/google/uuid"
)

// ExpenseRecordedMessage announces an expense that has already been
// persisted by the ledger. ID is unique per message and lets consumers
// drop redeliveries.
type ExpenseRecordedMessage struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseRecordedMessage builds a message for e with a fresh ID.
func NewExpenseRecordedMessage(e core.Expense) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:          uuid.NewString(),
		Date:        e.Date.String(),
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		Description: e.Description,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON decodes a message and checks it carries an ID.
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.ID) == "" {
		return nil, errors.New("message has no id")
	}
	return &msg, nil
}

// Expense converts the message back into a validated expense.
func (m *ExpenseRecordedMessage) Expense() (core.Expense, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("message %s: date %q: %w", m.ID, m.Date, err)
	}
	amount, err := core.ParseAmount(m.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	e := core.Expense{
		Date:        d,
		Amount:      amount,
		Category:    core.NormalizeCategory(m.Category),
		Description: strings.TrimSpace(m.Description),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	return e, nil
}
