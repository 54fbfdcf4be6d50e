package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"amqp closed", amqp091.ErrClosed, true},
		{"wrapped closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"other error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue", logger: log.Discard()}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)

		client.recordSuccess()

		if atomic.LoadInt64(&client.failureCount) != 0 || atomic.LoadInt32(&client.state) != StateClosed {
			t.Error("success should close the circuit and reset failures")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("circuit should be half-open after timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be StateHalfOpen after timeout")
		}
	})

	t.Run("failure in half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed probe should reopen the circuit")
		}
	})
}

func TestClient_PublishGuards(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue", logger: log.Discard()}
	e := core.Expense{Date: core.NewDate(2024, 1, 15), Amount: decimal.NewFromInt(5), Category: core.Food, Description: "x"}

	t.Run("publish fails when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishExpenseRecorded(context.Background(), e)
		if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Errorf("expected circuit breaker error, got %v", err)
		}
	})

	t.Run("publish respects context cancellation", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateClosed)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishExpenseRecorded(ctx, e); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

type fakeAck struct {
	acked, nacked, requeued int
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error { f.acked++; return nil }
func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked++
	if requeue {
		f.requeued++
	}
	return nil
}
func (f *fakeAck) Reject(tag uint64, requeue bool) error { return f.Nack(tag, false, requeue) }

func TestHandleDelivery(t *testing.T) {
	client := &Client{logger: log.Discard()}
	good, _ := NewExpenseRecordedMessage(core.Expense{
		Date: core.NewDate(2024, 1, 15), Amount: decimal.RequireFromString("42.5"), Category: core.Food, Description: "Lunch",
	}).ToJSON()

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       fakeAck
	}{
		{"ack on success", good, nil, fakeAck{acked: 1}},
		{"requeue on handler error", good, errors.New("sheets down"), fakeAck{nacked: 1, requeued: 1}},
		{"drop invalid json", []byte("{"), nil, fakeAck{nacked: 1}},
		{"drop missing id", []byte(`{"date":"2024-01-15","amount":"1","category":"food","description":"x"}`), nil, fakeAck{nacked: 1}},
		{"drop invalid expense", []byte(`{"id":"a","date":"2024-01-15","amount":"-1","category":"food","description":"x"}`), nil, fakeAck{nacked: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			called := false
			client.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: tt.body},
				func(ctx context.Context, msg *ExpenseRecordedMessage) error {
					called = true
					return tt.handlerErr
				})
			if *ack != tt.want {
				t.Fatalf("acks = %+v, want %+v", *ack, tt.want)
			}
			if called != (tt.want.acked == 1 || tt.want.requeued == 1) {
				t.Fatalf("handler called = %v", called)
			}
		})
	}
}

func TestNewExpenseRecordedMessage(t *testing.T) {
	e := core.Expense{Date: core.NewDate(2024, 1, 15), Amount: decimal.RequireFromString("42.50"), Category: core.Food, Description: "Lunch"}
	a := NewExpenseRecordedMessage(e)
	b := NewExpenseRecordedMessage(e)

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	if a.Date != "2024-01-15" || a.Amount != "42.5" || a.Category != "food" {
		t.Fatalf("unexpected message: %+v", a)
	}
	if time.Since(a.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}

	body, err := a.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ExpenseRecordedMessageFromJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	back, err := parsed.Expense()
	if err != nil {
		t.Fatal(err)
	}
	if back.Date != e.Date || !back.Amount.Equal(e.Amount) || back.Category != e.Category || back.Description != e.Description {
		t.Fatalf("expense mismatch: %+v", back)
	}
}

func TestExpenseRecordedMessage_InvalidExpense(t *testing.T) {
	msg := &ExpenseRecordedMessage{ID: "x", Date: "2024-01-15", Amount: "3", Category: "spaceships", Description: "fuel"}
	if _, err := msg.Expense(); !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}
