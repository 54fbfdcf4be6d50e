package core

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidCategory  = errors.New("invalid category")

	// ErrMalformedRecord marks a stored row that could not be parsed.
	ErrMalformedRecord = errors.New("malformed stored record")
	// ErrPersistence marks a failure reading or writing the durable store.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError carries a user-facing message for a rejected input.
// errors.Is matches it against its Kind sentinel.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Kind.Error() + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// UserMessage returns the text to show to the person who submitted the input.
// Non-validation errors yield an empty string.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return ""
}

func amountNotNumber() error {
	return &ValidationError{Kind: ErrInvalidAmount, Message: "Invalid amount. Please enter a valid number."}
}

func amountNotPositive() error {
	return &ValidationError{Kind: ErrInvalidAmount, Message: "Invalid amount. Please enter a positive number."}
}

func emptyDescription() error {
	return &ValidationError{Kind: ErrEmptyDescription, Message: "Description cannot be empty."}
}

func invalidCategory() error {
	return &ValidationError{
		Kind:    ErrInvalidCategory,
		Message: "Invalid category. Please select from: " + strings.Join(CategoryNames(), ", "),
	}
}
