package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

const (
	Food          Category = "food"
	Clothing      Category = "clothing"
	Travel        Category = "travel"
	Books         Category = "books"
	Entertainment Category = "entertainment"
	Utilities     Category = "utilities"
	Other         Category = "other"
)

type (
	// Category is a lowercase label from the fixed allowed set.
	Category string

	Date struct {
		time.Time
	}

	Expense struct {
		Date        Date
		Amount      decimal.Decimal
		Category    Category
		Description string
	}
)

var allowedCategories = []Category{Food, Clothing, Travel, Books, Entertainment, Utilities, Other}

// AllowedCategories returns the fixed category set in display order.
func AllowedCategories() []Category {
	return append([]Category(nil), allowedCategories...)
}

// CategoryNames returns the allowed categories as plain strings.
func CategoryNames() []string {
	out := make([]string, len(allowedCategories))
	for i, c := range allowedCategories {
		out[i] = string(c)
	}
	return out
}

// NormalizeCategory lowercases and trims a user supplied category.
func NormalizeCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

// IsAllowed reports whether c belongs to the allowed set.
func (c Category) IsAllowed() bool {
	for _, a := range allowedCategories {
		if c == a {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory normalizes s and checks it against the allowed set.
func ParseCategory(s string) (Category, error) {
	c := NormalizeCategory(s)
	if !c.IsAllowed() {
		return "", invalidCategory()
	}
	return c, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current local calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Validate requires a positive amount, non-blank
// description and an allowed category. Checks run in that order.
func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return amountNotPositive()
	}
	if strings.TrimSpace(e.Description) == "" {
		return emptyDescription()
	}
	if !e.Category.IsAllowed() {
		return invalidCategory()
	}
	return e.Date.Validate()
}

// NewExpense parses and validates raw user input into an Expense dated on date.
// The first failing check wins: amount format, amount sign, description, category.
func NewExpense(amountInput, categoryInput, descriptionInput string, date Date) (Expense, error) {
	amount, err := ParseAmount(amountInput)
	if err != nil {
		return Expense{}, err
	}
	e := Expense{
		Date:        date,
		Amount:      amount,
		Category:    NormalizeCategory(categoryInput),
		Description: strings.TrimSpace(descriptionInput),
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}
