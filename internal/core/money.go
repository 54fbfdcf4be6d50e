// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and formatting them for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountExponent bounds the decimal exponent accepted from input so that
// "1e999999999" cannot expand into a huge string on save.
const maxAmountExponent = 20

// ParseAmount converts user input into a decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. It only rejects input that is not a number; the
// sign is checked by Expense.Validate so that the "not a number" and
// "must be positive" failures stay distinguishable.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-5")    -> -5, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, amountNotNumber()
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, amountNotNumber()
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, amountNotNumber()
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Sum adds the amounts of all expenses. An empty slice sums to zero.
func Sum(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
