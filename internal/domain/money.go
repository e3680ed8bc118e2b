package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point amount in the organization's currency
type Money = decimal.Decimal

// Zero is the zero amount
var Zero = decimal.Zero

// ParseMoney parses a decimal string such as "1250.50"
func ParseMoney(s string) (Money, error) {
	m, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, NewValidationError("amount", "amount must be a decimal number")
	}
	return m.Round(2), nil
}

// Cents rounds an amount to the two decimal places the ledger stores
func Cents(amount Money) Money {
	return amount.Round(2)
}

// RequirePositive validates that an amount is strictly greater than zero
func RequirePositive(field string, amount Money) error {
	if !amount.IsPositive() {
		return NewValidationError(field, "amount must be greater than zero")
	}
	return nil
}

// DateOf truncates t to midnight UTC of its calendar day
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, NewValidationError(field, "date must be formatted as YYYY-MM-DD")
	}
	return t, nil
}
