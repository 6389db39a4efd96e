// Package model defines the core domain models used throughout the application.
package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO 8601 date format used in the output schema.
const DateLayout = "2006-01-02"

// Direction indicates whether money left or entered the account.
type Direction string

// Direction constants.
const (
	DirectionCredit Direction = "Credit"
	DirectionDebit  Direction = "Debit"
)

// IsValid reports whether d is one of the known directions.
func (d Direction) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Transaction represents a single movement extracted from a statement.
// Within a batch a transaction is identified by its index, not its content.
type Transaction struct {
	Date        time.Time
	Amount      decimal.Decimal // Magnitude, never negative
	Details     string          // Raw description, may be empty
	Direction   Direction
	AccountType string
	Category    string // Empty until categorized
}

// Year returns the calendar year of the transaction date.
func (t Transaction) Year() int {
	return t.Date.Year()
}

// Month returns the full English month name of the transaction date.
func (t Transaction) Month() string {
	return t.Date.Month().String()
}

// IsCategorized reports whether a category has been assigned.
func (t Transaction) IsCategorized() bool {
	return t.Category != ""
}

// Columns is the ordered header of the transaction output schema.
var Columns = []string{"Date", "Year", "Month", "Details", "Amount", "Debit/Credit", "Account Type", "Category"}

// Record renders the transaction in output schema column order.
func (t Transaction) Record() []string {
	return []string{
		t.Date.Format(DateLayout),
		strconv.Itoa(t.Year()),
		t.Month(),
		t.Details,
		t.Amount.StringFixed(2),
		string(t.Direction),
		t.AccountType,
		t.Category,
	}
}

// NewDate returns the calendar date for y-m-d at UTC midnight.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
