// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals backed by shopspring/decimal. They are rounded
// to cents only for display, so totals add first and round once, and an
// amount read from the API is sent back unchanged.
package core

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO code used for display.
const Currency = money.USD

// Money is an exact decimal amount. The zero value is 0.
type Money struct {
	d decimal.Decimal
}

// Cents returns the amount n/100.
func Cents(n int64) Money {
	return Money{d: decimal.New(n, -2)}
}

// ParseAmount converts a decimal string to Money without rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Sign and
// magnitude are not checked: like a numeric form field, anything that parses
// as a number is accepted.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.345
//	ParseAmount("abc")    -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d), nil
}

func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

func FromFloat(f float64) Money {
	return FromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the exact amount.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Cents returns the amount rounded half away from zero to whole cents.
func (m Money) Cents() int64 {
	return m.d.Shift(2).Round(0).IntPart()
}

// Add returns m+o, exactly.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// String returns the exact amount with at least two decimals: "15.00",
// "10.555".
func (m Money) String() string {
	if m.d.Equal(m.d.Round(2)) {
		return m.d.StringFixed(2)
	}
	return m.d.String()
}

// Display returns the currency form shown to users, rounded to cents,
// e.g. "$15.00".
func (m Money) Display() string {
	return money.New(m.Cents(), Currency).Display()
}

// Float returns the amount as float64 for charting only.
func (m Money) Float() float64 {
	return m.d.InexactFloat64()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	b = bytes.Trim(b, `"`)
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	*m = FromDecimal(d)
	return nil
}

// Value stores the amount as its exact decimal text.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan reads an amount stored as decimal text or a number.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	*m = FromDecimal(d)
	return nil
}
