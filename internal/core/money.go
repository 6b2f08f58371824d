// Package core provides money parsing and handling utilities.
//
// Money is a signed decimal amount in the profile currency. Arithmetic is exact;
// rounding happens only when parsing user input.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money represents a signed decimal amount.
type Money struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money { return Money{value: d} }

// MoneyFromInt returns an amount of whole currency units.
func MoneyFromInt(units int64) Money { return Money{value: decimal.NewFromInt(units)} }

// MoneyFromFloat is a convenience for tests and seed data.
func MoneyFromFloat(f float64) Money { return Money{value: decimal.NewFromFloat(f)} }

// ParseAmount converts a user-entered decimal string to a positive Money value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimal places. Signs, zero and malformed input are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Zero, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return Money{value: d}, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic("core: invalid amount " + s)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal        { return m.value }
func (m Money) String() string                  { return m.value.StringFixed(2) }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) }
func (m Money) Cmp(n Money) int                 { return m.value.Cmp(n.value) }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg()} }
func (m Money) Abs() Money                      { return Money{value: m.value.Abs()} }
func (m Money) Add(n Money) Money               { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money               { return Money{value: m.value.Sub(n.value)} }

// Float returns the amount as float64 for display only.
func (m Money) Float() float64 { return m.value.InexactFloat64() }

// MarshalJSON writes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.String()), nil
}

// UnmarshalJSON accepts numbers and quoted numbers; null decodes to zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.value = decimal.Zero
		return nil
	}
	return m.value.UnmarshalJSON(data)
}
