// Package types provides common value types used across clearing.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places amounts are kept at. ParseAmount
// rejects inputs with more significant places; FromDecimal rounds.
const Scale = 4

// ErrExcessPrecision is returned by ParseAmount for values that cannot be
// represented in Scale places without rounding.
var ErrExcessPrecision = errors.New("amount: more than 4 decimal places")

// Amount is a monetary value in major units (e.g. "1.5" is one and a half).
// Arithmetic is exact decimal arithmetic; there is no floating point anywhere.
// The zero value is 0.
//
// Amounts carry no currency: an event stream is single-currency.
type Amount struct {
	d decimal.Decimal
}

// Zero returns a zero Amount.
func Zero() Amount { return Amount{} }

// NewAmount builds an Amount from an integer count of 1/10^Scale units, so
// NewAmount(15000) is 1.5.
func NewAmount(units int64) Amount {
	return Amount{d: decimal.New(units, -Scale)}
}

// FromDecimal wraps a decimal, rounding it to Scale places.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Scale)}
}

// ParseAmount parses a decimal string such as "2.75" or " 10 ".
// Surrounding whitespace is ignored. Trailing zeros beyond Scale are fine
// ("1.50000"); any other digit beyond Scale is ErrExcessPrecision. Negative
// values parse successfully; rejecting them is the caller's decision.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("amount: parse %q: empty string", s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("amount: parse %q: %w", s, err)
	}
	if !d.Equal(d.Round(Scale)) {
		return Amount{}, fmt.Errorf("%w: %q", ErrExcessPrecision, s)
	}

	return FromDecimal(d), nil
}

// MustParseAmount is like ParseAmount but panics on error. Use for literals.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Arithmetic operations

// Add returns a + other.
func (a Amount) Add(other Amount) Amount { return Amount{d: a.d.Add(other.d)} }

// Sub returns a - other. The result may be negative.
func (a Amount) Sub(other Amount) Amount { return Amount{d: a.d.Sub(other.d)} }

// Min returns the smaller of the two amounts.
func (a Amount) Min(other Amount) Amount {
	if a.d.LessThan(other.d) {
		return a
	}
	return other
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.d.IsPositive() }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// Equal compares by value, so 1.5 equals 1.50.
func (a Amount) Equal(other Amount) bool { return a.d.Equal(other.d) }

// LessThan returns true if a < other.
func (a Amount) LessThan(other Amount) bool { return a.d.LessThan(other.d) }

// GreaterOrEqual returns true if a >= other.
func (a Amount) GreaterOrEqual(other Amount) bool { return a.d.GreaterThanOrEqual(other.d) }

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Formatting methods

// String renders the amount with exactly Scale decimal places: "2.0000".
func (a Amount) String() string { return a.d.StringFixed(Scale) }

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a JSON string so no precision is lost
// to float decoding on the other side.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both "1.5" and 1.5.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}

// Sum adds up the given amounts. Sum() is zero.
func Sum(values ...Amount) Amount {
	result := Zero()
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
