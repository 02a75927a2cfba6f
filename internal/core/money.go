// Package core holds the domain model of the dues ledger: money, the fee
// schedule, members with their monthly payments, expenses and the yearly
// summary. It has no dependencies on storage or transport.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an amount of currency in minor units (cents). Keeping cents as
// int64 makes ledger sums exact; conversion to and from decimal notation
// happens only at the edges.
type Money struct {
	Cents int64
}

// MoneyFromDecimal converts a decimal amount (e.g. 188.50) to Money,
// rounding half-up on a third decimal place.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// Decimal returns the amount as an exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount in decimal notation without trailing zeros,
// matching the way JSON numbers render ("100", "188.5").
func (m Money) String() string {
	return m.Decimal().String()
}

// MarshalJSON encodes the amount as a plain JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. Quoted
// strings come from user input and go through ParseMoney, so both dot and
// comma decimal separators work.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		q := strings.Trim(s, `"`)
		if q == "" {
			m.Cents = 0
			return nil
		}
		parsed, err := ParseMoney(q)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	*m = MoneyFromDecimal(d)
	return nil
}

// Validate rejects non-positive amounts.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ParseMoney converts a decimal string to Money with half-up rounding on the
// third decimal place. It accepts both dot (12.34) and comma (12,34) decimal
// separators. Returns an error for invalid formats or signed values.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}
