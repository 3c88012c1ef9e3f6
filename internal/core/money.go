// Package core holds the ledger's domain types.
//
// Monetary amounts are kept as integer cents so that SQL aggregation
// stays exact; decimal strings at the boundary are parsed and formatted
// with shopspring/decimal.
package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Money is an exact monetary amount in cents.
type Money struct {
	Cents int64
}

var ErrInvalidAmount = errors.New("invalid amount")

var centFactor = decimal.NewFromInt(100)

// ParseAmount converts a decimal string such as "12.34" to Money.
// At most two fractional digits are accepted; negative and zero
// amounts are rejected.
func ParseAmount(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Exponent() < -2 {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(centFactor)
	if !cents.IsInteger() || cents.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	if !cents.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount as an exact decimal with two places.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimal places, e.g. "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
