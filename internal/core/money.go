// Package core holds the engine's domain types: periods, money, financial
// commitments, transaction records and the derived projection structures.
package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Money is an amount in cents. All balance arithmetic stays in integer cents;
// decimal is used only at the parsing/formatting boundary and for interest
// math, where fractional rates appear.
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money with half-up rounding on the
// third decimal place. Accepts both "12.34" and "12,34". Only strictly
// positive amounts are valid.
func ParseAmount(s string) (Money, error) {
	normalized := ""
	for _, r := range s {
		if r == ',' {
			normalized += "."
			continue
		}
		normalized += string(r)
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(decimal.NewFromInt(100)).Round(0)
	if !cents.IsInteger() || cents.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Decimal returns the amount in currency units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in currency units for display purposes only.
// Calculations must stay on cents to avoid floating-point drift.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// CompoundMonthly applies n months of compounding at ratePerMonth (e.g. 0.015
// for 1.5%/month) and rounds half-up to cents. n <= 0 returns m unchanged.
func (m Money) CompoundMonthly(ratePerMonth decimal.Decimal, n int) Money {
	if n <= 0 || ratePerMonth.IsZero() {
		return m
	}
	factor := decimal.NewFromInt(1).Add(ratePerMonth).Pow(decimal.NewFromInt(int64(n)))
	return Money{Cents: m.Decimal().Mul(factor).Mul(decimal.NewFromInt(100)).Round(0).IntPart()}
}

// MulInt returns m multiplied by an integer count.
func (m Money) MulInt(n int) Money {
	return Money{Cents: m.Cents * int64(n)}
}
