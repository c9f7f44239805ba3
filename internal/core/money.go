// Package core holds the gig ledger's domain model.
//
// Money amounts are decimal.Decimal in the domain and integer cents in the
// store; this file holds the boundary conversions.
package core

import "github.com/shopspring/decimal"

// Cents converts a decimal dollar amount to integer cents with half-up
// rounding on the third decimal place.
func Cents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromCents converts integer cents back to a decimal dollar amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CentsPtr converts an optional decimal amount, preserving nil.
func CentsPtr(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	c := Cents(*d)
	return &c
}

// FromCentsPtr converts optional cents, preserving nil.
func FromCentsPtr(cents *int64) *decimal.Decimal {
	if cents == nil {
		return nil
	}
	d := FromCents(*cents)
	return &d
}
