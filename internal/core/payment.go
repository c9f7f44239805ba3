package core

import (
	"github.com/shopspring/decimal"
)

// Expense categories for records derived from a gig's embedded fields.
const (
	CategoryWorkTravel  = "Work Travel"
	CategoryGigSupplies = "Gig Supplies"
)

type (
	// ExpenseLineItem is one itemized non-parking expense attached to a
	// payment payload.
	ExpenseLineItem struct {
		Description      string
		Amount           decimal.Decimal
		ReimbursedAmount decimal.Decimal
	}

	// PaymentPayload carries everything the "got paid" transition needs.
	PaymentPayload struct {
		TotalReceived     decimal.Decimal
		ParkingSpent      decimal.Decimal
		ParkingReimbursed decimal.Decimal
		OtherItems        []ExpenseLineItem
		// OtherReimbursed is the legacy single-value fallback used when the
		// itemized reimbursed total is zero.
		OtherReimbursed decimal.Decimal
		Mileage         decimal.Decimal
		TaxPercentage   *decimal.Decimal
		PaymentMethod   string
	}

	// PaymentSplit is the tax-correct breakdown of a payment payload.
	PaymentSplit struct {
		TaxableIncome       decimal.Decimal
		TotalOtherSpent     decimal.Decimal
		OtherReimbursed     decimal.Decimal
		UnreimbursedParking decimal.Decimal
		UnreimbursedOther   decimal.Decimal
	}
)

func (p PaymentPayload) Validate() error {
	if p.TotalReceived.IsNegative() || p.ParkingSpent.IsNegative() ||
		p.ParkingReimbursed.IsNegative() || p.OtherReimbursed.IsNegative() ||
		p.Mileage.IsNegative() {
		return ErrNegativeAmount
	}
	for _, item := range p.OtherItems {
		if item.Amount.IsNegative() || item.ReimbursedAmount.IsNegative() {
			return ErrNegativeAmount
		}
	}
	if p.TaxPercentage != nil {
		if err := ValidateTaxPercentage(*p.TaxPercentage); err != nil {
			return err
		}
	}
	// ParkingReimbursed + OtherReimbursed exceeding TotalReceived is expected
	// but not hard-enforced; it yields a negative taxable income.
	return nil
}

// Split computes the taxable-income breakdown.
//
// Taxable income is the total received minus reimbursed expenses, since
// reimbursements are not income. Unreimbursed amounts are floored at zero:
// an over-reimbursed expense never becomes a negative deduction here (the
// leniency lives on ExpenseRecord.OutOfPocket, not on the gig split).
func (p PaymentPayload) Split() PaymentSplit {
	var totalSpent, itemized decimal.Decimal
	for _, item := range p.OtherItems {
		totalSpent = totalSpent.Add(item.Amount)
		itemized = itemized.Add(item.ReimbursedAmount)
	}
	otherReimbursed := itemized
	if itemized.IsZero() {
		otherReimbursed = p.OtherReimbursed
	}

	return PaymentSplit{
		TaxableIncome:       p.TotalReceived.Sub(p.ParkingReimbursed).Sub(otherReimbursed),
		TotalOtherSpent:     totalSpent,
		OtherReimbursed:     otherReimbursed,
		UnreimbursedParking: decimal.Max(decimal.Zero, p.ParkingSpent.Sub(p.ParkingReimbursed)),
		UnreimbursedOther:   decimal.Max(decimal.Zero, totalSpent.Sub(otherReimbursed)),
	}
}

// GigPatch holds the non-date fields applied to every member during a
// date-range edit. Nil pointers leave the stored value untouched.
type GigPatch struct {
	EventName     *string
	ClientName    *string
	GigType       *string
	ExpectedPay   *decimal.Decimal
	Tips          *decimal.Decimal
	TaxPercentage *decimal.Decimal
	Mileage       *decimal.Decimal
}

// Apply copies the set fields onto r.
func (p GigPatch) Apply(r *GigRecord) {
	if p.EventName != nil {
		r.EventName = *p.EventName
	}
	if p.ClientName != nil {
		r.ClientName = *p.ClientName
	}
	if p.GigType != nil {
		r.GigType = *p.GigType
	}
	if p.ExpectedPay != nil {
		r.ExpectedPay = *p.ExpectedPay
	}
	if p.Tips != nil {
		r.Tips = *p.Tips
	}
	if p.TaxPercentage != nil {
		r.TaxPercentage = p.TaxPercentage
	}
	if p.Mileage != nil {
		r.Mileage = *p.Mileage
	}
}
