package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusUpcoming       GigStatus = "upcoming"
	StatusPendingPayment GigStatus = "pending_payment"
	StatusCompleted      GigStatus = "completed"
)

type (
	GigStatus string

	// GigRecord is one calendar day of booked work. A multi-day booking is
	// stored as one record per day; the records are correlated either by an
	// explicit MultiDayGroupID or by the grouping heuristic.
	GigRecord struct {
		ID     int64
		UserID int64

		EventName  string
		ClientName string
		GigType    string

		Date            time.Time
		StartDate       *time.Time // set once grouped
		EndDate         *time.Time // set once grouped
		MultiDayGroupID string     // empty when the record was created standalone

		ExpectedPay decimal.Decimal
		ActualPay   decimal.Decimal
		Tips        decimal.Decimal

		// TotalReceived is nil on legacy rows that predate payment splits;
		// aggregation falls back to ActualPay for those.
		TotalReceived *decimal.Decimal

		ReimbursedParking   decimal.Decimal
		ReimbursedOther     decimal.Decimal
		UnreimbursedParking decimal.Decimal
		UnreimbursedOther   decimal.Decimal
		ParkingExpense      decimal.Decimal
		OtherExpenses       decimal.Decimal

		// TaxPercentage overrides the user's default rate when set.
		TaxPercentage *decimal.Decimal

		// Mileage in miles, already net of any round-trip multiplier.
		Mileage decimal.Decimal

		Status      GigStatus
		GotPaidDate *time.Time

		// PaymentMethod records how the money arrived, set at the got-paid
		// transition. Empty until then.
		PaymentMethod string
	}

	// GigGroup is a derived view: the day-records believed to represent one
	// continuous multi-day booking. Never persisted as its own row.
	GigGroup struct {
		StartDate  time.Time
		EndDate    time.Time
		GigIDs     []int64
		Records    []GigRecord // sorted by date ascending
		IsMultiDay bool
	}

	// ExpenseRecord is a business expense, standalone or materialized from a
	// gig's itemized payment line items.
	ExpenseRecord struct {
		ID               int64
		UserID           int64
		Date             time.Time
		Amount           decimal.Decimal
		Merchant         string
		Purpose          string
		Category         string
		GigID            *int64
		ReimbursedAmount decimal.Decimal
	}
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrEmptyEventName   = errors.New("empty event name")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrTaxPercentage    = errors.New("tax percentage must be between 0 and 100")
	ErrInvalidDateRange = errors.New("end date must not be before start date")
)

// NewDate builds a date at UTC midnight. All gig dates are day-granular.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// DayDiff returns the whole days from a to b. Negative when b precedes a.
func DayDiff(a, b time.Time) int {
	return int(b.Truncate(24*time.Hour).Sub(a.Truncate(24*time.Hour)) / (24 * time.Hour))
}

// First returns the earliest-dated member, the group's source of financial
// truth for aggregation.
func (g GigGroup) First() GigRecord {
	return g.Records[0]
}

// SameBooking reports whether two records describe the same logical event.
func (r GigRecord) SameBooking(other GigRecord) bool {
	return r.EventName == other.EventName &&
		r.ClientName == other.ClientName &&
		r.GigType == other.GigType
}

// GrossReceived is what the gig actually brought in: the recorded payment
// total when present, the legacy actual pay otherwise.
func (r GigRecord) GrossReceived() decimal.Decimal {
	if r.TotalReceived != nil {
		return *r.TotalReceived
	}
	return r.ActualPay
}

// TaxableIncome is the gross received minus reimbursed expenses, plus tips.
// Reimbursements are not taxable income.
func (r GigRecord) TaxableIncome() decimal.Decimal {
	base := r.ActualPay
	if r.TotalReceived != nil {
		base = r.TotalReceived.Sub(r.ReimbursedParking).Sub(r.ReimbursedOther)
	}
	return base.Add(r.Tips)
}

// TaxRate returns the gig's own rate when set, the supplied default otherwise.
func (r GigRecord) TaxRate(defaultRate decimal.Decimal) decimal.Decimal {
	if r.TaxPercentage != nil {
		return *r.TaxPercentage
	}
	return defaultRate
}

// EffectiveStatus promotes a past-dated upcoming gig to pending_payment on
// read paths. The worker persists the same promotion in its periodic sweep.
func (r GigRecord) EffectiveStatus(now time.Time) GigStatus {
	if r.Status == StatusUpcoming && r.Date.Before(now.UTC().Truncate(24*time.Hour)) {
		return StatusPendingPayment
	}
	return r.Status
}

func (s GigStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusPendingPayment, StatusCompleted:
		return true
	}
	return false
}

func (r GigRecord) Validate() error {
	if strings.TrimSpace(r.EventName) == "" {
		return ErrEmptyEventName
	}
	if r.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if !r.Status.Valid() {
		return errors.New("invalid gig status")
	}
	if r.ExpectedPay.IsNegative() || r.Tips.IsNegative() || r.Mileage.IsNegative() {
		return ErrNegativeAmount
	}
	if r.TaxPercentage != nil {
		if err := ValidateTaxPercentage(*r.TaxPercentage); err != nil {
			return err
		}
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	if e.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	// ReimbursedAmount > Amount is tolerated: it surfaces as a negative
	// out-of-pocket deduction rather than an error.
	return nil
}

// OutOfPocket is the deductible portion of the expense. Can go negative when
// the reimbursement exceeds the amount spent.
func (e ExpenseRecord) OutOfPocket() decimal.Decimal {
	return e.Amount.Sub(e.ReimbursedAmount)
}

var hundred = decimal.NewFromInt(100)

func ValidateTaxPercentage(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return ErrTaxPercentage
	}
	return nil
}
