package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodAnnual    PeriodType = "annual"
)

type (
	PeriodType string

	// Period is a half-open date window [Start, End).
	Period struct {
		Type    PeriodType
		Year    int
		Month   int // 1-12, monthly only
		Quarter int // 1-4, quarterly only
		Start   time.Time
		End     time.Time
	}

	// PeriodAggregate is the rolled-up financial summary for one user and
	// one period. Derived, never persisted.
	PeriodAggregate struct {
		Period Period

		GrossIncome     decimal.Decimal
		TaxableIncome   decimal.Decimal
		ProjectedIncome decimal.Decimal

		GrossExpenses  decimal.Decimal
		Reimbursements decimal.Decimal
		NetExpenses    decimal.Decimal

		TotalMileage decimal.Decimal
		MileageValue decimal.Decimal

		EstimatedTax decimal.Decimal
		// TaxPercentage is the user's default rate, shown for reference only.
		// The estimated tax sum uses each gig's own rate.
		TaxPercentage decimal.Decimal

		CompletedGigs int
		TotalGigs     int
	}
)

// IRS estimated-tax quarters are not equal thirds of the year: Q2 covers two
// months and Q3 and Q4 cover three and four.
var quarterStartMonths = [5]time.Month{0, time.January, time.April, time.June, time.September}

func MonthlyPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid month %d", month)
	}
	start := NewDate(year, month, 1)
	return Period{
		Type:  PeriodMonthly,
		Year:  year,
		Month: month,
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}, nil
}

func QuarterlyPeriod(year, quarter int) (Period, error) {
	if quarter < 1 || quarter > 4 {
		return Period{}, fmt.Errorf("invalid quarter %d", quarter)
	}
	start := NewDate(year, int(quarterStartMonths[quarter]), 1)
	var end time.Time
	if quarter == 4 {
		end = NewDate(year+1, 1, 1)
	} else {
		end = NewDate(year, int(quarterStartMonths[quarter+1]), 1)
	}
	return Period{
		Type:    PeriodQuarterly,
		Year:    year,
		Quarter: quarter,
		Start:   start,
		End:     end,
	}, nil
}

func AnnualPeriod(year int) Period {
	return Period{
		Type:  PeriodAnnual,
		Year:  year,
		Start: NewDate(year, 1, 1),
		End:   NewDate(year+1, 1, 1),
	}
}

// NewPeriod dispatches on the period type; month and quarter are ignored
// when not applicable.
func NewPeriod(t PeriodType, year, month, quarter int) (Period, error) {
	switch t {
	case PeriodMonthly:
		return MonthlyPeriod(year, month)
	case PeriodQuarterly:
		return QuarterlyPeriod(year, quarter)
	case PeriodAnnual:
		return AnnualPeriod(year), nil
	}
	return Period{}, errors.New("invalid period type")
}

// Contains reports whether d falls inside the window.
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.Start) && d.Before(p.End)
}

// Key is a stable cache-key fragment for the period.
func (p Period) Key() string {
	switch p.Type {
	case PeriodMonthly:
		return fmt.Sprintf("monthly:%d-%02d", p.Year, p.Month)
	case PeriodQuarterly:
		return fmt.Sprintf("quarterly:%d-q%d", p.Year, p.Quarter)
	default:
		return fmt.Sprintf("annual:%d", p.Year)
	}
}
