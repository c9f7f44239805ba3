package http

import (
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

// JSON views over the core types. Dates render as YYYY-MM-DD and money as
// decimal strings, matching what the calendar and dashboard clients expect.

type gigView struct {
	ID              int64            `json:"id"`
	EventName       string           `json:"event_name"`
	ClientName      string           `json:"client_name,omitempty"`
	GigType         string           `json:"gig_type,omitempty"`
	Date            string           `json:"date"`
	MultiDayGroupID string           `json:"multi_day_group_id,omitempty"`
	ExpectedPay     decimal.Decimal  `json:"expected_pay"`
	ActualPay       decimal.Decimal  `json:"actual_pay"`
	Tips            decimal.Decimal  `json:"tips"`
	TotalReceived   *decimal.Decimal `json:"total_received,omitempty"`
	ParkingExpense  decimal.Decimal  `json:"parking_expense"`
	OtherExpenses   decimal.Decimal  `json:"other_expenses"`
	Mileage         decimal.Decimal  `json:"mileage"`
	TaxPercentage   *decimal.Decimal `json:"tax_percentage,omitempty"`
	Status          string           `json:"status"`
	GotPaidDate     string           `json:"got_paid_date,omitempty"`
	PaymentMethod   string           `json:"payment_method,omitempty"`
}

type groupView struct {
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	IsMultiDay bool      `json:"is_multi_day"`
	GigIDs     []int64   `json:"gig_ids"`
	Gigs       []gigView `json:"gigs"`
}

type expenseView struct {
	ID               int64           `json:"id"`
	Date             string          `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Merchant         string          `json:"merchant,omitempty"`
	Purpose          string          `json:"purpose,omitempty"`
	Category         string          `json:"category,omitempty"`
	GigID            *int64          `json:"gig_id,omitempty"`
	ReimbursedAmount decimal.Decimal `json:"reimbursed_amount"`
	OutOfPocket      decimal.Decimal `json:"out_of_pocket"`
}

type aggregateView struct {
	Period          string          `json:"period"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	GrossIncome     decimal.Decimal `json:"gross_income"`
	TaxableIncome   decimal.Decimal `json:"taxable_income"`
	ProjectedIncome decimal.Decimal `json:"projected_income"`
	GrossExpenses   decimal.Decimal `json:"gross_expenses"`
	Reimbursements  decimal.Decimal `json:"reimbursements"`
	NetExpenses     decimal.Decimal `json:"net_expenses"`
	TotalMileage    decimal.Decimal `json:"total_mileage"`
	MileageValue    decimal.Decimal `json:"mileage_value"`
	EstimatedTax    decimal.Decimal `json:"estimated_tax"`
	TaxPercentage   decimal.Decimal `json:"tax_percentage"`
	CompletedGigs   int             `json:"completed_gigs"`
	TotalGigs       int             `json:"total_gigs"`
}

func toGigView(r core.GigRecord) gigView {
	v := gigView{
		ID:              r.ID,
		EventName:       r.EventName,
		ClientName:      r.ClientName,
		GigType:         r.GigType,
		Date:            r.Date.Format(dateLayout),
		MultiDayGroupID: r.MultiDayGroupID,
		ExpectedPay:     r.ExpectedPay,
		ActualPay:       r.ActualPay,
		Tips:            r.Tips,
		TotalReceived:   r.TotalReceived,
		ParkingExpense:  r.ParkingExpense,
		OtherExpenses:   r.OtherExpenses,
		Mileage:         r.Mileage,
		TaxPercentage:   r.TaxPercentage,
		Status:          string(r.Status),
		PaymentMethod:   r.PaymentMethod,
	}
	if r.GotPaidDate != nil {
		v.GotPaidDate = r.GotPaidDate.Format(time.RFC3339)
	}
	return v
}

func toGigViews(records []core.GigRecord) []gigView {
	out := make([]gigView, len(records))
	for i, r := range records {
		out[i] = toGigView(r)
	}
	return out
}

func toGroupView(g core.GigGroup) groupView {
	return groupView{
		StartDate:  g.StartDate.Format(dateLayout),
		EndDate:    g.EndDate.Format(dateLayout),
		IsMultiDay: g.IsMultiDay,
		GigIDs:     g.GigIDs,
		Gigs:       toGigViews(g.Records),
	}
}

func toGroupViews(groups []core.GigGroup) []groupView {
	out := make([]groupView, len(groups))
	for i, g := range groups {
		out[i] = toGroupView(g)
	}
	return out
}

func toExpenseView(e core.ExpenseRecord) expenseView {
	return expenseView{
		ID:               e.ID,
		Date:             e.Date.Format(dateLayout),
		Amount:           e.Amount,
		Merchant:         e.Merchant,
		Purpose:          e.Purpose,
		Category:         e.Category,
		GigID:            e.GigID,
		ReimbursedAmount: e.ReimbursedAmount,
		OutOfPocket:      e.OutOfPocket(),
	}
}

func toAggregateView(a core.PeriodAggregate) aggregateView {
	return aggregateView{
		Period:          a.Period.Key(),
		StartDate:       a.Period.Start.Format(dateLayout),
		EndDate:         a.Period.End.AddDate(0, 0, -1).Format(dateLayout),
		GrossIncome:     a.GrossIncome,
		TaxableIncome:   a.TaxableIncome,
		ProjectedIncome: a.ProjectedIncome,
		GrossExpenses:   a.GrossExpenses,
		Reimbursements:  a.Reimbursements,
		NetExpenses:     a.NetExpenses,
		TotalMileage:    a.TotalMileage,
		MileageValue:    a.MileageValue,
		EstimatedTax:    a.EstimatedTax,
		TaxPercentage:   a.TaxPercentage,
		CompletedGigs:   a.CompletedGigs,
		TotalGigs:       a.TotalGigs,
	}
}
