package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"gigledger/internal/cache"
	"gigledger/internal/core"
	"gigledger/internal/grouping"
)

var oneHundred = decimal.NewFromInt(100)

// AggregationService computes period-level financial summaries. The calendar,
// dashboard, and report surfaces all go through this one engine so their
// totals can never drift apart.
//
// It operates on grouped records only: the first member of each group is the
// source of financial truth, which keeps a multi-day booking's identical
// day-rows from being counted once per day.
type AggregationService struct {
	gigs        GigStore
	expenses    ExpenseStore
	settings    SettingsStore
	cache       cache.Cache[core.PeriodAggregate]
	mileageRate decimal.Decimal
	defaultTax  decimal.Decimal
}

func NewAggregationService(gigs GigStore, expenses ExpenseStore, settings SettingsStore,
	resultCache cache.Cache[core.PeriodAggregate], mileageRate, defaultTax decimal.Decimal) *AggregationService {
	return &AggregationService{
		gigs:        gigs,
		expenses:    expenses,
		settings:    settings,
		cache:       resultCache,
		mileageRate: mileageRate,
		defaultTax:  defaultTax,
	}
}

// AggregatePeriod returns the PeriodAggregate for one user and window,
// serving from the result cache when possible.
func (s *AggregationService) AggregatePeriod(ctx context.Context, userID int64, period core.Period) (core.PeriodAggregate, error) {
	key := aggregateKey(userID, period)
	if s.cache != nil {
		if agg, ok := s.cache.Get(key); ok {
			return agg, nil
		}
	}

	agg, err := s.compute(ctx, userID, period)
	if err != nil {
		return core.PeriodAggregate{}, err
	}

	if s.cache != nil {
		s.cache.Set(key, agg)
	}
	return agg, nil
}

func (s *AggregationService) compute(ctx context.Context, userID int64, period core.Period) (core.PeriodAggregate, error) {
	gigs, err := s.gigs.GetGigsByDateRange(ctx, userID, period.Start, period.End)
	if err != nil {
		return core.PeriodAggregate{}, fmt.Errorf("fetch gigs for period: %w", err)
	}
	standalone, err := s.expenses.GetExpensesByDateRange(ctx, userID, period.Start, period.End)
	if err != nil {
		return core.PeriodAggregate{}, fmt.Errorf("fetch expenses for period: %w", err)
	}

	defaultRate, err := s.userDefaultRate(ctx, userID)
	if err != nil {
		return core.PeriodAggregate{}, err
	}

	agg := core.PeriodAggregate{Period: period, TaxPercentage: defaultRate}

	for _, group := range grouping.Group(gigs) {
		first := group.First()
		agg.TotalGigs++

		if first.Status != core.StatusCompleted {
			agg.ProjectedIncome = agg.ProjectedIncome.Add(first.ExpectedPay).Add(first.Tips)
			continue
		}
		agg.CompletedGigs++

		agg.GrossIncome = agg.GrossIncome.Add(first.GrossReceived()).Add(first.Tips)
		agg.ProjectedIncome = agg.ProjectedIncome.Add(first.GrossReceived()).Add(first.Tips)

		taxable := first.TaxableIncome()
		agg.TaxableIncome = agg.TaxableIncome.Add(taxable)

		// Each gig's own rate applies; the period-level percentage shown to
		// users is informational only.
		rate := first.TaxRate(defaultRate)
		agg.EstimatedTax = agg.EstimatedTax.Add(taxable.Mul(rate).Div(oneHundred))

		agg.TotalMileage = agg.TotalMileage.Add(first.Mileage)

		// Embedded parking/other spend surfaces as synthetic expense records.
		if first.ParkingExpense.IsPositive() {
			agg.GrossExpenses = agg.GrossExpenses.Add(first.ParkingExpense)
			agg.Reimbursements = agg.Reimbursements.Add(first.ReimbursedParking)
		}
		if first.OtherExpenses.IsPositive() {
			agg.GrossExpenses = agg.GrossExpenses.Add(first.OtherExpenses)
			agg.Reimbursements = agg.Reimbursements.Add(first.ReimbursedOther)
		}
	}

	for _, e := range standalone {
		// Gig-linked rows mirror the gig's embedded fields and are already
		// represented by the synthetic records above.
		if e.GigID != nil {
			continue
		}
		agg.GrossExpenses = agg.GrossExpenses.Add(e.Amount)
		agg.Reimbursements = agg.Reimbursements.Add(e.ReimbursedAmount)
	}

	agg.NetExpenses = agg.GrossExpenses.Sub(agg.Reimbursements)
	agg.MileageValue = agg.TotalMileage.Mul(s.mileageRate)

	slog.DebugContext(ctx, "Computed period aggregate",
		"user_id", userID,
		"period", period.Key(),
		"total_gigs", agg.TotalGigs,
		"completed_gigs", agg.CompletedGigs)

	return agg, nil
}

// DeriveExpenses expands the completed gigs of a window into their synthetic
// expense records merged with standalone rows, for itemized report output.
func (s *AggregationService) DeriveExpenses(ctx context.Context, userID int64, period core.Period) ([]core.ExpenseRecord, error) {
	gigs, err := s.gigs.GetGigsByDateRange(ctx, userID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("fetch gigs for period: %w", err)
	}
	standalone, err := s.expenses.GetExpensesByDateRange(ctx, userID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses for period: %w", err)
	}

	var out []core.ExpenseRecord
	for _, group := range grouping.Group(gigs) {
		first := group.First()
		if first.Status != core.StatusCompleted {
			continue
		}
		gigRef := first.ID
		if first.ParkingExpense.IsPositive() {
			out = append(out, core.ExpenseRecord{
				UserID:           userID,
				Date:             first.Date,
				Amount:           first.ParkingExpense,
				Merchant:         first.EventName,
				Purpose:          "Parking",
				Category:         core.CategoryWorkTravel,
				GigID:            &gigRef,
				ReimbursedAmount: first.ReimbursedParking,
			})
		}
		if first.OtherExpenses.IsPositive() {
			out = append(out, core.ExpenseRecord{
				UserID:           userID,
				Date:             first.Date,
				Amount:           first.OtherExpenses,
				Merchant:         first.EventName,
				Purpose:          "Gig expenses",
				Category:         core.CategoryGigSupplies,
				GigID:            &gigRef,
				ReimbursedAmount: first.ReimbursedOther,
			})
		}
	}
	for _, e := range standalone {
		if e.GigID != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *AggregationService) userDefaultRate(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if s.settings == nil {
		return s.defaultTax, nil
	}
	rate, ok, err := s.settings.DefaultTaxPercentage(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load default tax percentage: %w", err)
	}
	if !ok {
		return s.defaultTax, nil
	}
	return rate, nil
}

func aggregateKey(userID int64, period core.Period) string {
	return userKeyPrefix(userID) + "aggregate:" + period.Key()
}
