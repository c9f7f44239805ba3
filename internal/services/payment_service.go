package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gigledger/internal/cache"
	"gigledger/internal/core"
	"gigledger/internal/grouping"
)

// maxRecreateDays caps date-range recreation: anything longer collapses to a
// single day-row.
const maxRecreateDays = 30

// PaymentService executes the "got paid" transition and multi-day date-range
// edits. Group-member updates fan out concurrently and are not wrapped in a
// transaction: a crash mid-update can leave a group partially updated, and
// the caller learns which rows landed.
type PaymentService struct {
	gigs     GigStore
	expenses ExpenseStore
	events   EventPublisher
	cache    cache.Invalidator
	now      func() time.Time
}

func NewPaymentService(gigs GigStore, expenses ExpenseStore, events EventPublisher, inv cache.Invalidator) *PaymentService {
	return &PaymentService{
		gigs:     gigs,
		expenses: expenses,
		events:   events,
		cache:    inv,
		now:      time.Now,
	}
}

// ProcessPayment transitions the target gig and every other member of its
// group to completed with an identical financial split. A multi-day booking
// reports the same totals on each day-row; the totals are never divided
// across days.
//
// Validation and group resolution happen before any mutation. Member updates
// then run concurrently; on partial failure the successfully updated records
// are returned alongside a *core.PartialUpdateError, with no rollback.
func (s *PaymentService) ProcessPayment(ctx context.Context, userID, gigID int64, payload core.PaymentPayload) ([]core.GigRecord, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	target, err := s.gigs.GetGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if target.UserID != userID {
		return nil, core.ErrNotFound
	}

	open, err := s.gigs.GetOpenGigs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve payment group: %w", err)
	}
	members := grouping.Resolve(target, open)

	split := payload.Split()
	now := s.now().UTC()

	// Materialize itemized expenses as standalone records linked to the gig.
	// Best-effort: a failed line item is logged and skipped, it does not
	// abort the transition.
	for _, item := range payload.OtherItems {
		if item.Amount.IsZero() {
			continue
		}
		gigRef := target.ID
		_, err := s.expenses.CreateExpense(ctx, core.ExpenseRecord{
			UserID:           userID,
			Date:             target.Date,
			Amount:           item.Amount,
			Merchant:         target.EventName,
			Purpose:          item.Description,
			Category:         core.CategoryGigSupplies,
			GigID:            &gigRef,
			ReimbursedAmount: item.ReimbursedAmount,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize expense line item",
				"gig_id", target.ID,
				"purpose", item.Description,
				"error", err)
		}
	}

	updated := make([]core.GigRecord, len(members))
	updateErrs := make([]error, len(members))

	var g errgroup.Group
	for i, member := range members {
		g.Go(func() error {
			rec := applyPayment(member, payload, split, now)
			updateErrs[i] = s.gigs.UpdateGig(ctx, rec)
			updated[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	var succeeded []core.GigRecord
	var succeededIDs []int64
	var failures []core.MemberFailure
	for i, err := range updateErrs {
		if err != nil {
			failures = append(failures, core.MemberFailure{GigID: members[i].ID, Err: err})
			continue
		}
		succeeded = append(succeeded, updated[i])
		succeededIDs = append(succeededIDs, updated[i].ID)
	}

	if len(succeeded) > 0 {
		s.invalidate(userID)
		s.publishCompleted(ctx, userID, succeededIDs, split, now)
	}

	if len(failures) > 0 {
		return succeeded, &core.PartialUpdateError{Succeeded: succeededIDs, Failed: failures}
	}
	return succeeded, nil
}

func applyPayment(rec core.GigRecord, p core.PaymentPayload, split core.PaymentSplit, now time.Time) core.GigRecord {
	total := p.TotalReceived
	rec.Status = core.StatusCompleted
	rec.ActualPay = split.TaxableIncome
	rec.TotalReceived = &total
	rec.ReimbursedParking = p.ParkingReimbursed
	rec.ReimbursedOther = split.OtherReimbursed
	rec.UnreimbursedParking = split.UnreimbursedParking
	rec.UnreimbursedOther = split.UnreimbursedOther
	rec.ParkingExpense = p.ParkingSpent
	rec.OtherExpenses = split.TotalOtherSpent
	rec.Mileage = p.Mileage
	rec.GotPaidDate = &now
	rec.PaymentMethod = p.PaymentMethod
	if p.TaxPercentage != nil {
		rec.TaxPercentage = p.TaxPercentage
	}
	return rec
}

// UpdateGroupDateRange edits a grouped booking's date range.
//
// When the range is unchanged the members are patched in place. Otherwise
// every member is deleted and one record per day is recreated across the new
// range, so the group always holds exactly one row per calendar day it spans.
// Ranges longer than 30 days collapse to a single day-row as a safety bound.
func (s *PaymentService) UpdateGroupDateRange(ctx context.Context, userID, gigID int64, newStart, newEnd time.Time, patch core.GigPatch) ([]core.GigRecord, error) {
	if newEnd.Before(newStart) {
		return nil, core.ErrInvalidDateRange
	}

	target, err := s.gigs.GetGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if target.UserID != userID {
		return nil, core.ErrNotFound
	}

	members, err := groupMembers(ctx, s.gigs, target)
	if err != nil {
		return nil, err
	}

	curStart := members[0].Date
	curEnd := members[len(members)-1].Date

	if curStart.Equal(newStart) && curEnd.Equal(newEnd) {
		return s.patchInPlace(ctx, userID, members, patch)
	}
	return s.recreate(ctx, userID, members, newStart, newEnd, patch)
}

func (s *PaymentService) patchInPlace(ctx context.Context, userID int64, members []core.GigRecord, patch core.GigPatch) ([]core.GigRecord, error) {
	updated := make([]core.GigRecord, len(members))
	updateErrs := make([]error, len(members))

	var g errgroup.Group
	for i, member := range members {
		g.Go(func() error {
			rec := member
			patch.Apply(&rec)
			updateErrs[i] = s.gigs.UpdateGig(ctx, rec)
			updated[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	var succeeded []core.GigRecord
	var succeededIDs []int64
	var failures []core.MemberFailure
	for i, err := range updateErrs {
		if err != nil {
			failures = append(failures, core.MemberFailure{GigID: members[i].ID, Err: err})
			continue
		}
		succeeded = append(succeeded, updated[i])
		succeededIDs = append(succeededIDs, updated[i].ID)
	}

	if len(succeeded) > 0 {
		s.invalidate(userID)
		s.publishSync(ctx, userID, members[0].Date.Year())
	}
	if len(failures) > 0 {
		return succeeded, &core.PartialUpdateError{Succeeded: succeededIDs, Failed: failures}
	}
	return succeeded, nil
}

func (s *PaymentService) recreate(ctx context.Context, userID int64, members []core.GigRecord, newStart, newEnd time.Time, patch core.GigPatch) ([]core.GigRecord, error) {
	span := core.DayDiff(newStart, newEnd) + 1
	if span > maxRecreateDays {
		slog.WarnContext(ctx, "Date range exceeds recreate cap, collapsing to single day",
			"days", span,
			"cap", maxRecreateDays)
		span = 1
	}

	template := members[0]
	patch.Apply(&template)
	template.StartDate = nil
	template.EndDate = nil
	template.MultiDayGroupID = ""
	if span > 1 {
		template.MultiDayGroupID = uuid.NewString()
	}

	// Deletion is deliberately sequential and fail-fast: stopping at the
	// first failed delete leaves the group intact enough to retry, whereas
	// recreation failures after deletes are reported as RecreateError.
	for _, member := range members {
		if err := s.gigs.DeleteGig(ctx, member.ID); err != nil {
			return nil, fmt.Errorf("delete group member %d: %w", member.ID, err)
		}
	}

	var created []core.GigRecord
	var createdIDs []int64
	for day := 0; day < span; day++ {
		rec := template
		rec.ID = 0
		rec.Date = newStart.AddDate(0, 0, day)
		saved, err := s.gigs.CreateGig(ctx, rec)
		if err != nil {
			s.invalidate(userID)
			return created, &core.RecreateError{Created: createdIDs, Err: err}
		}
		created = append(created, saved)
		createdIDs = append(createdIDs, saved.ID)
	}

	s.invalidate(userID)
	s.publishSync(ctx, userID, newStart.Year())

	slog.InfoContext(ctx, "Recreated gig group for new date range",
		"user_id", userID,
		"days", span,
		"multi_day_group_id", template.MultiDayGroupID)

	return created, nil
}

func (s *PaymentService) invalidate(userID int64) {
	if s.cache != nil {
		s.cache.Invalidate(userKeyPrefix(userID))
	}
}

func (s *PaymentService) publishCompleted(ctx context.Context, userID int64, gigIDs []int64, split core.PaymentSplit, now time.Time) {
	if s.events == nil {
		return
	}
	err := s.events.PublishGigCompleted(ctx, userID, gigIDs, core.Cents(split.TaxableIncome), now.Year())
	if err != nil {
		// Export freshness is best-effort; the ledger itself is consistent.
		slog.ErrorContext(ctx, "Failed to publish gig completed event",
			"user_id", userID,
			"error", err)
	}
}

func (s *PaymentService) publishSync(ctx context.Context, userID int64, year int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReportSync(ctx, userID, year); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report sync event",
			"user_id", userID,
			"error", err)
	}
}
