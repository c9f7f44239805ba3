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

// GigListPage is one page of a user's gigs with grouping applied.
type GigListPage struct {
	Groups []core.GigGroup
	Total  int
}

// GigService orchestrates gig and expense CRUD around the store, the result
// cache, and the event stream.
type GigService struct {
	gigs     GigStore
	expenses ExpenseStore
	events   EventPublisher
	// inv covers every cache a mutation must drop, typically a
	// cache.MultiInvalidator over the aggregate and list caches.
	inv       cache.Invalidator
	listCache cache.Cache[GigListPage]
	now       func() time.Time
}

func NewGigService(gigs GigStore, expenses ExpenseStore, events EventPublisher,
	inv cache.Invalidator, listCache cache.Cache[GigListPage]) *GigService {
	return &GigService{
		gigs:      gigs,
		expenses:  expenses,
		events:    events,
		inv:       inv,
		listCache: listCache,
		now:       time.Now,
	}
}

// CreateGig books a new gig. Status defaults to upcoming.
func (s *GigService) CreateGig(ctx context.Context, g core.GigRecord) (core.GigRecord, error) {
	if g.Status == "" {
		g.Status = core.StatusUpcoming
	}
	if err := g.Validate(); err != nil {
		return core.GigRecord{}, err
	}

	saved, err := s.gigs.CreateGig(ctx, g)
	if err != nil {
		return core.GigRecord{}, fmt.Errorf("create gig: %w", err)
	}

	s.invalidate(g.UserID)
	s.publishSync(ctx, g.UserID, g.Date.Year())
	return saved, nil
}

// CreateBooking books a gig across a date range, one record per calendar day.
// Multi-day bookings share a generated group id so later edits and payments
// never depend on the name heuristic. Ranges longer than the recreate cap
// collapse to a single day-row.
func (s *GigService) CreateBooking(ctx context.Context, g core.GigRecord, start, end time.Time) ([]core.GigRecord, error) {
	if end.Before(start) {
		return nil, core.ErrInvalidDateRange
	}
	span := core.DayDiff(start, end) + 1
	if span > maxRecreateDays {
		slog.WarnContext(ctx, "Booking range exceeds cap, collapsing to single day",
			"days", span,
			"cap", maxRecreateDays)
		span = 1
	}

	if g.Status == "" {
		g.Status = core.StatusUpcoming
	}
	g.Date = start
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.MultiDayGroupID = ""
	if span > 1 {
		g.MultiDayGroupID = uuid.NewString()
	}

	var created []core.GigRecord
	var createdIDs []int64
	for day := 0; day < span; day++ {
		rec := g
		rec.ID = 0
		rec.Date = start.AddDate(0, 0, day)
		saved, err := s.gigs.CreateGig(ctx, rec)
		if err != nil {
			if len(created) > 0 {
				s.invalidate(g.UserID)
			}
			return created, &core.RecreateError{Created: createdIDs, Err: err}
		}
		created = append(created, saved)
		createdIDs = append(createdIDs, saved.ID)
	}

	s.invalidate(g.UserID)
	s.publishSync(ctx, g.UserID, start.Year())
	return created, nil
}

// ListGigs returns one page of the user's gigs, grouped, newest first.
// Past-dated upcoming gigs read as pending_payment.
func (s *GigService) ListGigs(ctx context.Context, userID int64, limit, offset int) (GigListPage, error) {
	key := listKey(userID, limit, offset)
	if s.listCache != nil {
		if page, ok := s.listCache.Get(key); ok {
			return page, nil
		}
	}

	records, total, err := s.gigs.GetGigsByUser(ctx, userID, limit, offset)
	if err != nil {
		return GigListPage{}, fmt.Errorf("list gigs: %w", err)
	}

	now := s.now()
	for i := range records {
		records[i].Status = records[i].EffectiveStatus(now)
	}

	page := GigListPage{Groups: grouping.Group(records), Total: total}
	if s.listCache != nil {
		s.listCache.Set(key, page)
	}
	return page, nil
}

// ListGigsByRange returns the user's gigs within [start, end), grouped. The
// calendar surface reads through this path.
func (s *GigService) ListGigsByRange(ctx context.Context, userID int64, start, end time.Time) ([]core.GigGroup, error) {
	records, err := s.gigs.GetGigsByDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list gigs by range: %w", err)
	}
	now := s.now()
	for i := range records {
		records[i].Status = records[i].EffectiveStatus(now)
	}
	return grouping.Group(records), nil
}

// GetGig returns one gig after an ownership check.
func (s *GigService) GetGig(ctx context.Context, userID, gigID int64) (core.GigRecord, error) {
	g, err := s.gigs.GetGig(ctx, gigID)
	if err != nil {
		return core.GigRecord{}, err
	}
	if g.UserID != userID {
		return core.GigRecord{}, core.ErrNotFound
	}
	return g, nil
}

// UpdateGig writes back a single record.
func (s *GigService) UpdateGig(ctx context.Context, userID int64, g core.GigRecord) error {
	if _, err := s.GetGig(ctx, userID, g.ID); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	g.UserID = userID
	if err := s.gigs.UpdateGig(ctx, g); err != nil {
		return fmt.Errorf("update gig: %w", err)
	}

	s.invalidate(userID)
	s.publishSync(ctx, userID, g.Date.Year())
	return nil
}

// DeleteGig removes a single day-record.
func (s *GigService) DeleteGig(ctx context.Context, userID, gigID int64) error {
	g, err := s.GetGig(ctx, userID, gigID)
	if err != nil {
		return err
	}
	if err := s.gigs.DeleteGig(ctx, gigID); err != nil {
		return fmt.Errorf("delete gig: %w", err)
	}

	s.invalidate(userID)
	s.publishSync(ctx, userID, g.Date.Year())
	return nil
}

// DeleteGroup removes every member of the target gig's group. Per-member
// deletes fan out concurrently; partial failure is reported, not rolled back.
func (s *GigService) DeleteGroup(ctx context.Context, userID, gigID int64) error {
	target, err := s.GetGig(ctx, userID, gigID)
	if err != nil {
		return err
	}
	members, err := groupMembers(ctx, s.gigs, target)
	if err != nil {
		return err
	}

	deleteErrs := make([]error, len(members))
	var g errgroup.Group
	for i, member := range members {
		g.Go(func() error {
			deleteErrs[i] = s.gigs.DeleteGig(ctx, member.ID)
			return nil
		})
	}
	_ = g.Wait()

	var succeededIDs []int64
	var failures []core.MemberFailure
	for i, err := range deleteErrs {
		if err != nil {
			failures = append(failures, core.MemberFailure{GigID: members[i].ID, Err: err})
			continue
		}
		succeededIDs = append(succeededIDs, members[i].ID)
	}

	if len(succeededIDs) > 0 {
		s.invalidate(userID)
		s.publishSync(ctx, userID, target.Date.Year())
	}
	if len(failures) > 0 {
		return &core.PartialUpdateError{Succeeded: succeededIDs, Failed: failures}
	}

	slog.InfoContext(ctx, "Deleted gig group",
		"user_id", userID,
		"gig_ids", succeededIDs)
	return nil
}

// CreateExpense records a standalone business expense.
func (s *GigService) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	saved, err := s.expenses.CreateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	s.invalidate(e.UserID)
	s.publishSync(ctx, e.UserID, e.Date.Year())
	return saved, nil
}

// DeleteExpense removes one of the caller's standalone expenses.
func (s *GigService) DeleteExpense(ctx context.Context, userID, expenseID int64) error {
	if err := s.expenses.DeleteExpense(ctx, userID, expenseID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate(userID)
	s.publishSync(ctx, userID, s.now().Year())
	return nil
}

func (s *GigService) invalidate(userID int64) {
	if s.inv != nil {
		s.inv.Invalidate(userKeyPrefix(userID))
	}
}

func (s *GigService) publishSync(ctx context.Context, userID int64, year int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReportSync(ctx, userID, year); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report sync event",
			"user_id", userID,
			"error", err)
	}
}

func listKey(userID int64, limit, offset int) string {
	return fmt.Sprintf("%sgigs:%d:%d", userKeyPrefix(userID), limit, offset)
}
