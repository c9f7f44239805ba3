package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
	"gigledger/internal/grouping"
)

// Ports for the record store and outbound collaborators. The SQLite
// repository satisfies all three store interfaces; tests substitute fakes.
type (
	GigStore interface {
		GetGig(ctx context.Context, id int64) (core.GigRecord, error)
		GetGigsByUser(ctx context.Context, userID int64, limit, offset int) ([]core.GigRecord, int, error)
		GetGigsByDateRange(ctx context.Context, userID int64, start, end time.Time) ([]core.GigRecord, error)
		GetGigsByGroupID(ctx context.Context, userID int64, groupID string) ([]core.GigRecord, error)
		GetOpenGigs(ctx context.Context, userID int64) ([]core.GigRecord, error)
		CreateGig(ctx context.Context, g core.GigRecord) (core.GigRecord, error)
		UpdateGig(ctx context.Context, g core.GigRecord) error
		DeleteGig(ctx context.Context, id int64) error
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error)
		GetExpensesByDateRange(ctx context.Context, userID int64, start, end time.Time) ([]core.ExpenseRecord, error)
		// DeleteExpense removes the expense only when it belongs to userID;
		// someone else's row reads as ErrNotFound.
		DeleteExpense(ctx context.Context, userID, id int64) error
	}

	SettingsStore interface {
		// DefaultTaxPercentage returns the user's default rate; false when
		// the user never configured one.
		DefaultTaxPercentage(ctx context.Context, userID int64) (decimal.Decimal, bool, error)
	}

	// EventPublisher mirrors the AMQP client. Services treat it as optional
	// and best-effort: a publish failure never fails the request.
	EventPublisher interface {
		PublishGigCompleted(ctx context.Context, userID int64, gigIDs []int64, taxableIncomeCents int64, year int) error
		PublishReportSync(ctx context.Context, userID int64, year int) error
	}
)

// userKeyPrefix scopes cache keys to one user; every mutation path
// invalidates by this prefix.
func userKeyPrefix(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}

// groupMembers resolves the full membership of the target's group, completed
// day-rows included. The payment transition narrows its pool to open gigs;
// date-range edits and group deletes must touch every row of the group or
// they leave completed siblings behind as stale day-rows.
func groupMembers(ctx context.Context, gigs GigStore, target core.GigRecord) ([]core.GigRecord, error) {
	var pool []core.GigRecord
	var err error
	if target.MultiDayGroupID != "" {
		pool, err = gigs.GetGigsByGroupID(ctx, target.UserID, target.MultiDayGroupID)
	} else {
		// A heuristic group never spans more than MaxSpanDays, so a window
		// around the target covers every possible member.
		start := target.Date.AddDate(0, 0, -grouping.MaxSpanDays)
		end := target.Date.AddDate(0, 0, grouping.MaxSpanDays+1)
		pool, err = gigs.GetGigsByDateRange(ctx, target.UserID, start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve gig group: %w", err)
	}
	return grouping.Resolve(target, pool), nil
}
