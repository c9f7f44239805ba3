package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigledger/internal/amqp"
	"gigledger/internal/core"
	"gigledger/internal/export/memory"
	"gigledger/internal/services"
)

// Minimal stores backing a real aggregation service.

type staticGigStore struct {
	gigs []core.GigRecord
}

func (s *staticGigStore) GetGig(context.Context, int64) (core.GigRecord, error) {
	return core.GigRecord{}, core.ErrNotFound
}
func (s *staticGigStore) GetGigsByUser(context.Context, int64, int, int) ([]core.GigRecord, int, error) {
	return s.gigs, len(s.gigs), nil
}
func (s *staticGigStore) GetGigsByDateRange(_ context.Context, userID int64, start, end time.Time) ([]core.GigRecord, error) {
	var out []core.GigRecord
	for _, g := range s.gigs {
		if g.UserID == userID && !g.Date.Before(start) && g.Date.Before(end) {
			out = append(out, g)
		}
	}
	return out, nil
}
func (s *staticGigStore) GetGigsByGroupID(context.Context, int64, string) ([]core.GigRecord, error) {
	return nil, nil
}
func (s *staticGigStore) GetOpenGigs(context.Context, int64) ([]core.GigRecord, error) {
	return nil, nil
}
func (s *staticGigStore) CreateGig(_ context.Context, g core.GigRecord) (core.GigRecord, error) {
	return g, nil
}
func (s *staticGigStore) UpdateGig(context.Context, core.GigRecord) error { return nil }
func (s *staticGigStore) DeleteGig(context.Context, int64) error          { return nil }

type emptyExpenseStore struct{}

func (emptyExpenseStore) CreateExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	return e, nil
}
func (emptyExpenseStore) GetExpensesByDateRange(context.Context, int64, time.Time, time.Time) ([]core.ExpenseRecord, error) {
	return nil, nil
}
func (emptyExpenseStore) DeleteExpense(context.Context, int64, int64) error { return nil }

type fakePromoter struct {
	promoted int64
	calls    int
}

func (f *fakePromoter) PromoteOverdueGigs(context.Context, time.Time) (int64, error) {
	f.calls++
	return f.promoted, nil
}

func newWorkerAggregator(gigs ...core.GigRecord) *services.AggregationService {
	return services.NewAggregationService(&staticGigStore{gigs: gigs}, emptyExpenseStore{}, nil,
		nil, decimal.RequireFromString("0.67"), decimal.RequireFromString("20"))
}

func completedGig(userID int64, date time.Time, total string) core.GigRecord {
	amount := decimal.RequireFromString(total)
	return core.GigRecord{
		UserID:        userID,
		EventName:     "Wedding",
		Date:          date,
		ActualPay:     amount,
		TotalReceived: &amount,
		Status:        core.StatusCompleted,
	}
}

func TestHandleEventExportsAnnualReport(t *testing.T) {
	writer := memory.NewWriter()
	w := NewReportWorker(newWorkerAggregator(
		completedGig(7, core.NewDate(2026, 3, 10), "400"),
		completedGig(7, core.NewDate(2026, 9, 1), "100"),
	), writer, nil)

	err := w.HandleEvent(context.Background(), amqp.NewGigCompletedEvent(7, []int64{1}, 40000, 2026))
	require.NoError(t, err)

	reports := writer.Reports(7)
	require.Len(t, reports, 1)
	assert.Equal(t, 2026, reports[0].Period.Year)
	assert.Equal(t, core.PeriodAnnual, reports[0].Period.Type)
	assert.True(t, reports[0].GrossIncome.Equal(decimal.RequireFromString("500")),
		"gross = %s", reports[0].GrossIncome)
}

func TestHandleEventSyncType(t *testing.T) {
	writer := memory.NewWriter()
	w := NewReportWorker(newWorkerAggregator(), writer, nil)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewReportSyncEvent(7, 2025)))
	require.Len(t, writer.Reports(7), 1)
	assert.Equal(t, 2025, writer.Reports(7)[0].Period.Year)
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	writer := memory.NewWriter()
	w := NewReportWorker(newWorkerAggregator(), writer, nil)

	err := w.HandleEvent(context.Background(), &amqp.Event{Type: "mystery", UserID: 7})
	require.NoError(t, err)
	assert.Empty(t, writer.Reports(7))
}

func TestHandleEventNilWriterSkips(t *testing.T) {
	w := NewReportWorker(newWorkerAggregator(), nil, nil)
	err := w.HandleEvent(context.Background(), amqp.NewReportSyncEvent(7, 2026))
	require.NoError(t, err)
}

func TestSweepStatuses(t *testing.T) {
	p := &fakePromoter{promoted: 3}
	w := NewReportWorker(newWorkerAggregator(), nil, p)

	require.NoError(t, w.SweepStatuses(context.Background()))
	assert.Equal(t, 1, p.calls)

	// Nil promoter is a no-op.
	w = NewReportWorker(newWorkerAggregator(), nil, nil)
	require.NoError(t, w.SweepStatuses(context.Background()))
}
