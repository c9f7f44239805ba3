package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gigledger/internal/amqp"
	"gigledger/internal/core"
	"gigledger/internal/export"
	"gigledger/internal/services"
)

// StatusPromoter persists the upcoming -> pending_payment promotion for
// past-dated gigs.
type StatusPromoter interface {
	PromoteOverdueGigs(ctx context.Context, now time.Time) (int64, error)
}

// ReportWorker consumes gig events and pushes recomputed annual summaries to
// the report writer. It also sweeps gig statuses on a timer so the persisted
// rows catch up with what read paths already derive.
type ReportWorker struct {
	aggregator *services.AggregationService
	writer     export.ReportWriter
	promoter   StatusPromoter
}

func NewReportWorker(aggregator *services.AggregationService, writer export.ReportWriter, promoter StatusPromoter) *ReportWorker {
	return &ReportWorker{
		aggregator: aggregator,
		writer:     writer,
		promoter:   promoter,
	}
}

// HandleEvent processes a single gig event from AMQP. Both event types end in
// the same place: a fresh annual aggregate for the user, appended to the
// report sheet.
func (w *ReportWorker) HandleEvent(ctx context.Context, event *amqp.Event) error {
	switch event.Type {
	case amqp.EventGigCompleted, amqp.EventReportSync:
		return w.exportAnnualReport(ctx, event.UserID, event.Year)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "type", event.Type)
		return nil
	}
}

func (w *ReportWorker) exportAnnualReport(ctx context.Context, userID int64, year int) error {
	if w.writer == nil {
		slog.WarnContext(ctx, "No report writer configured, skipping export",
			"user_id", userID)
		return nil
	}
	if year == 0 {
		year = time.Now().Year()
	}

	agg, err := w.aggregator.AggregatePeriod(ctx, userID, core.AnnualPeriod(year))
	if err != nil {
		return fmt.Errorf("aggregate annual period: %w", err)
	}

	if err := w.writer.AppendReport(ctx, userID, agg); err != nil {
		return fmt.Errorf("export annual report: %w", err)
	}

	slog.InfoContext(ctx, "Exported annual report",
		"user_id", userID,
		"year", year)
	return nil
}

// SweepStatuses promotes overdue upcoming gigs to pending_payment.
func (w *ReportWorker) SweepStatuses(ctx context.Context) error {
	if w.promoter == nil {
		return nil
	}
	count, err := w.promoter.PromoteOverdueGigs(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("status sweep: %w", err)
	}
	if count > 0 {
		slog.InfoContext(ctx, "Status sweep complete", "promoted", count)
	}
	return nil
}
