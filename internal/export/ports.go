package export

import (
	"context"

	"gigledger/internal/core"
)

// ReportWriter is the outbound port for exportable tax reports. The worker
// pushes recomputed period aggregates through it whenever a gig event lands.
type ReportWriter interface {
	// AppendReport writes one period summary row for the user.
	AppendReport(ctx context.Context, userID int64, agg core.PeriodAggregate) error
}
