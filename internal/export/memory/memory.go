// Package memory is an in-memory ReportWriter used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"gigledger/internal/core"
	"gigledger/internal/export"
)

type Writer struct {
	mu      sync.Mutex
	reports map[int64][]core.PeriodAggregate
}

var _ export.ReportWriter = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{reports: make(map[int64][]core.PeriodAggregate)}
}

func (w *Writer) AppendReport(_ context.Context, userID int64, agg core.PeriodAggregate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports[userID] = append(w.reports[userID], agg)
	return nil
}

// Reports returns the rows appended for a user, oldest first.
func (w *Writer) Reports(userID int64) []core.PeriodAggregate {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.PeriodAggregate, len(w.reports[userID]))
	copy(out, w.reports[userID])
	return out
}
