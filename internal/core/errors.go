package core

import "fmt"

// MemberFailure records a single failed group-member update.
type MemberFailure struct {
	GigID int64
	Err   error
}

// PartialUpdateError reports a multi-row update where some group members were
// written and others were not. The engine does not roll back; callers decide
// whether to retry or alert the user.
type PartialUpdateError struct {
	Succeeded []int64
	Failed    []MemberFailure
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("partial group update: %d of %d members updated",
		len(e.Succeeded), len(e.Succeeded)+len(e.Failed))
}

// RecreateError reports a date-range edit that deleted the old rows but could
// not insert the full replacement set. Created lists the rows that did land.
type RecreateError struct {
	Created []int64
	Err     error
}

func (e *RecreateError) Error() string {
	return fmt.Sprintf("date range recreate failed after %d rows: %v", len(e.Created), e.Err)
}

func (e *RecreateError) Unwrap() error { return e.Err }
