package http

import (
	"net/http"
	"time"

	"gigledger/internal/core"
)

// periodFromQuery builds the requested window from period/year/month/quarter
// query parameters, defaulting to the current month.
func periodFromQuery(r *http.Request, now time.Time) (core.Period, error) {
	q := r.URL.Query()

	ptype := core.PeriodType(q.Get("period"))
	if ptype == "" {
		ptype = core.PeriodMonthly
	}
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		return core.Period{}, err
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		return core.Period{}, err
	}
	quarter, err := queryInt(r, "quarter", quarterOf(now.Month()))
	if err != nil {
		return core.Period{}, err
	}
	return core.NewPeriod(ptype, year, month, quarter)
}

// quarterOf maps a month to its estimated-tax quarter (Q2 is two months, Q4
// is four).
func quarterOf(m time.Month) int {
	switch {
	case m < time.April:
		return 1
	case m < time.June:
		return 2
	case m < time.September:
		return 3
	default:
		return 4
	}
}

// handleCalendar serves GET /api/calendar: the month's grouped gigs next to
// its aggregate, so the calendar shows bookings and totals from one response.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	uid, err := userID(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	now := time.Now()
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	period, err := core.MonthlyPeriod(year, month)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	groups, err := s.gigs.ListGigsByRange(r.Context(), uid, period.Start, period.End)
	if err != nil {
		writeError(w, err)
		return
	}
	agg, err := s.aggregates.AggregatePeriod(r.Context(), uid, period)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"groups":  toGroupViews(groups),
		"summary": toAggregateView(agg),
	})
}

// handleDashboard serves GET /api/dashboard: the aggregate for the requested
// window, defaulting to the current month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	uid, err := userID(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	period, err := periodFromQuery(r, time.Now())
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	agg, err := s.aggregates.AggregatePeriod(r.Context(), uid, period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAggregateView(agg))
}

// handleReport serves GET /api/report: the same aggregate plus the itemized
// expense rows backing it.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	uid, err := userID(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	period, err := periodFromQuery(r, time.Now())
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	agg, err := s.aggregates.AggregatePeriod(r.Context(), uid, period)
	if err != nil {
		writeError(w, err)
		return
	}
	expenses, err := s.aggregates.DeriveExpenses(r.Context(), uid, period)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]expenseView, len(expenses))
	for i, e := range expenses {
		views[i] = toExpenseView(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":  toAggregateView(agg),
		"expenses": views,
	})
}
