// Package http is the thin JSON surface the calendar, dashboard, and report
// consumers call. Routing stays deliberately plain: the engine lives in the
// services packages, not here.
package http

import (
	"net/http"

	applog "gigledger/internal/log"
	"gigledger/internal/services"
)

type Server struct {
	*http.Server
	gigs       *services.GigService
	payments   *services.PaymentService
	aggregates *services.AggregationService
	logger     *applog.Logger
}

func NewServer(addr string, gigs *services.GigService, payments *services.PaymentService,
	aggregates *services.AggregationService, logger *applog.Logger) *Server {
	s := &Server{
		gigs:       gigs,
		payments:   payments,
		aggregates: aggregates,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/gigs", s.handleGigs)
	mux.HandleFunc("/api/gigs/", s.handleGigByID)
	mux.HandleFunc("/api/expenses", s.handleExpenses)
	mux.HandleFunc("/api/expenses/", s.handleExpenseByID)
	mux.HandleFunc("/api/calendar", s.handleCalendar)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/report", s.handleReport)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: applog.Middleware(logger)(mux),
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
