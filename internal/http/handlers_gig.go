package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

const defaultPageSize = 50

type createGigRequest struct {
	EventName     string           `json:"event_name"`
	ClientName    string           `json:"client_name"`
	GigType       string           `json:"gig_type"`
	Date          string           `json:"date"`
	EndDate       string           `json:"end_date"`
	ExpectedPay   decimal.Decimal  `json:"expected_pay"`
	Tips          decimal.Decimal  `json:"tips"`
	Mileage       decimal.Decimal  `json:"mileage"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
}

type updateGigRequest struct {
	EventName     *string          `json:"event_name"`
	ClientName    *string          `json:"client_name"`
	GigType       *string          `json:"gig_type"`
	Date          *string          `json:"date"`
	ExpectedPay   *decimal.Decimal `json:"expected_pay"`
	Tips          *decimal.Decimal `json:"tips"`
	Mileage       *decimal.Decimal `json:"mileage"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
	Status        *string          `json:"status"`
}

type createExpenseRequest struct {
	Date             string          `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Merchant         string          `json:"merchant"`
	Purpose          string          `json:"purpose"`
	Category         string          `json:"category"`
	ReimbursedAmount decimal.Decimal `json:"reimbursed_amount"`
}

// handleGigs serves the collection: GET lists grouped gigs, POST books a gig
// (multi-day when end_date is set).
func (s *Server) handleGigs(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit, err := queryInt(r, "limit", defaultPageSize)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		page, err := s.gigs.ListGigs(r.Context(), uid, limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"groups": toGroupViews(page.Groups),
			"total":  page.Total,
		})

	case http.MethodPost:
		var req createGigRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
		start, err := parseDate(req.Date)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		end := start
		if req.EndDate != "" {
			if end, err = parseDate(req.EndDate); err != nil {
				writeBadRequest(w, err)
				return
			}
		}
		created, err := s.gigs.CreateBooking(r.Context(), core.GigRecord{
			UserID:        uid,
			EventName:     req.EventName,
			ClientName:    req.ClientName,
			GigType:       req.GigType,
			ExpectedPay:   req.ExpectedPay,
			Tips:          req.Tips,
			Mileage:       req.Mileage,
			TaxPercentage: req.TaxPercentage,
		}, start, end)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"gigs": toGigViews(created)})

	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

// handleGigByID routes /api/gigs/{id} and its subresources:
//
//	GET/PUT/DELETE /api/gigs/{id}
//	POST           /api/gigs/{id}/payment
//	PUT            /api/gigs/{id}/dates
//	DELETE         /api/gigs/{id}/group
func (s *Server) handleGigByID(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/gigs/")
	idPart, sub, _ := strings.Cut(rest, "/")
	gigID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || gigID <= 0 {
		http.NotFound(w, r)
		return
	}

	switch sub {
	case "":
		s.serveGig(w, r, uid, gigID)
	case "payment":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		s.servePayment(w, r, uid, gigID)
	case "dates":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, "PUT")
			return
		}
		s.serveDateRange(w, r, uid, gigID)
	case "group":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, "DELETE")
			return
		}
		if err := s.gigs.DeleteGroup(r.Context(), uid, gigID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveGig(w http.ResponseWriter, r *http.Request, uid, gigID int64) {
	switch r.Method {
	case http.MethodGet:
		g, err := s.gigs.GetGig(r.Context(), uid, gigID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGigView(g))

	case http.MethodPut:
		var req updateGigRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
		g, err := s.gigs.GetGig(r.Context(), uid, gigID)
		if err != nil {
			writeError(w, err)
			return
		}
		if req.EventName != nil {
			g.EventName = *req.EventName
		}
		if req.ClientName != nil {
			g.ClientName = *req.ClientName
		}
		if req.GigType != nil {
			g.GigType = *req.GigType
		}
		if req.Date != nil {
			d, err := parseDate(*req.Date)
			if err != nil {
				writeBadRequest(w, err)
				return
			}
			g.Date = d
		}
		if req.ExpectedPay != nil {
			g.ExpectedPay = *req.ExpectedPay
		}
		if req.Tips != nil {
			g.Tips = *req.Tips
		}
		if req.Mileage != nil {
			g.Mileage = *req.Mileage
		}
		if req.TaxPercentage != nil {
			g.TaxPercentage = req.TaxPercentage
		}
		if req.Status != nil {
			g.Status = core.GigStatus(*req.Status)
		}
		if err := s.gigs.UpdateGig(r.Context(), uid, g); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGigView(g))

	case http.MethodDelete:
		if err := s.gigs.DeleteGig(r.Context(), uid, gigID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, "GET", "PUT", "DELETE")
	}
}

// handleExpenses serves POST /api/expenses for standalone expenses.
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	uid, err := userID(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	saved, err := s.gigs.CreateExpense(r.Context(), core.ExpenseRecord{
		UserID:           uid,
		Date:             date,
		Amount:           req.Amount,
		Merchant:         req.Merchant,
		Purpose:          req.Purpose,
		Category:         req.Category,
		ReimbursedAmount: req.ReimbursedAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseView(saved))
}

// handleExpenseByID serves DELETE /api/expenses/{id}.
func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}
	uid, err := userID(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	idPart := strings.TrimPrefix(r.URL.Path, "/api/expenses/")
	expenseID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || expenseID <= 0 {
		http.NotFound(w, r)
		return
	}
	if err := s.gigs.DeleteExpense(r.Context(), uid, expenseID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
