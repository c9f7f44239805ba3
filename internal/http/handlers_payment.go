package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

type lineItemRequest struct {
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	ReimbursedAmount decimal.Decimal `json:"reimbursed_amount"`
}

type paymentRequest struct {
	TotalReceived     decimal.Decimal   `json:"total_received"`
	ParkingSpent      decimal.Decimal   `json:"parking_spent"`
	ParkingReimbursed decimal.Decimal   `json:"parking_reimbursed"`
	OtherExpenses     []lineItemRequest `json:"other_expenses"`
	OtherReimbursed   decimal.Decimal   `json:"other_reimbursed"`
	Mileage           decimal.Decimal   `json:"mileage"`
	TaxPercentage     *decimal.Decimal  `json:"tax_percentage"`
	PaymentMethod     string            `json:"payment_method"`
}

type dateRangeRequest struct {
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	EventName     *string          `json:"event_name"`
	ClientName    *string          `json:"client_name"`
	GigType       *string          `json:"gig_type"`
	ExpectedPay   *decimal.Decimal `json:"expected_pay"`
	Tips          *decimal.Decimal `json:"tips"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
	Mileage       *decimal.Decimal `json:"mileage"`
}

// servePayment handles POST /api/gigs/{id}/payment: the "got paid" transition
// for the gig and every other member of its group.
func (s *Server) servePayment(w http.ResponseWriter, r *http.Request, uid, gigID int64) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	payload := core.PaymentPayload{
		TotalReceived:     req.TotalReceived,
		ParkingSpent:      req.ParkingSpent,
		ParkingReimbursed: req.ParkingReimbursed,
		OtherReimbursed:   req.OtherReimbursed,
		Mileage:           req.Mileage,
		TaxPercentage:     req.TaxPercentage,
		PaymentMethod:     req.PaymentMethod,
	}
	for _, item := range req.OtherExpenses {
		payload.OtherItems = append(payload.OtherItems, core.ExpenseLineItem{
			Description:      item.Description,
			Amount:           item.Amount,
			ReimbursedAmount: item.ReimbursedAmount,
		})
	}

	updated, err := s.payments.ProcessPayment(r.Context(), uid, gigID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	split := payload.Split()
	writeJSON(w, http.StatusOK, map[string]any{
		"gigs":                 toGigViews(updated),
		"taxable_income":       split.TaxableIncome,
		"unreimbursed_parking": split.UnreimbursedParking,
		"unreimbursed_other":   split.UnreimbursedOther,
	})
}

// serveDateRange handles PUT /api/gigs/{id}/dates: patching the group in
// place when the range is unchanged, delete-and-recreate otherwise.
func (s *Server) serveDateRange(w http.ResponseWriter, r *http.Request, uid, gigID int64) {
	var req dateRangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	patch := core.GigPatch{
		EventName:     req.EventName,
		ClientName:    req.ClientName,
		GigType:       req.GigType,
		ExpectedPay:   req.ExpectedPay,
		Tips:          req.Tips,
		TaxPercentage: req.TaxPercentage,
		Mileage:       req.Mileage,
	}

	records, err := s.payments.UpdateGroupDateRange(r.Context(), uid, gigID, start, end, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gigs": toGigViews(records)})
}
