package http

import (
	"net/http"
	"time"

	"toolrent-backend/internal/service"

	"github.com/shopspring/decimal"
)

type registerLoanRequest struct {
	ToolGroupID int32     `json:"tool_group_id" validate:"required,gt=0"`
	CustomerID  int32     `json:"customer_id" validate:"required,gt=0"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

type returnLoanRequest struct {
	DamageCharge *decimal.Decimal `json:"damage_charge"`
	Irreparable  bool             `json:"irreparable"`
}

func (h *Handlers) RegisterLoan(w http.ResponseWriter, r *http.Request) {
	var req registerLoanRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.engine.Loans.RegisterLoan(r.Context(), service.RegisterLoanInput{
		ToolGroupID: req.ToolGroupID,
		CustomerID:  req.CustomerID,
		DueDate:     req.DueDate.UTC(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handlers) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.engine.Loans.GetLoan(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ReturnLoan takes an optional body; an empty one is an undamaged return.
func (h *Handlers) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnLoanRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	l, err := h.engine.Loans.ReturnLoan(r.Context(), service.ReturnLoanInput{
		LoanID:       id,
		DamageCharge: amount(req.DamageCharge),
		Irreparable:  req.Irreparable,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) PayLoanDebts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.engine.Loans.PayLoanDebts(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
