package http

import (
	"net/http"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/service"
)

type registerCustomerRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	NationalID string `json:"national_id" validate:"required,max=16"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Email      string `json:"email" validate:"required,max=254"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handlers) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req registerCustomerRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.engine.Customers.RegisterCustomer(r.Context(), service.RegisterCustomerInput{
		Name:       req.Name,
		NationalID: req.NationalID,
		Phone:      req.Phone,
		Email:      req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListCustomers accepts an optional ?status= filter.
func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	var status domain.CustomerStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := domain.ParseCustomerStatus(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status = s
	}
	customers, err := h.engine.Customers.ListCustomers(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.engine.Customers.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) ListCustomerLoans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	loans, err := h.engine.Loans.ListCustomerLoans(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// CheckEligibility answers whether the customer may borrow now, optionally
// for a given ?toolGroupId=.
func (h *Handlers) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	groupID, err := queryID(r, "toolGroupId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.engine.Customers.CheckEligibility(r.Context(), id, groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) ChangeCustomerStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req changeStatusRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := domain.ParseCustomerStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.engine.Customers.ChangeCustomerStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) PayCustomerDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.engine.Loans.PayCustomerDebt(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
