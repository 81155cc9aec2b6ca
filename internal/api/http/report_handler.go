package http

import (
	"net/http"
	"time"

	"toolrent-backend/internal/domain"
)

func window(r *http.Request) (from, to time.Time, err error) {
	if from, err = queryTime(r, "from"); err != nil {
		return
	}
	to, err = queryTime(r, "to")
	return
}

func (h *Handlers) ActiveLoans(w http.ResponseWriter, r *http.Request) {
	from, to, err := window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	loans, err := h.engine.Reports.ActiveLoans(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handlers) TopTools(w http.ResponseWriter, r *http.Request) {
	from, to, err := window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ranking, err := h.engine.Reports.TopTools(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (h *Handlers) CustomersWithDebt(w http.ResponseWriter, r *http.Request) {
	views, err := h.engine.Reports.CustomersWithDebt(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) OverdueCustomers(w http.ResponseWriter, r *http.Request) {
	views, err := h.engine.Reports.OverdueCustomers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) PendingPayment(w http.ResponseWriter, r *http.Request) {
	loans, err := h.engine.Reports.PendingPayment(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// ListKardex filters by ?type, toolGroupId, unitId, customerId, loanId,
// from and to.
func (h *Handlers) ListKardex(w http.ResponseWriter, r *http.Request) {
	var (
		f   domain.KardexFilter
		err error
	)
	if raw := r.URL.Query().Get("type"); raw != "" {
		if f.Type, err = domain.ParseMovementType(raw); err != nil {
			writeError(w, r, err)
			return
		}
	}
	for name, dst := range map[string]*int32{
		"toolGroupId": &f.ToolGroupID,
		"unitId":      &f.ToolUnitID,
		"customerId":  &f.CustomerID,
		"loanId":      &f.LoanID,
	} {
		if *dst, err = queryID(r, name); err != nil {
			writeError(w, r, err)
			return
		}
	}
	from, to, err := window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !from.IsZero() {
		f.From = &from
	}
	if !to.IsZero() {
		f.To = &to
	}

	movements, err := h.engine.Kardex.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}
