package http

import (
	"net/http"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/service"

	"github.com/shopspring/decimal"
)

// Amounts are accepted as JSON numbers or decimal strings.
type registerToolGroupRequest struct {
	Name             string           `json:"name" validate:"required,max=120"`
	Category         string           `json:"category" validate:"required,max=80"`
	DailyRentalRate  *decimal.Decimal `json:"daily_rental_rate" validate:"required"`
	DailyFineRate    *decimal.Decimal `json:"daily_fine_rate"`
	ReplacementValue *decimal.Decimal `json:"replacement_value"`
	Stock            int              `json:"stock"`
}

type tariffRequest struct {
	DailyRentalRate *decimal.Decimal `json:"daily_rental_rate" validate:"required"`
	DailyFineRate   *decimal.Decimal `json:"daily_fine_rate" validate:"required"`
}

type replacementValueRequest struct {
	ReplacementValue *decimal.Decimal `json:"replacement_value" validate:"required"`
}

type provisionUnitsRequest struct {
	Count int `json:"count" validate:"required"`
}

type unitStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type repairResolutionRequest struct {
	Outcome          string           `json:"outcome" validate:"required"`
	AdditionalCharge *decimal.Decimal `json:"additional_charge"`
}

func amount(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func (h *Handlers) RegisterToolGroup(w http.ResponseWriter, r *http.Request) {
	var req registerToolGroupRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.engine.Registry.RegisterToolGroup(r.Context(), service.RegisterToolGroupInput{
		Name:             req.Name,
		Category:         req.Category,
		DailyRentalRate:  amount(req.DailyRentalRate),
		DailyFineRate:    amount(req.DailyFineRate),
		ReplacementValue: amount(req.ReplacementValue),
		Stock:            req.Stock,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *Handlers) ListToolGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.engine.Registry.ListToolGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handlers) GetToolGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.engine.Registry.GetToolGroup(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) ListUnits(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	units, err := h.engine.Registry.ListUnits(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (h *Handlers) ProvisionUnits(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req provisionUnitsRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	units, err := h.engine.Registry.ProvisionUnits(r.Context(), id, req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, units)
}

func (h *Handlers) UpdateTariff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req tariffRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.engine.Registry.UpdateTariff(r.Context(), id, *req.DailyRentalRate, *req.DailyFineRate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) UpdateReplacementValue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req replacementValueRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.engine.Registry.UpdateReplacementValue(r.Context(), id, *req.ReplacementValue)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) ChangeUnitStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req unitStatusRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	target, err := domain.ParseToolStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.engine.Registry.ChangeStatus(r.Context(), id, target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) ResolveRepair(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req repairResolutionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	outcome, err := domain.ParseRepairResolution(req.Outcome)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.engine.Loans.ResolveRepair(r.Context(), service.ResolveRepairInput{
		UnitID:           id,
		Outcome:          outcome,
		AdditionalCharge: amount(req.AdditionalCharge),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
