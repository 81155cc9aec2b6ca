package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ToolStatus string

const (
	ToolStatusAvailable ToolStatus = "AVAILABLE"
	ToolStatusLoaned    ToolStatus = "LOANED"
	ToolStatusInRepair  ToolStatus = "IN_REPAIR"
	ToolStatusRetired   ToolStatus = "RETIRED"
)

// ParseToolStatus accepts only the canonical spellings. Boundary layers that
// receive legacy spellings must translate before calling in.
func ParseToolStatus(s string) (ToolStatus, error) {
	switch ToolStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case ToolStatusAvailable:
		return ToolStatusAvailable, nil
	case ToolStatusLoaned:
		return ToolStatusLoaned, nil
	case ToolStatusInRepair:
		return ToolStatusInRepair, nil
	case ToolStatusRetired:
		return ToolStatusRetired, nil
	}
	return "", Validation("status", "unknown tool status %q", s)
}

// ReleaseOutcome is how a loaned unit leaves the LOANED state.
type ReleaseOutcome string

const (
	ReleaseNormal ReleaseOutcome = "NORMAL"
	ReleaseRepair ReleaseOutcome = "REPAIR"
	ReleaseRetire ReleaseOutcome = "RETIRE"
)

// Target is the unit status a release outcome leads to.
func (o ReleaseOutcome) Target() ToolStatus {
	switch o {
	case ReleaseRepair:
		return ToolStatusInRepair
	case ReleaseRetire:
		return ToolStatusRetired
	default:
		return ToolStatusAvailable
	}
}

// RepairResolution is the decision taken on a unit sitting IN_REPAIR.
type RepairResolution string

const (
	RepairResolutionAvailable RepairResolution = "AVAILABLE"
	RepairResolutionRetire    RepairResolution = "RETIRE"
)

func ParseRepairResolution(s string) (RepairResolution, error) {
	switch RepairResolution(strings.ToUpper(strings.TrimSpace(s))) {
	case RepairResolutionAvailable:
		return RepairResolutionAvailable, nil
	case RepairResolutionRetire:
		return RepairResolutionRetire, nil
	}
	return "", Validation("outcome", "unknown repair resolution %q", s)
}

// manualTransitions are the status changes an operator may request directly.
// LOANED is reachable only through the loan ledger.
var manualTransitions = map[ToolStatus][]ToolStatus{
	ToolStatusAvailable: {ToolStatusInRepair, ToolStatusRetired},
	ToolStatusInRepair:  {ToolStatusAvailable, ToolStatusRetired},
}

// CanTransition reports whether an operator may move a unit from one status
// to another.
func CanTransition(from, to ToolStatus) bool {
	for _, t := range manualTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

type ToolGroup struct {
	ID               int32           `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	DailyRentalRate  decimal.Decimal `json:"daily_rental_rate"`
	DailyFineRate    decimal.Decimal `json:"daily_fine_rate"`
	ReplacementValue decimal.Decimal `json:"replacement_value"`
	CreatedOn        time.Time       `json:"created_on"`
	UpdatedOn        time.Time       `json:"updated_on"`
}

// Validate checks catalog invariants: names set, rates strictly positive,
// replacement value not negative.
func (g *ToolGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return Validation("name", "name is required")
	}
	if strings.TrimSpace(g.Category) == "" {
		return Validation("category", "category is required")
	}
	if !g.DailyRentalRate.IsPositive() {
		return Validation("daily_rental_rate", "daily rental rate must be greater than 0")
	}
	if !g.DailyFineRate.IsPositive() {
		return Validation("daily_fine_rate", "daily fine rate must be greater than 0")
	}
	if g.ReplacementValue.IsNegative() {
		return Validation("replacement_value", "replacement value cannot be negative")
	}
	return nil
}

type ToolUnit struct {
	ID          int32      `json:"id"`
	ToolGroupID int32      `json:"tool_group_id"`
	Status      ToolStatus `json:"status"`
	CreatedOn   time.Time  `json:"created_on"`
	UpdatedOn   time.Time  `json:"updated_on"`
}

// ToolGroupStock is a catalog entry with its unit counts per status.
type ToolGroupStock struct {
	ToolGroup
	Available int32 `json:"available"`
	Loaned    int32 `json:"loaned"`
	InRepair  int32 `json:"in_repair"`
	Retired   int32 `json:"retired"`
}
