package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementRegistry MovementType = "REGISTRY"
	MovementLoan     MovementType = "LOAN"
	MovementReturn   MovementType = "RETURN"
	MovementRepair   MovementType = "REPAIR"
	MovementRetire   MovementType = "RETIRE"
	MovementReEntry  MovementType = "RE_ENTRY"
)

func ParseMovementType(s string) (MovementType, error) {
	switch MovementType(strings.ToUpper(strings.TrimSpace(s))) {
	case MovementRegistry:
		return MovementRegistry, nil
	case MovementLoan:
		return MovementLoan, nil
	case MovementReturn:
		return MovementReturn, nil
	case MovementRepair:
		return MovementRepair, nil
	case MovementRetire:
		return MovementRetire, nil
	case MovementReEntry:
		return MovementReEntry, nil
	}
	return "", Validation("type", "unknown movement type %q", s)
}

// KardexMovement is one immutable audit entry. Entries written by the same
// engine operation share an OperationID.
type KardexMovement struct {
	ID          int64        `json:"id"`
	OperationID uuid.UUID    `json:"operation_id"`
	Type        MovementType `json:"type"`
	OccurredAt  time.Time    `json:"occurred_at"`
	ToolGroupID *int32       `json:"tool_group_id,omitempty"`
	ToolUnitID  *int32       `json:"tool_unit_id,omitempty"`
	LoanID      *int32       `json:"loan_id,omitempty"`
	CustomerID  *int32       `json:"customer_id,omitempty"`
	Actor       string       `json:"actor"`
	Detail      string       `json:"detail"`
}

// KardexFilter narrows listKardex. Zero values mean "any".
type KardexFilter struct {
	Type        MovementType
	ToolGroupID int32
	ToolUnitID  int32
	CustomerID  int32
	LoanID      int32
	From        *time.Time
	To          *time.Time
}

// Matches applies the filter in memory.
func (f KardexFilter) Matches(m *KardexMovement) bool {
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.ToolGroupID != 0 && (m.ToolGroupID == nil || *m.ToolGroupID != f.ToolGroupID) {
		return false
	}
	if f.ToolUnitID != 0 && (m.ToolUnitID == nil || *m.ToolUnitID != f.ToolUnitID) {
		return false
	}
	if f.CustomerID != 0 && (m.CustomerID == nil || *m.CustomerID != f.CustomerID) {
		return false
	}
	if f.LoanID != 0 && (m.LoanID == nil || *m.LoanID != f.LoanID) {
		return false
	}
	if f.From != nil && m.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.OccurredAt.After(*f.To) {
		return false
	}
	return true
}

// Ref returns a pointer to id, or nil for the zero id.
func Ref(id int32) *int32 {
	if id == 0 {
		return nil
	}
	return &id
}
