package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Eligibility is the outcome of the borrowing gate for one customer and
// tool group.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// ActiveLoanView is an ACTIVE loan joined with customer and tool names.
type ActiveLoanView struct {
	Loan
	CustomerName  string `json:"customer_name"`
	ToolGroupName string `json:"tool_group_name"`
	Overdue       bool   `json:"overdue"`
}

// ToolRanking counts LOAN movements for one tool group.
type ToolRanking struct {
	ToolGroupID   int32  `json:"tool_group_id"`
	ToolGroupName string `json:"tool_group_name"`
	Category      string `json:"category"`
	Total         int64  `json:"total"`
}

// CustomerDebtView annotates a customer that owes money.
type CustomerDebtView struct {
	CustomerID     int32           `json:"customer_id"`
	Name           string          `json:"name"`
	NationalID     string          `json:"national_id"`
	Email          string          `json:"email"`
	TotalDebt      decimal.Decimal `json:"total_debt"`
	HasOverdueLoan bool            `json:"has_overdue_loan"`
	// OldestDueDate is the due date of the oldest unpaid loan.
	OldestDueDate *time.Time `json:"oldest_due_date,omitempty"`
}

// GroupCount is a raw per-group aggregate as returned by storage.
type GroupCount struct {
	ToolGroupID int32
	Total       int64
}
