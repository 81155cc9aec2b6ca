package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"
)

func ParseLoanStatus(s string) (LoanStatus, error) {
	switch LoanStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case LoanStatusActive:
		return LoanStatusActive, nil
	case LoanStatusReturned:
		return LoanStatusReturned, nil
	}
	return "", Validation("status", "unknown loan status %q", s)
}

type Loan struct {
	ID          int32      `json:"id"`
	CustomerID  int32      `json:"customer_id"`
	ToolUnitID  int32      `json:"tool_unit_id"`
	ToolGroupID int32      `json:"tool_group_id"`
	LoanDate    time.Time  `json:"loan_date"`
	DueDate     time.Time  `json:"due_date"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	Status      LoanStatus `json:"status"`
	// TotalCost is the rental price snapshot taken at creation time.
	TotalCost    decimal.Decimal `json:"total_cost"`
	FineAmount   decimal.Decimal `json:"fine_amount"`
	DamageCharge decimal.Decimal `json:"damage_charge"`
	// SettledAmount is what has already been paid against this loan. It is
	// non-zero on an unpaid loan only after a charge was added post-payment.
	SettledAmount decimal.Decimal `json:"settled_amount"`
	Paid          bool            `json:"paid"`
	CreatedOn     time.Time       `json:"created_on"`
	UpdatedOn     time.Time       `json:"updated_on"`
}

// Charges is fine plus damage.
func (l *Loan) Charges() decimal.Decimal {
	return l.FineAmount.Add(l.DamageCharge)
}

// Outstanding is what the customer still owes on this loan.
func (l *Loan) Outstanding() decimal.Decimal {
	if l.Status != LoanStatusReturned || l.Paid {
		return decimal.Zero
	}
	return l.Charges().Sub(l.SettledAmount)
}

func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanStatusActive && l.DueDate.Before(now)
}

// DaysOverdue is the number of started days between due and returned,
// never negative. Returning exactly at the due instant costs nothing.
func DaysOverdue(due, returned time.Time) int64 {
	late := returned.Sub(due)
	if late <= 0 {
		return 0
	}
	return int64(math.Ceil(late.Hours() / 24))
}

// LateFine is DaysOverdue times the daily fine rate.
func LateFine(due, returned time.Time, dailyFineRate decimal.Decimal) decimal.Decimal {
	return dailyFineRate.Mul(decimal.NewFromInt(DaysOverdue(due, returned)))
}

// RentalCost charges at least one day, rounding partial days up.
func RentalCost(loanDate, dueDate time.Time, dailyRentalRate decimal.Decimal) decimal.Decimal {
	days := DaysOverdue(loanDate, dueDate)
	if days < 1 {
		days = 1
	}
	return dailyRentalRate.Mul(decimal.NewFromInt(days))
}
