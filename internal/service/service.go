package service

import (
	"context"
	"time"

	"toolrent-backend/internal/config"
	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

// Methods taking a tx run inside a transaction opened by the caller and
// are how engine components cooperate on one atomic operation. Every other
// method opens its own transaction.

type ToolUnitRegistry interface {
	RegisterToolGroup(ctx context.Context, in RegisterToolGroupInput) (*domain.ToolGroupStock, error)
	UpdateTariff(ctx context.Context, toolGroupID int32, dailyRentalRate, dailyFineRate decimal.Decimal) (*domain.ToolGroup, error)
	UpdateReplacementValue(ctx context.Context, toolGroupID int32, value decimal.Decimal) (*domain.ToolGroup, error)
	ProvisionUnits(ctx context.Context, toolGroupID int32, count int) ([]domain.ToolUnit, error)
	ChangeStatus(ctx context.Context, unitID int32, target domain.ToolStatus) (*domain.ToolUnit, error)

	GetToolGroup(ctx context.Context, id int32) (*domain.ToolGroupStock, error)
	ListToolGroups(ctx context.Context) ([]domain.ToolGroupStock, error)
	ListUnits(ctx context.Context, toolGroupID int32) ([]domain.ToolUnit, error)

	ReserveUnit(ctx context.Context, tx repository.Repositories, toolGroupID int32) (*domain.ToolUnit, error)
	ReleaseUnit(ctx context.Context, tx repository.Repositories, unitID int32, outcome domain.ReleaseOutcome) (*domain.ToolUnit, error)
	Transition(ctx context.Context, tx repository.Repositories, unitID int32, target domain.ToolStatus, op Operation) (*domain.ToolUnit, error)
}

type CustomerAccount interface {
	RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (*domain.Customer, error)
	ChangeCustomerStatus(ctx context.Context, customerID int32, target domain.CustomerStatus) (*domain.Customer, error)
	CheckEligibility(ctx context.Context, customerID, toolGroupID int32) (*domain.Eligibility, error)
	GetCustomer(ctx context.Context, id int32) (*domain.Customer, error)
	ListCustomers(ctx context.Context, status domain.CustomerStatus) ([]domain.Customer, error)
	// RefreshOverdue re-derives the standing of every customer holding an
	// overdue loan and returns the customers whose status flipped.
	RefreshOverdue(ctx context.Context) ([]domain.Customer, error)

	Eligibility(ctx context.Context, tx repository.Repositories, c *domain.Customer, toolGroupID int32) (domain.Eligibility, error)
	RecordDebt(ctx context.Context, tx repository.Repositories, customerID int32, amount decimal.Decimal) (*domain.Customer, error)
	SettleDebt(ctx context.Context, tx repository.Repositories, customerID, loanID int32) (decimal.Decimal, error)
	RefreshStanding(ctx context.Context, tx repository.Repositories, customerID int32) (*domain.Customer, error)

	LedgerObserver
}

type LoanLedger interface {
	RegisterLoan(ctx context.Context, in RegisterLoanInput) (*domain.Loan, error)
	ReturnLoan(ctx context.Context, in ReturnLoanInput) (*domain.Loan, error)
	PayLoanDebts(ctx context.Context, loanID int32) (*domain.Loan, error)
	PayCustomerDebt(ctx context.Context, customerID int32) (*domain.Customer, error)
	ResolveRepair(ctx context.Context, in ResolveRepairInput) (*domain.ToolUnit, error)

	GetLoan(ctx context.Context, id int32) (*domain.Loan, error)
	ListCustomerLoans(ctx context.Context, customerID int32) ([]domain.Loan, error)
	// ListOverdue returns ACTIVE loans past their due date.
	ListOverdue(ctx context.Context) ([]domain.Loan, error)

	Subscribe(o LedgerObserver)
}

type KardexRecorder interface {
	Record(ctx context.Context, tx repository.Repositories, m domain.KardexMovement) (*domain.KardexMovement, error)
	List(ctx context.Context, filter domain.KardexFilter) ([]domain.KardexMovement, error)
}

type ReportAggregator interface {
	ActiveLoans(ctx context.Context, from, to time.Time) ([]domain.ActiveLoanView, error)
	TopTools(ctx context.Context, from, to time.Time) ([]domain.ToolRanking, error)
	CustomersWithDebt(ctx context.Context) ([]domain.CustomerDebtView, error)
	OverdueCustomers(ctx context.Context) ([]domain.CustomerDebtView, error)
	PendingPayment(ctx context.Context) ([]domain.Loan, error)
}

type RegisterToolGroupInput struct {
	Name            string
	Category        string
	DailyRentalRate decimal.Decimal
	// DailyFineRate falls back to the configured default when zero.
	DailyFineRate    decimal.Decimal
	ReplacementValue decimal.Decimal
	Stock            int
}

type RegisterCustomerInput struct {
	Name       string
	NationalID string
	Phone      string
	Email      string
}

type RegisterLoanInput struct {
	ToolGroupID int32
	CustomerID  int32
	DueDate     time.Time
}

type ReturnLoanInput struct {
	LoanID       int32
	DamageCharge decimal.Decimal
	// Irreparable overrides DamageCharge with the group's replacement value
	// and retires the unit.
	Irreparable bool
}

type ResolveRepairInput struct {
	UnitID  int32
	Outcome domain.RepairResolution
	// AdditionalCharge is billed to the unit's last returned loan. Only
	// allowed when retiring.
	AdditionalCharge decimal.Decimal
}

// Rules are the business constants of the engine.
type Rules struct {
	MaxActiveLoans       int
	DefaultDailyFineRate decimal.Decimal
	// MaxStockPerRequest bounds how many units one provisioning call creates.
	MaxStockPerRequest int
}

func DefaultRules() Rules {
	return Rules{
		MaxActiveLoans:       5,
		DefaultDailyFineRate: decimal.NewFromInt(2500),
		MaxStockPerRequest:   500,
	}
}

// RulesFromConfig reads the validated rules section of cfg.
func RulesFromConfig(cfg *config.Config) Rules {
	r := DefaultRules()
	r.MaxActiveLoans = cfg.Rules.MaxActiveLoans
	r.DefaultDailyFineRate = cfg.DefaultDailyFineRate()
	return r
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time
