package repository

import (
	"context"
	"errors"
	"time"

	"toolrent-backend/internal/domain"
)

// ErrNotFound is returned by repositories when no row matches. Services
// translate it into domain.NotFound naming the entity.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate record")

type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id int32) (*domain.Customer, error)
	// GetForUpdate locks the customer row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.Customer, error)
	GetByNationalID(ctx context.Context, nationalID string) (*domain.Customer, error)
	Update(ctx context.Context, c *domain.Customer) error
	List(ctx context.Context, status domain.CustomerStatus) ([]domain.Customer, error)
	ListWithDebt(ctx context.Context) ([]domain.Customer, error)
}

type ToolGroupRepository interface {
	Create(ctx context.Context, g *domain.ToolGroup) error
	GetByID(ctx context.Context, id int32) (*domain.ToolGroup, error)
	Update(ctx context.Context, g *domain.ToolGroup) error
	List(ctx context.Context) ([]domain.ToolGroup, error)
}

type ToolUnitRepository interface {
	Create(ctx context.Context, u *domain.ToolUnit) error
	GetByID(ctx context.Context, id int32) (*domain.ToolUnit, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.ToolUnit, error)
	// ClaimAvailable locks and returns the lowest-id AVAILABLE unit of the
	// group, skipping units locked by concurrent claims. ErrNotFound if none.
	ClaimAvailable(ctx context.Context, toolGroupID int32) (*domain.ToolUnit, error)
	Update(ctx context.Context, u *domain.ToolUnit) error
	ListByGroup(ctx context.Context, toolGroupID int32) ([]domain.ToolUnit, error)
	CountByStatus(ctx context.Context, toolGroupID int32) (map[domain.ToolStatus]int32, error)
}

type LoanRepository interface {
	Create(ctx context.Context, l *domain.Loan) error
	GetByID(ctx context.Context, id int32) (*domain.Loan, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.Loan, error)
	Update(ctx context.Context, l *domain.Loan) error
	ListByCustomer(ctx context.Context, customerID int32) ([]domain.Loan, error)
	// ActiveByUnit returns the ACTIVE loan holding the unit, ErrNotFound if free.
	ActiveByUnit(ctx context.Context, toolUnitID int32) (*domain.Loan, error)
	// LastReturnedByUnit returns the most recently returned loan of the unit.
	LastReturnedByUnit(ctx context.Context, toolUnitID int32) (*domain.Loan, error)
	// ListActive returns ACTIVE loans whose loan date falls in [from, to],
	// ordered by due date.
	ListActive(ctx context.Context, from, to time.Time) ([]domain.Loan, error)
	// ListOverdue returns ACTIVE loans due before now.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Loan, error)
	// ListUnpaid returns RETURNED loans with outstanding charges, newest return first.
	ListUnpaid(ctx context.Context) ([]domain.Loan, error)
}

type KardexRepository interface {
	// Append stores m and assigns its ID. Entries are never updated or deleted.
	Append(ctx context.Context, m *domain.KardexMovement) error
	List(ctx context.Context, filter domain.KardexFilter) ([]domain.KardexMovement, error)
	CountByToolGroup(ctx context.Context, movementType domain.MovementType, from, to time.Time) ([]domain.GroupCount, error)
}

// Repositories is the set of repositories bound to one connection or
// transaction.
type Repositories interface {
	Customers() CustomerRepository
	ToolGroups() ToolGroupRepository
	ToolUnits() ToolUnitRepository
	Loans() LoanRepository
	Kardex() KardexRepository
}

// Store is the durable store the engine runs on. WithTx commits when fn
// returns nil and rolls back everything fn staged otherwise. ReadTx gives fn
// a consistent snapshot of committed state.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
	ReadTx(ctx context.Context, fn func(tx Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
