package postgres

import (
	"context"
	"fmt"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
)

type loanRepository struct {
	db DBTX
}

func NewLoanRepository(db DBTX) repository.LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `id, customer_id, tool_unit_id, tool_group_id, loan_date, due_date, return_date, status,
	total_cost, fine_amount, damage_charge, settled_amount, paid, created_on, updated_on`

func scanLoan(row rowScanner) (*domain.Loan, error) {
	l := &domain.Loan{}
	err := row.Scan(&l.ID, &l.CustomerID, &l.ToolUnitID, &l.ToolGroupID, &l.LoanDate, &l.DueDate, &l.ReturnDate, &l.Status,
		&l.TotalCost, &l.FineAmount, &l.DamageCharge, &l.SettledAmount, &l.Paid, &l.CreatedOn, &l.UpdatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	return l, nil
}

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	query := `INSERT INTO loans (customer_id, tool_unit_id, tool_group_id, loan_date, due_date, status, total_cost,
	          fine_amount, damage_charge, settled_amount, paid, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	now := time.Now()
	l.CreatedOn, l.UpdatedOn = now, now
	err := r.db.QueryRowContext(ctx, query, l.CustomerID, l.ToolUnitID, l.ToolGroupID, l.LoanDate, l.DueDate, l.Status, l.TotalCost,
		l.FineAmount, l.DamageCharge, l.SettledAmount, l.Paid, now, now).Scan(&l.ID)
	return mapError(err)
}

func (r *loanRepository) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return scanLoan(r.db.QueryRowContext(ctx, query, id))
}

func (r *loanRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return scanLoan(r.db.QueryRowContext(ctx, query, id))
}

func (r *loanRepository) Update(ctx context.Context, l *domain.Loan) error {
	query := `UPDATE loans SET return_date=$1, status=$2, fine_amount=$3, damage_charge=$4, settled_amount=$5, paid=$6, updated_on=$7 WHERE id=$8`
	l.UpdatedOn = time.Now()
	return expectOne(r.db.ExecContext(ctx, query, l.ReturnDate, l.Status, l.FineAmount, l.DamageCharge, l.SettledAmount, l.Paid, l.UpdatedOn, l.ID))
}

func (r *loanRepository) ListByCustomer(ctx context.Context, customerID int32) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE customer_id = $1 ORDER BY loan_date DESC, id DESC`
	return r.list(ctx, query, customerID)
}

func (r *loanRepository) ActiveByUnit(ctx context.Context, toolUnitID int32) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE tool_unit_id = $1 AND status = $2`
	return scanLoan(r.db.QueryRowContext(ctx, query, toolUnitID, domain.LoanStatusActive))
}

func (r *loanRepository) LastReturnedByUnit(ctx context.Context, toolUnitID int32) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE tool_unit_id = $1 AND status = $2
	          ORDER BY return_date DESC, id DESC LIMIT 1 FOR UPDATE`
	return scanLoan(r.db.QueryRowContext(ctx, query, toolUnitID, domain.LoanStatusReturned))
}

func (r *loanRepository) ListActive(ctx context.Context, from, to time.Time) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1`
	args := []any{domain.LoanStatusActive}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(` AND loan_date >= $%d`, len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(` AND loan_date <= $%d`, len(args))
	}
	query += ` ORDER BY due_date, id`
	return r.list(ctx, query, args...)
}

func (r *loanRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 AND due_date < $2 ORDER BY due_date, id`
	return r.list(ctx, query, domain.LoanStatusActive, now)
}

func (r *loanRepository) ListUnpaid(ctx context.Context) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 AND paid = FALSE ORDER BY return_date DESC, id DESC`
	return r.list(ctx, query, domain.LoanStatusReturned)
}

func (r *loanRepository) list(ctx context.Context, query string, args ...any) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}
