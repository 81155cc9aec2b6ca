package postgres

import (
	"context"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
)

type customerRepository struct {
	db DBTX
}

func NewCustomerRepository(db DBTX) repository.CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, name, national_id, phone, email, status, outstanding_debt, created_on, updated_on`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := row.Scan(&c.ID, &c.Name, &c.NationalID, &c.Phone, &c.Email, &c.Status, &c.OutstandingDebt, &c.CreatedOn, &c.UpdatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	query := `INSERT INTO customers (name, national_id, phone, email, status, outstanding_debt, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	now := time.Now()
	c.CreatedOn, c.UpdatedOn = now, now
	err := r.db.QueryRowContext(ctx, query, c.Name, c.NationalID, c.Phone, c.Email, c.Status, c.OutstandingDebt, now, now).Scan(&c.ID)
	return mapError(err)
}

func (r *customerRepository) GetByID(ctx context.Context, id int32) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return scanCustomer(r.db.QueryRowContext(ctx, query, id))
}

func (r *customerRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`
	return scanCustomer(r.db.QueryRowContext(ctx, query, id))
}

func (r *customerRepository) GetByNationalID(ctx context.Context, nationalID string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE national_id = $1`
	return scanCustomer(r.db.QueryRowContext(ctx, query, nationalID))
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	query := `UPDATE customers SET name=$1, phone=$2, email=$3, status=$4, outstanding_debt=$5, updated_on=$6 WHERE id=$7`
	c.UpdatedOn = time.Now()
	return expectOne(r.db.ExecContext(ctx, query, c.Name, c.Phone, c.Email, c.Status, c.OutstandingDebt, c.UpdatedOn, c.ID))
}

func (r *customerRepository) List(ctx context.Context, status domain.CustomerStatus) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY id`
	return r.list(ctx, query, args...)
}

func (r *customerRepository) ListWithDebt(ctx context.Context) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE outstanding_debt > 0 ORDER BY id`
	return r.list(ctx, query)
}

func (r *customerRepository) list(ctx context.Context, query string, args ...any) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}
