package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
	"toolrent-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var customerCols = []string{"id", "name", "national_id", "phone", "email", "status", "outstanding_debt", "created_on", "updated_on"}

func TestCustomerRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCustomerRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		c := &domain.Customer{Name: "Ana Rojas", NationalID: "12345678-5", Phone: "+56911112222", Email: "ana@example.com", Status: domain.CustomerStatusActive, OutstandingDebt: decimal.Zero}

		mock.ExpectQuery("INSERT INTO customers").
			WithArgs(c.Name, c.NationalID, c.Phone, c.Email, c.Status, c.OutstandingDebt, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		err := repo.Create(ctx, c)
		assert.NoError(t, err)
		assert.Equal(t, int32(7), c.ID)
		assert.False(t, c.CreatedOn.IsZero())
	})

	t.Run("DuplicateNationalID", func(t *testing.T) {
		c := &domain.Customer{Name: "Ana Rojas", NationalID: "12345678-5", Status: domain.CustomerStatusActive}

		mock.ExpectQuery("INSERT INTO customers").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "customers_national_id_key"})

		err := repo.Create(ctx, c)
		assert.True(t, errors.Is(err, repository.ErrDuplicate))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCustomerRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(customerCols).
			AddRow(1, "Ana Rojas", "12345678-5", "+56911112222", "ana@example.com", "RESTRICTED", "4500.00", time.Now(), time.Now())
		mock.ExpectQuery("SELECT (.+) FROM customers WHERE id = \\$1").
			WithArgs(int32(1)).
			WillReturnRows(rows)

		c, err := repo.GetByID(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, domain.CustomerStatusRestricted, c.Status)
		assert.True(t, decimal.NewFromInt(4500).Equal(c.OutstandingDebt))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM customers WHERE id = \\$1").
			WithArgs(int32(99)).
			WillReturnRows(sqlmock.NewRows(customerCols))

		c, err := repo.GetByID(ctx, 99)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_GetForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCustomerRepository(db)

	rows := sqlmock.NewRows(customerCols).
		AddRow(3, "Luis Soto", "7654321-6", "", "luis@example.com", "ACTIVE", "0", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM customers WHERE id = \\$1 FOR UPDATE").
		WithArgs(int32(3)).
		WillReturnRows(rows)

	c, err := repo.GetForUpdate(context.Background(), 3)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCustomerRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		c := &domain.Customer{ID: 1, Name: "Ana", Status: domain.CustomerStatusRestricted, OutstandingDebt: decimal.NewFromInt(2500)}
		mock.ExpectExec("UPDATE customers SET").
			WithArgs(c.Name, c.Phone, c.Email, c.Status, c.OutstandingDebt, sqlmock.AnyArg(), c.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(ctx, c))
	})

	t.Run("Missing", func(t *testing.T) {
		c := &domain.Customer{ID: 42, Status: domain.CustomerStatusActive}
		mock.ExpectExec("UPDATE customers SET").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Update(ctx, c), repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewCustomerRepository(db)
	ctx := context.Background()

	t.Run("ByStatus", func(t *testing.T) {
		rows := sqlmock.NewRows(customerCols).
			AddRow(1, "Ana", "12345678-5", "", "ana@example.com", "RESTRICTED", "10", time.Now(), time.Now()).
			AddRow(2, "Luis", "7654321-6", "", "luis@example.com", "RESTRICTED", "0", time.Now(), time.Now())
		mock.ExpectQuery("SELECT (.+) FROM customers WHERE status = \\$1 ORDER BY id").
			WithArgs(domain.CustomerStatusRestricted).
			WillReturnRows(rows)

		list, err := repo.List(ctx, domain.CustomerStatusRestricted)
		assert.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("WithDebt", func(t *testing.T) {
		rows := sqlmock.NewRows(customerCols).
			AddRow(1, "Ana", "12345678-5", "", "ana@example.com", "RESTRICTED", "10", time.Now(), time.Now())
		mock.ExpectQuery("SELECT (.+) FROM customers WHERE outstanding_debt > 0").
			WillReturnRows(rows)

		list, err := repo.ListWithDebt(ctx)
		assert.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Equal(t, "Ana", list[0].Name)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
