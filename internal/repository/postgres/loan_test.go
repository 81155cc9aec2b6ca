package postgres_test

import (
	"context"
	"testing"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
	"toolrent-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var loanCols = []string{"id", "customer_id", "tool_unit_id", "tool_group_id", "loan_date", "due_date", "return_date", "status",
	"total_cost", "fine_amount", "damage_charge", "settled_amount", "paid", "created_on", "updated_on"}

func TestLoanRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLoanRepository(db)

	now := time.Now()
	loan := &domain.Loan{
		CustomerID: 1, ToolUnitID: 4, ToolGroupID: 2,
		LoanDate: now, DueDate: now.Add(72 * time.Hour),
		Status:    domain.LoanStatusActive,
		TotalCost: decimal.NewFromInt(15000), FineAmount: decimal.Zero, DamageCharge: decimal.Zero, SettledAmount: decimal.Zero,
	}
	mock.ExpectQuery("INSERT INTO loans").
		WithArgs(loan.CustomerID, loan.ToolUnitID, loan.ToolGroupID, loan.LoanDate, loan.DueDate, loan.Status, loan.TotalCost,
			loan.FineAmount, loan.DamageCharge, loan.SettledAmount, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	err = repo.Create(context.Background(), loan)
	assert.NoError(t, err)
	assert.Equal(t, int32(11), loan.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLoanRepository(db)
	ctx := context.Background()

	t.Run("Returned", func(t *testing.T) {
		returned := time.Now()
		rows := sqlmock.NewRows(loanCols).
			AddRow(5, 1, 4, 2, returned.Add(-96*time.Hour), returned.Add(-24*time.Hour), returned, "RETURNED",
				"15000", "2500", "0", "0", false, returned, returned)
		mock.ExpectQuery("SELECT (.+) FROM loans WHERE id = \\$1").
			WithArgs(int32(5)).
			WillReturnRows(rows)

		loan, err := repo.GetByID(ctx, 5)
		assert.NoError(t, err)
		assert.Equal(t, domain.LoanStatusReturned, loan.Status)
		assert.NotNil(t, loan.ReturnDate)
		assert.True(t, decimal.NewFromInt(2500).Equal(loan.Outstanding()))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM loans WHERE id = \\$1").
			WithArgs(int32(6)).
			WillReturnRows(sqlmock.NewRows(loanCols))

		_, err := repo.GetByID(ctx, 6)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLoanRepository(db)

	returned := time.Now()
	loan := &domain.Loan{ID: 5, ReturnDate: &returned, Status: domain.LoanStatusReturned, FineAmount: decimal.NewFromInt(2500), DamageCharge: decimal.Zero, SettledAmount: decimal.Zero}
	mock.ExpectExec("UPDATE loans SET").
		WithArgs(loan.ReturnDate, loan.Status, loan.FineAmount, loan.DamageCharge, loan.SettledAmount, false, sqlmock.AnyArg(), loan.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Update(context.Background(), loan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLoanRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Unbounded", func(t *testing.T) {
		rows := sqlmock.NewRows(loanCols).
			AddRow(1, 1, 4, 2, now, now.Add(time.Hour), nil, "ACTIVE", "100", "0", "0", "0", false, now, now)
		mock.ExpectQuery("SELECT (.+) FROM loans WHERE status = \\$1 ORDER BY due_date, id").
			WithArgs(domain.LoanStatusActive).
			WillReturnRows(rows)

		loans, err := repo.ListActive(ctx, time.Time{}, time.Time{})
		assert.NoError(t, err)
		assert.Len(t, loans, 1)
		assert.Nil(t, loans[0].ReturnDate)
	})

	t.Run("Range", func(t *testing.T) {
		from, to := now.Add(-48*time.Hour), now
		mock.ExpectQuery("SELECT (.+) FROM loans WHERE status = \\$1 AND loan_date >= \\$2 AND loan_date <= \\$3").
			WithArgs(domain.LoanStatusActive, from, to).
			WillReturnRows(sqlmock.NewRows(loanCols))

		loans, err := repo.ListActive(ctx, from, to)
		assert.NoError(t, err)
		assert.Empty(t, loans)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ListOverdue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLoanRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(loanCols).
		AddRow(3, 2, 8, 1, now.Add(-72*time.Hour), now.Add(-time.Hour), nil, "ACTIVE", "100", "0", "0", "0", false, now, now)
	mock.ExpectQuery("SELECT (.+) FROM loans WHERE status = \\$1 AND due_date < \\$2").
		WithArgs(domain.LoanStatusActive, now).
		WillReturnRows(rows)

	loans, err := repo.ListOverdue(context.Background(), now)
	assert.NoError(t, err)
	assert.Len(t, loans, 1)
	assert.True(t, loans[0].IsOverdue(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
