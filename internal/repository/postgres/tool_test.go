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

func TestToolGroupRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewToolGroupRepository(db)

	g := &domain.ToolGroup{Name: "Taladro", Category: "Electric", DailyRentalRate: decimal.NewFromInt(5000), DailyFineRate: decimal.NewFromInt(2500), ReplacementValue: decimal.NewFromInt(80000)}
	mock.ExpectQuery("INSERT INTO tool_groups").
		WithArgs(g.Name, g.Category, g.DailyRentalRate, g.DailyFineRate, g.ReplacementValue, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	assert.NoError(t, repo.Create(context.Background(), g))
	assert.Equal(t, int32(2), g.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolGroupRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewToolGroupRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "category", "daily_rental_rate", "daily_fine_rate", "replacement_value", "created_on", "updated_on"}).
		AddRow(2, "Taladro", "Electric", "5000.00", "2500.00", "80000.00", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM tool_groups WHERE id = \\$1").
		WithArgs(int32(2)).
		WillReturnRows(rows)

	g, err := repo.GetByID(context.Background(), 2)
	assert.NoError(t, err)
	assert.Equal(t, "Taladro", g.Name)
	assert.True(t, decimal.NewFromInt(2500).Equal(g.DailyFineRate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolUnitRepository_ClaimAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewToolUnitRepository(db)
	ctx := context.Background()
	cols := []string{"id", "tool_group_id", "status", "created_on", "updated_on"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM tool_units (.+) FOR UPDATE SKIP LOCKED").
			WithArgs(int32(2), domain.ToolStatusAvailable).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(4, 2, "AVAILABLE", time.Now(), time.Now()))

		u, err := repo.ClaimAvailable(ctx, 2)
		assert.NoError(t, err)
		assert.Equal(t, int32(4), u.ID)
	})

	t.Run("NoneLeft", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM tool_units (.+) FOR UPDATE SKIP LOCKED").
			WithArgs(int32(2), domain.ToolStatusAvailable).
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.ClaimAvailable(ctx, 2)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolUnitRepository_CountByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewToolUnitRepository(db)

	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) FROM tool_units WHERE tool_group_id = \\$1 GROUP BY status").
		WithArgs(int32(2)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("AVAILABLE", 3).
			AddRow("LOANED", 1))

	counts, err := repo.CountByStatus(context.Background(), 2)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), counts[domain.ToolStatusAvailable])
	assert.Equal(t, int32(1), counts[domain.ToolStatusLoaned])
	assert.Equal(t, int32(0), counts[domain.ToolStatusRetired])
	assert.NoError(t, mock.ExpectationsWereMet())
}
