package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
	"toolrent-backend/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedGroup(t *testing.T, store *memory.Store, units int) *domain.ToolGroup {
	t.Helper()
	ctx := context.Background()
	g := &domain.ToolGroup{Name: "Sierra", Category: "Corte", DailyRentalRate: decimal.NewFromInt(3000), DailyFineRate: decimal.NewFromInt(2500)}
	require.NoError(t, store.ToolGroups().Create(ctx, g))
	for i := 0; i < units; i++ {
		require.NoError(t, store.ToolUnits().Create(ctx, &domain.ToolUnit{ToolGroupID: g.ID, Status: domain.ToolStatusAvailable}))
	}
	return g
}

func TestStore_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsOnSuccess", func(t *testing.T) {
		store := memory.NewStore()
		g := seedGroup(t, store, 1)

		err := store.WithTx(ctx, func(tx repository.Repositories) error {
			u, err := tx.ToolUnits().ClaimAvailable(ctx, g.ID)
			if err != nil {
				return err
			}
			u.Status = domain.ToolStatusLoaned
			return tx.ToolUnits().Update(ctx, u)
		})
		require.NoError(t, err)

		counts, err := store.ToolUnits().CountByStatus(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), counts[domain.ToolStatusLoaned])
	})

	t.Run("DiscardsOnError", func(t *testing.T) {
		store := memory.NewStore()
		g := seedGroup(t, store, 1)
		boom := errors.New("boom")

		err := store.WithTx(ctx, func(tx repository.Repositories) error {
			u, err := tx.ToolUnits().ClaimAvailable(ctx, g.ID)
			if err != nil {
				return err
			}
			u.Status = domain.ToolStatusLoaned
			if err := tx.ToolUnits().Update(ctx, u); err != nil {
				return err
			}
			if err := tx.Kardex().Append(ctx, &domain.KardexMovement{Type: domain.MovementLoan, OccurredAt: time.Now(), ToolGroupID: domain.Ref(g.ID)}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		counts, _ := store.ToolUnits().CountByStatus(ctx, g.ID)
		assert.Equal(t, int32(1), counts[domain.ToolStatusAvailable])
		movements, _ := store.Kardex().List(ctx, domain.KardexFilter{})
		assert.Empty(t, movements)
	})
}

func TestStore_ReadTxRejectsWrites(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := store.ReadTx(ctx, func(tx repository.Repositories) error {
		return tx.ToolGroups().Create(ctx, &domain.ToolGroup{Name: "x"})
	})
	assert.Error(t, err)

	groups, err := store.ToolGroups().List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, groups)
}

func TestCustomerRepository_DuplicateNationalID(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Customers().Create(ctx, &domain.Customer{Name: "Ana", NationalID: "12345678-5", Status: domain.CustomerStatusActive}))
	err := store.Customers().Create(ctx, &domain.Customer{Name: "Otra", NationalID: "12345678-5", Status: domain.CustomerStatusActive})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	c, err := store.Customers().GetByNationalID(ctx, "12345678-5")
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.Name)
}

func TestToolUnitRepository_ClaimLowestID(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	g := seedGroup(t, store, 3)

	units, err := store.ToolUnits().ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	first := units[0]
	first.Status = domain.ToolStatusInRepair
	require.NoError(t, store.ToolUnits().Update(ctx, &first))

	u, err := store.ToolUnits().ClaimAvailable(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, units[1].ID, u.ID)

	_, err = store.ToolUnits().ClaimAvailable(ctx, g.ID+1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoanRepository_OneActivePerUnit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	loan := func() *domain.Loan {
		return &domain.Loan{CustomerID: 1, ToolUnitID: 9, ToolGroupID: 1, Status: domain.LoanStatusActive, LoanDate: time.Now(), DueDate: time.Now().Add(time.Hour)}
	}
	require.NoError(t, store.Loans().Create(ctx, loan()))
	assert.ErrorIs(t, store.Loans().Create(ctx, loan()), repository.ErrDuplicate)
}

func TestKardexRepository_CountByToolGroup(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now()

	for _, gid := range []int32{2, 1, 2, 3, 1} {
		require.NoError(t, store.Kardex().Append(ctx, &domain.KardexMovement{Type: domain.MovementLoan, OccurredAt: now, ToolGroupID: domain.Ref(gid)}))
	}
	require.NoError(t, store.Kardex().Append(ctx, &domain.KardexMovement{Type: domain.MovementReturn, OccurredAt: now, ToolGroupID: domain.Ref(3)}))

	counts, err := store.Kardex().CountByToolGroup(ctx, domain.MovementLoan, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupCount{{ToolGroupID: 1, Total: 2}, {ToolGroupID: 2, Total: 2}, {ToolGroupID: 3, Total: 1}}, counts)
}

func TestStore_ConcurrentClaims(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	g := seedGroup(t, store, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := map[int32]int{}
	failures := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got int32
			err := store.WithTx(ctx, func(tx repository.Repositories) error {
				u, err := tx.ToolUnits().ClaimAvailable(ctx, g.ID)
				if err != nil {
					return err
				}
				u.Status = domain.ToolStatusLoaned
				got = u.ID
				return tx.ToolUnits().Update(ctx, u)
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			claimed[got]++
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, 3)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "unit %d claimed more than once", id)
	}
	assert.Equal(t, 7, failures)
}
