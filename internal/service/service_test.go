package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/repository/memory"
	"toolrent-backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store  *memory.Store
	clock  *testClock
	engine *service.Engine
}

var day = 24 * time.Hour

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	engine := service.NewEngine(store, service.DefaultRules(), metrics.New(), clock.Now)
	return &fixture{store: store, clock: clock, engine: engine}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) group(t *testing.T, name string, stock int, fine string) *domain.ToolGroupStock {
	t.Helper()
	g, err := f.engine.Registry.RegisterToolGroup(context.Background(), service.RegisterToolGroupInput{
		Name:             name,
		Category:         "Herramientas",
		DailyRentalRate:  dec("3000"),
		DailyFineRate:    dec(fine),
		ReplacementValue: dec("80000"),
		Stock:            stock,
	})
	require.NoError(t, err)
	return g
}

// nationalIDs are RUTs with valid check digits.
var nationalIDs = []string{
	"12345678-5", "11111111-1", "22222222-2", "33333333-3", "44444444-4",
	"55555555-5", "66666666-6", "77777777-7", "88888888-8", "99999999-9",
}

func (f *fixture) customer(t *testing.T, i int) *domain.Customer {
	t.Helper()
	c, err := f.engine.Customers.RegisterCustomer(context.Background(), service.RegisterCustomerInput{
		Name:       "Cliente " + nationalIDs[i],
		NationalID: nationalIDs[i],
		Phone:      "+56912345678",
		Email:      "cliente@example.com",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) loan(t *testing.T, groupID, customerID int32, days int) *domain.Loan {
	t.Helper()
	l, err := f.engine.Loans.RegisterLoan(context.Background(), service.RegisterLoanInput{
		ToolGroupID: groupID,
		CustomerID:  customerID,
		DueDate:     f.clock.Now().Add(time.Duration(days) * day),
	})
	require.NoError(t, err)
	return l
}

// assertInvariants checks the ledger-wide invariants against committed state:
// every customer's debt and status are derivable from their loans, and a
// unit is LOANED iff exactly one ACTIVE loan references it.
func (f *fixture) assertInvariants(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	now := f.clock.Now()

	customers, err := f.store.Customers().List(ctx, "")
	require.NoError(t, err)
	for _, c := range customers {
		loans, err := f.store.Loans().ListByCustomer(ctx, c.ID)
		require.NoError(t, err)
		debt := decimal.Zero
		overdue := false
		for i := range loans {
			assert.False(t, loans[i].Outstanding().IsNegative(), "loan %d outstanding", loans[i].ID)
			debt = debt.Add(loans[i].Outstanding())
			overdue = overdue || loans[i].IsOverdue(now)
		}
		assert.True(t, debt.Equal(c.OutstandingDebt), "customer %d debt %s != %s", c.ID, c.OutstandingDebt, debt)
		if !overdue {
			want := domain.CustomerStatusActive
			if debt.IsPositive() {
				want = domain.CustomerStatusRestricted
			}
			assert.Equal(t, want, c.Status, "customer %d status", c.ID)
		}
	}

	groups, err := f.store.ToolGroups().List(ctx)
	require.NoError(t, err)
	for _, g := range groups {
		units, err := f.store.ToolUnits().ListByGroup(ctx, g.ID)
		require.NoError(t, err)
		for _, u := range units {
			_, err := f.store.Loans().ActiveByUnit(ctx, u.ID)
			hasActive := err == nil
			assert.Equal(t, u.Status == domain.ToolStatusLoaned, hasActive, "unit %d status %s", u.ID, u.Status)
		}
	}
}

func (f *fixture) movements(t *testing.T, filter domain.KardexFilter) []domain.KardexMovement {
	t.Helper()
	out, err := f.engine.Kardex.List(context.Background(), filter)
	require.NoError(t, err)
	return out
}
