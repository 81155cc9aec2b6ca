package service_test

import (
	"context"
	"testing"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/security"
	"toolrent-backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolUnitRegistry_RegisterToolGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("ProvisionsStock", func(t *testing.T) {
		f := newFixture(t)
		admin := security.WithPrincipal(ctx, security.Principal{Subject: "1", Username: "admin", Roles: []security.Role{security.RoleAdmin}})

		g, err := f.engine.Registry.RegisterToolGroup(admin, service.RegisterToolGroupInput{
			Name:             "Martillo",
			Category:         "Manual",
			DailyRentalRate:  dec("1500"),
			ReplacementValue: dec("12000"),
			Stock:            3,
		})
		require.NoError(t, err)
		assert.Equal(t, int32(3), g.Available)
		assert.True(t, dec("2500").Equal(g.DailyFineRate), "default fine rate")

		entries := f.movements(t, domain.KardexFilter{Type: domain.MovementRegistry, ToolGroupID: g.ID})
		require.Len(t, entries, 3)
		for _, e := range entries {
			assert.Equal(t, "admin", e.Actor)
			assert.Equal(t, entries[0].OperationID, e.OperationID)
			assert.Contains(t, e.Detail, "Martillo")
		}
	})

	tests := []struct {
		name  string
		in    service.RegisterToolGroupInput
		field string
	}{
		{"MissingName", service.RegisterToolGroupInput{Category: "c", DailyRentalRate: dec("1"), Stock: 1}, "name"},
		{"ZeroRentalRate", service.RegisterToolGroupInput{Name: "n", Category: "c", Stock: 1}, "daily_rental_rate"},
		{"NegativeFineRate", service.RegisterToolGroupInput{Name: "n", Category: "c", DailyRentalRate: dec("1"), DailyFineRate: dec("-1"), Stock: 1}, "daily_fine_rate"},
		{"NegativeReplacement", service.RegisterToolGroupInput{Name: "n", Category: "c", DailyRentalRate: dec("1"), ReplacementValue: dec("-5"), Stock: 1}, "replacement_value"},
		{"NegativeStock", service.RegisterToolGroupInput{Name: "n", Category: "c", DailyRentalRate: dec("1"), Stock: -1}, "stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.engine.Registry.RegisterToolGroup(ctx, tt.in)
			de, ok := domain.AsError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, domain.KindValidation, de.Kind)
			assert.Equal(t, tt.field, de.Field)

			groups, err := f.engine.Registry.ListToolGroups(ctx)
			require.NoError(t, err)
			assert.Empty(t, groups)
		})
	}
}

func TestToolUnitRegistry_UpdateTariff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "Taladro", 1, "1000")

	updated, err := f.engine.Registry.UpdateTariff(ctx, g.ID, dec("4000"), dec("1500"))
	require.NoError(t, err)
	assert.True(t, dec("4000").Equal(updated.DailyRentalRate))
	assert.True(t, dec("1500").Equal(updated.DailyFineRate))

	_, err = f.engine.Registry.UpdateTariff(ctx, g.ID, decimal.Zero, dec("1500"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.engine.Registry.UpdateReplacementValue(ctx, g.ID, dec("-1"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	replaced, err := f.engine.Registry.UpdateReplacementValue(ctx, g.ID, dec("99000"))
	require.NoError(t, err)
	assert.True(t, dec("99000").Equal(replaced.ReplacementValue))

	_, err = f.engine.Registry.UpdateTariff(ctx, 404, dec("1"), dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToolUnitRegistry_ChangeStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "Taladro", 2, "1000")
	units, err := f.engine.Registry.ListUnits(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	id := units[0].ID

	_, err = f.engine.Registry.ChangeStatus(ctx, id, domain.ToolStatusLoaned)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = f.engine.Registry.ChangeStatus(ctx, id, domain.ToolStatusAvailable)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	u, err := f.engine.Registry.ChangeStatus(ctx, id, domain.ToolStatusInRepair)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolStatusInRepair, u.Status)

	u, err = f.engine.Registry.ChangeStatus(ctx, id, domain.ToolStatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolStatusAvailable, u.Status)

	u, err = f.engine.Registry.ChangeStatus(ctx, id, domain.ToolStatusRetired)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolStatusRetired, u.Status)

	_, err = f.engine.Registry.ChangeStatus(ctx, id, domain.ToolStatusInRepair)
	assert.ErrorIs(t, err, domain.ErrAlreadyRetired)

	var types []domain.MovementType
	for _, e := range f.movements(t, domain.KardexFilter{ToolUnitID: id}) {
		types = append(types, e.Type)
	}
	assert.Equal(t, []domain.MovementType{domain.MovementRegistry, domain.MovementRepair, domain.MovementReEntry, domain.MovementRetire}, types)

	stock, err := f.engine.Registry.GetToolGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), stock.Available)
	assert.Equal(t, int32(1), stock.Retired)

	loan := f.loan(t, g.ID, f.customer(t, 0).ID, 2)
	_, err = f.engine.Registry.ChangeStatus(ctx, loan.ToolUnitID, domain.ToolStatusInRepair)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	f.assertInvariants(t)
}

func TestToolUnitRegistry_ProvisionUnits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "Taladro", 0, "1000")

	units, err := f.engine.Registry.ProvisionUnits(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	_, err = f.engine.Registry.ProvisionUnits(ctx, g.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.engine.Registry.ProvisionUnits(ctx, g.ID, 501)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.engine.Registry.ProvisionUnits(ctx, 77, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stock, err := f.engine.Registry.GetToolGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), stock.Available)
}
