package service_test

import (
	"context"
	"testing"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerAccount_RegisterCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("NormalizesInput", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.engine.Customers.RegisterCustomer(ctx, service.RegisterCustomerInput{
			Name:       "  Ana Pérez ",
			NationalID: "12.345.678-5",
			Phone:      "+56 9 1234 5678",
			Email:      "Ana@Example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana Pérez", c.Name)
		assert.Equal(t, "12345678-5", c.NationalID)
		assert.Equal(t, "+56912345678", c.Phone)
		assert.Equal(t, "ana@example.com", c.Email)
		assert.Equal(t, domain.CustomerStatusActive, c.Status)
		assert.True(t, c.OutstandingDebt.IsZero())
	})

	tests := []struct {
		name  string
		in    service.RegisterCustomerInput
		field string
	}{
		{"BadCheckDigit", service.RegisterCustomerInput{Name: "Ana", NationalID: "12345678-9", Phone: "+56912345678", Email: "a@b.cl"}, "national_id"},
		{"BadPhone", service.RegisterCustomerInput{Name: "Ana", NationalID: "12345678-5", Phone: "12-ab", Email: "a@b.cl"}, "phone"},
		{"BadEmail", service.RegisterCustomerInput{Name: "Ana", NationalID: "12345678-5", Phone: "+56912345678", Email: "not-an-email"}, "email"},
		{"MissingName", service.RegisterCustomerInput{NationalID: "12345678-5", Phone: "+56912345678", Email: "a@b.cl"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.engine.Customers.RegisterCustomer(ctx, tt.in)
			de, ok := domain.AsError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, domain.KindValidation, de.Kind)
			assert.Equal(t, tt.field, de.Field)
		})
	}

	t.Run("DuplicateNationalID", func(t *testing.T) {
		f := newFixture(t)
		f.customer(t, 0)
		_, err := f.engine.Customers.RegisterCustomer(ctx, service.RegisterCustomerInput{
			Name: "Otra", NationalID: "12345678-5", Phone: "+56987654321", Email: "otra@example.com",
		})
		de, ok := domain.AsError(err)
		require.True(t, ok)
		assert.Equal(t, "national_id", de.Field)
	})
}

func TestCustomerAccount_CheckEligibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "Taladro", 2, "1000")
	other := f.group(t, "Sierra", 1, "1000")
	c := f.customer(t, 0)

	el, err := f.engine.Customers.CheckEligibility(ctx, c.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, el.Eligible)

	f.loan(t, g.ID, c.ID, 3)

	el, err = f.engine.Customers.CheckEligibility(ctx, c.ID, g.ID)
	require.NoError(t, err)
	assert.False(t, el.Eligible)
	assert.Contains(t, el.Reason, "active loan for this tool")

	el, err = f.engine.Customers.CheckEligibility(ctx, c.ID, other.ID)
	require.NoError(t, err)
	assert.True(t, el.Eligible)

	_, err = f.engine.Customers.CheckEligibility(ctx, 42, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.Customers.CheckEligibility(ctx, c.ID, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCustomerAccount_RefreshOverdue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "Taladro", 2, "1000")
	late := f.customer(t, 0)
	onTime := f.customer(t, 1)
	f.loan(t, g.ID, late.ID, 1)
	f.loan(t, g.ID, onTime.ID, 10)

	flipped, err := f.engine.Customers.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, flipped)

	f.clock.Advance(2 * day)
	flipped, err = f.engine.Customers.RefreshOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, flipped, 1)
	assert.Equal(t, late.ID, flipped[0].ID)
	assert.Equal(t, domain.CustomerStatusRestricted, flipped[0].Status)

	flipped, err = f.engine.Customers.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, flipped)

	restricted, err := f.engine.Customers.ListCustomers(ctx, domain.CustomerStatusRestricted)
	require.NoError(t, err)
	require.Len(t, restricted, 1)
	assert.Equal(t, late.ID, restricted[0].ID)
}

func TestCustomerAccount_ChangeCustomerStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsContradictingStanding", func(t *testing.T) {
		f := newFixture(t)
		c := f.customer(t, 0)

		_, err := f.engine.Customers.ChangeCustomerStatus(ctx, c.ID, domain.CustomerStatusRestricted)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("ConfirmsDerivedStanding", func(t *testing.T) {
		f := newFixture(t)
		g := f.group(t, "Taladro", 1, "1000")
		c := f.customer(t, 0)
		f.loan(t, g.ID, c.ID, 1)
		f.clock.Advance(2 * day)

		_, err := f.engine.Customers.ChangeCustomerStatus(ctx, c.ID, domain.CustomerStatusActive)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

		updated, err := f.engine.Customers.ChangeCustomerStatus(ctx, c.ID, domain.CustomerStatusRestricted)
		require.NoError(t, err)
		assert.Equal(t, domain.CustomerStatusRestricted, updated.Status)
	})

	t.Run("UnknownCustomer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Customers.ChangeCustomerStatus(ctx, 7, domain.CustomerStatusActive)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
