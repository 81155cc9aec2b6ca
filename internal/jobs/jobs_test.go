package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"toolrent-backend/internal/config"
	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/jobs"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/notification"
	"toolrent-backend/internal/repository/memory"
	"toolrent-backend/internal/service"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg notification.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type env struct {
	now      time.Time
	engine   *service.Engine
	notifier *MockNotifier
	metrics  *metrics.Metrics
	runner   *jobs.JobRunner
}

func setup(t *testing.T) *env {
	t.Helper()
	e := &env{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), notifier: new(MockNotifier), metrics: metrics.New()}
	clock := func() time.Time { return e.now }
	e.engine = service.NewEngine(memory.NewStore(), service.DefaultRules(), e.metrics, clock)
	e.runner = jobs.NewJobRunner(&jobs.Services{Customers: e.engine.Customers, Reports: e.engine.Reports}, e.notifier, e.metrics, &config.Config{}, clock)
	return e
}

// overdueCustomer registers a customer with one loan due tomorrow.
func (e *env) overdueCustomer(t *testing.T, nationalID, email string) *domain.Customer {
	t.Helper()
	ctx := context.Background()
	g, err := e.engine.Registry.RegisterToolGroup(ctx, service.RegisterToolGroupInput{
		Name: "Taladro " + nationalID, Category: "Eléctricas", DailyRentalRate: decimal.NewFromInt(3000), Stock: 1,
	})
	require.NoError(t, err)
	c, err := e.engine.Customers.RegisterCustomer(ctx, service.RegisterCustomerInput{
		Name: "Cliente", NationalID: nationalID, Phone: "+56912345678", Email: email,
	})
	require.NoError(t, err)
	_, err = e.engine.Loans.RegisterLoan(ctx, service.RegisterLoanInput{ToolGroupID: g.ID, CustomerID: c.ID, DueDate: e.now.Add(24 * time.Hour)})
	require.NoError(t, err)
	return c
}

func TestMarkOverdueLoans(t *testing.T) {
	e := setup(t)
	c := e.overdueCustomer(t, "12345678-5", "ana@example.com")

	require.NoError(t, e.runner.Run(jobs.JobMarkOverdueLoans))
	got, err := e.engine.Customers.GetCustomer(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CustomerStatusActive, got.Status)

	e.now = e.now.Add(48 * time.Hour)
	e.runner.MarkOverdueLoans()
	got, err = e.engine.Customers.GetCustomer(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CustomerStatusRestricted, got.Status)
}

func TestSendOverdueReminders(t *testing.T) {
	t.Run("OnePerOverdueCustomer", func(t *testing.T) {
		e := setup(t)
		e.overdueCustomer(t, "12345678-5", "ana@example.com")
		e.overdueCustomer(t, "11111111-1", "beto@example.com")
		e.now = e.now.Add(72 * time.Hour)

		e.notifier.On("Send", mock.Anything, mock.MatchedBy(func(m notification.Message) bool {
			return m.Subject == "Reminder: overdue tool return"
		})).Return(nil).Twice()

		require.NoError(t, e.runner.Run(jobs.JobSendOverdueReminders))
		e.notifier.AssertExpectations(t)
	})

	t.Run("NothingOverdue", func(t *testing.T) {
		e := setup(t)
		e.overdueCustomer(t, "12345678-5", "ana@example.com")

		require.NoError(t, e.runner.Run(jobs.JobSendOverdueReminders))
		e.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("DeliveryFailureFailsJob", func(t *testing.T) {
		e := setup(t)
		e.overdueCustomer(t, "12345678-5", "ana@example.com")
		e.now = e.now.Add(72 * time.Hour)
		e.notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("provider down"))

		err := e.runner.Run(jobs.JobSendOverdueReminders)
		assert.ErrorContains(t, err, "1 of 1")
		assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.JobRunsTotal.WithLabelValues("SendOverdueReminders", "error")))
	})
}

func TestRun(t *testing.T) {
	e := setup(t)
	assert.Equal(t, []string{jobs.JobMarkOverdueLoans, jobs.JobSendOverdueReminders}, e.runner.Names())
	assert.NoError(t, e.runner.Run(jobs.JobAll))
	assert.Error(t, e.runner.Run("balance-snapshots"))
}
