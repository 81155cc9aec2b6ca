package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

// customerAccount is the only writer of Customer.Status and
// Customer.OutstandingDebt. Both are re-derived from the customer's loans
// whenever a ledger event touches the customer.
type customerAccount struct {
	store   repository.Store
	rules   Rules
	metrics *metrics.Metrics
	now     Clock
}

func NewCustomerAccount(store repository.Store, rules Rules, m *metrics.Metrics, now Clock) CustomerAccount {
	return &customerAccount{
		store:   store,
		rules:   rules,
		metrics: m,
		now:     now,
	}
}

func (s *customerAccount) RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (out *domain.Customer, err error) {
	logger.EnterMethod(ctx, "RegisterCustomer", "national_id", in.NationalID)
	defer func() { track(ctx, s.metrics, "RegisterCustomer", err) }()

	c, err := domain.NewCustomer(in.Name, in.NationalID, in.Phone, in.Email)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		if err := tx.Customers().Create(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.Validation("national_id", "a customer with national id %s is already registered", c.NationalID)
			}
			return storeErr(err, "create customer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ChangeCustomerStatus accepts a target only when it matches the standing
// derived from the customer's loans: an operator can confirm a standing or
// force a stale one to refresh, never contradict it.
func (s *customerAccount) ChangeCustomerStatus(ctx context.Context, customerID int32, target domain.CustomerStatus) (out *domain.Customer, err error) {
	logger.EnterMethod(ctx, "ChangeCustomerStatus", "customer_id", customerID, "target", target)
	defer func() { track(ctx, s.metrics, "ChangeCustomerStatus", err) }()

	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		c, err := tx.Customers().GetForUpdate(ctx, customerID)
		if err != nil {
			return lookup(err, "customer", customerID)
		}
		st, err := s.standing(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if st.status() != target {
			return domain.InvalidTransition("customer", customerID, string(c.Status), string(target))
		}
		out, err = s.apply(ctx, tx, c, st)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *customerAccount) CheckEligibility(ctx context.Context, customerID, toolGroupID int32) (*domain.Eligibility, error) {
	var out domain.Eligibility
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		c, err := tx.Customers().GetByID(ctx, customerID)
		if err != nil {
			return lookup(err, "customer", customerID)
		}
		if toolGroupID != 0 {
			if _, err := tx.ToolGroups().GetByID(ctx, toolGroupID); err != nil {
				return lookup(err, "tool_group", toolGroupID)
			}
		}
		out, err = s.Eligibility(ctx, tx, c, toolGroupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Eligibility is the borrowing gate. A zero toolGroupID skips the
// duplicate-tool check.
func (s *customerAccount) Eligibility(ctx context.Context, tx repository.Repositories, c *domain.Customer, toolGroupID int32) (domain.Eligibility, error) {
	if c.Status == domain.CustomerStatusRestricted {
		return domain.Eligibility{Reason: "customer is restricted"}, nil
	}
	loans, err := tx.Loans().ListByCustomer(ctx, c.ID)
	if err != nil {
		return domain.Eligibility{}, fmt.Errorf("list loans: %w", err)
	}
	now := s.now()
	var active int
	debt := decimal.Zero
	for i := range loans {
		l := &loans[i]
		debt = debt.Add(l.Outstanding())
		if l.Status != domain.LoanStatusActive {
			continue
		}
		active++
		if l.IsOverdue(now) {
			return domain.Eligibility{Reason: "customer has overdue loans"}, nil
		}
		if toolGroupID != 0 && l.ToolGroupID == toolGroupID {
			return domain.Eligibility{Reason: "customer already holds an active loan for this tool"}, nil
		}
	}
	if debt.IsPositive() {
		return domain.Eligibility{Reason: "customer has unpaid charges"}, nil
	}
	if active >= s.rules.MaxActiveLoans {
		return domain.Eligibility{Reason: fmt.Sprintf("customer already holds %d active loans", active)}, nil
	}
	return domain.Eligibility{Eligible: true}, nil
}

// RecordDebt re-derives the customer's debt after a charge of amount was
// staged on one of their loans.
func (s *customerAccount) RecordDebt(ctx context.Context, tx repository.Repositories, customerID int32, amount decimal.Decimal) (*domain.Customer, error) {
	if !amount.IsPositive() {
		return nil, domain.Validation("amount", "debt amount must be greater than 0")
	}
	c, err := s.RefreshStanding(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDebtRecorded(amount)
	logger.InfoContext(ctx, "Debt recorded", "customer_id", customerID, "amount", amount.String(), "outstanding", c.OutstandingDebt.String(), "status", c.Status)
	return c, nil
}

// SettleDebt marks the loan's outstanding charges as paid and re-derives the
// customer's standing. It returns the amount settled.
func (s *customerAccount) SettleDebt(ctx context.Context, tx repository.Repositories, customerID, loanID int32) (decimal.Decimal, error) {
	loan, err := tx.Loans().GetForUpdate(ctx, loanID)
	if err != nil {
		return decimal.Zero, lookup(err, "loan", loanID)
	}
	if loan.CustomerID != customerID {
		return decimal.Zero, domain.Validation("loan", "loan %d does not belong to customer %d", loanID, customerID)
	}
	if loan.Status != domain.LoanStatusReturned {
		return decimal.Zero, domain.InvalidTransition("loan", loanID, string(loan.Status), "PAID")
	}
	amount := loan.Outstanding()
	if !amount.IsPositive() {
		return decimal.Zero, domain.AlreadyPaid("loan", loanID)
	}
	loan.SettledAmount = loan.Charges()
	loan.Paid = true
	if err := tx.Loans().Update(ctx, loan); err != nil {
		return decimal.Zero, storeErr(err, "update loan")
	}
	c, err := s.RefreshStanding(ctx, tx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	s.metrics.ObserveDebtSettled(amount)
	logger.InfoContext(ctx, "Debt settled", "customer_id", customerID, "loan_id", loanID, "amount", amount.String(), "outstanding", c.OutstandingDebt.String(), "status", c.Status)
	return amount, nil
}

// RefreshStanding recomputes debt and status from the customer's loans and
// persists them when they changed.
func (s *customerAccount) RefreshStanding(ctx context.Context, tx repository.Repositories, customerID int32) (*domain.Customer, error) {
	c, err := tx.Customers().GetForUpdate(ctx, customerID)
	if err != nil {
		return nil, lookup(err, "customer", customerID)
	}
	st, err := s.standing(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, tx, c, st)
}

func (s *customerAccount) OnLedgerEvent(ctx context.Context, tx repository.Repositories, ev LedgerEvent) error {
	switch ev.Kind {
	case EventLoanReturned, EventRepairCharged:
		if ev.Amount.IsPositive() {
			_, err := s.RecordDebt(ctx, tx, ev.CustomerID, ev.Amount)
			return err
		}
		_, err := s.RefreshStanding(ctx, tx, ev.CustomerID)
		return err
	case EventPaymentReceived:
		_, err := s.SettleDebt(ctx, tx, ev.CustomerID, ev.LoanID)
		return err
	}
	return nil
}

func (s *customerAccount) RefreshOverdue(ctx context.Context) (flipped []domain.Customer, err error) {
	logger.EnterMethod(ctx, "RefreshOverdue")
	defer func() { track(ctx, s.metrics, "RefreshOverdue", err, "flipped", len(flipped)) }()

	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		overdue, err := tx.Loans().ListOverdue(ctx, s.now())
		if err != nil {
			return fmt.Errorf("list overdue loans: %w", err)
		}
		seen := make(map[int32]bool)
		for _, l := range overdue {
			if seen[l.CustomerID] {
				continue
			}
			seen[l.CustomerID] = true
			before, err := tx.Customers().GetForUpdate(ctx, l.CustomerID)
			if err != nil {
				return lookup(err, "customer", l.CustomerID)
			}
			after, err := s.RefreshStanding(ctx, tx, l.CustomerID)
			if err != nil {
				return err
			}
			if after.Status != before.Status {
				flipped = append(flipped, *after)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flipped, nil
}

func (s *customerAccount) GetCustomer(ctx context.Context, id int32) (*domain.Customer, error) {
	var out *domain.Customer
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		var err error
		out, err = tx.Customers().GetByID(ctx, id)
		return lookup(err, "customer", id)
	})
	return out, err
}

func (s *customerAccount) ListCustomers(ctx context.Context, status domain.CustomerStatus) ([]domain.Customer, error) {
	var out []domain.Customer
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		var err error
		out, err = tx.Customers().List(ctx, status)
		return err
	})
	return out, err
}

type standing struct {
	debt    decimal.Decimal
	overdue bool
}

func (st standing) status() domain.CustomerStatus {
	if st.debt.IsPositive() || st.overdue {
		return domain.CustomerStatusRestricted
	}
	return domain.CustomerStatusActive
}

func (s *customerAccount) standing(ctx context.Context, tx repository.Repositories, customerID int32) (standing, error) {
	loans, err := tx.Loans().ListByCustomer(ctx, customerID)
	if err != nil {
		return standing{}, fmt.Errorf("list loans: %w", err)
	}
	return deriveStanding(loans, s.now()), nil
}

func deriveStanding(loans []domain.Loan, now time.Time) standing {
	st := standing{debt: decimal.Zero}
	for i := range loans {
		st.debt = st.debt.Add(loans[i].Outstanding())
		if loans[i].IsOverdue(now) {
			st.overdue = true
		}
	}
	return st
}

func (s *customerAccount) apply(ctx context.Context, tx repository.Repositories, c *domain.Customer, st standing) (*domain.Customer, error) {
	status := st.status()
	if c.OutstandingDebt.Equal(st.debt) && c.Status == status {
		return c, nil
	}
	if c.Status != status {
		logger.InfoContext(ctx, "Customer status changed", "customer_id", c.ID, "from", c.Status, "to", status)
	}
	c.OutstandingDebt = st.debt
	c.Status = status
	if err := tx.Customers().Update(ctx, c); err != nil {
		return nil, storeErr(err, "update customer")
	}
	return c, nil
}
