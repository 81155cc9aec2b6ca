package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type loanLedger struct {
	store     repository.Store
	registry  ToolUnitRegistry
	customers CustomerAccount
	kardex    KardexRecorder
	metrics   *metrics.Metrics
	now       Clock

	mu        sync.RWMutex
	observers []LedgerObserver
}

// NewLoanLedger wires the ledger to its collaborators. The customer account
// is subscribed first so debt and standing are settled before any other
// observer sees an event.
func NewLoanLedger(store repository.Store, registry ToolUnitRegistry, customers CustomerAccount, kardex KardexRecorder, m *metrics.Metrics, now Clock) LoanLedger {
	l := &loanLedger{
		store:     store,
		registry:  registry,
		customers: customers,
		kardex:    kardex,
		metrics:   m,
		now:       now,
	}
	l.Subscribe(customers)
	return l
}

func (s *loanLedger) Subscribe(o LedgerObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *loanLedger) publish(ctx context.Context, tx repository.Repositories, ev LedgerEvent) error {
	s.mu.RLock()
	observers := append([]LedgerObserver(nil), s.observers...)
	s.mu.RUnlock()

	logger.Debug("Publishing ledger event", "kind", ev.Kind, "loan_id", ev.LoanID, "customer_id", ev.CustomerID, "amount", ev.Amount.String())
	for _, o := range observers {
		if err := o.OnLedgerEvent(ctx, tx, ev); err != nil {
			return err
		}
	}
	return nil
}

// RegisterLoan checks eligibility, reserves a unit and opens the loan as one
// transaction. Any failure leaves customer, unit and loans untouched.
func (s *loanLedger) RegisterLoan(ctx context.Context, in RegisterLoanInput) (out *domain.Loan, err error) {
	logger.EnterMethod(ctx, "RegisterLoan", "customer_id", in.CustomerID, "tool_group_id", in.ToolGroupID)
	defer func() { track(ctx, s.metrics, "RegisterLoan", err) }()

	now := s.now()
	if in.DueDate.IsZero() || !in.DueDate.After(now) {
		return nil, domain.Validation("due_date", "due date must be in the future")
	}

	op := newOperation("RegisterLoan")
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		c, err := tx.Customers().GetForUpdate(ctx, in.CustomerID)
		if err != nil {
			return lookup(err, "customer", in.CustomerID)
		}
		group, err := tx.ToolGroups().GetByID(ctx, in.ToolGroupID)
		if err != nil {
			return lookup(err, "tool_group", in.ToolGroupID)
		}
		el, err := s.customers.Eligibility(ctx, tx, c, group.ID)
		if err != nil {
			return err
		}
		if !el.Eligible {
			return domain.Ineligible(c.ID, el.Reason)
		}

		unit, err := s.registry.ReserveUnit(ctx, tx, group.ID)
		if err != nil {
			return err
		}
		loan := &domain.Loan{
			CustomerID:    c.ID,
			ToolUnitID:    unit.ID,
			ToolGroupID:   group.ID,
			LoanDate:      now,
			DueDate:       in.DueDate,
			Status:        domain.LoanStatusActive,
			TotalCost:     domain.RentalCost(now, in.DueDate, group.DailyRentalRate),
			FineAmount:    decimal.Zero,
			DamageCharge:  decimal.Zero,
			SettledAmount: decimal.Zero,
		}
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return storeErr(err, "create loan")
		}

		detail := fmt.Sprintf("%s loaned to %s until %s", group.Name, c.Name, in.DueDate.Format("2006-01-02"))
		if _, err := s.kardex.Record(ctx, tx, movement(op, domain.MovementLoan, group.ID, unit.ID, loan.ID, c.ID, detail)); err != nil {
			return storeErr(err, "record loan movement")
		}
		if err := s.publish(ctx, tx, LedgerEvent{Kind: EventLoanOpened, Operation: op, CustomerID: c.ID, LoanID: loan.ID, Amount: decimal.Zero, At: now}); err != nil {
			return err
		}
		out = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReturnLoan closes an ACTIVE loan, computing the late fine from the group's
// daily fine rate. An irreparable unit is billed its replacement value and
// retired; any other positive damage sends it to repair.
func (s *loanLedger) ReturnLoan(ctx context.Context, in ReturnLoanInput) (out *domain.Loan, err error) {
	logger.EnterMethod(ctx, "ReturnLoan", "loan_id", in.LoanID, "irreparable", in.Irreparable)
	defer func() { track(ctx, s.metrics, "ReturnLoan", err) }()

	if in.DamageCharge.IsNegative() {
		return nil, domain.Validation("damage_charge", "damage charge cannot be negative")
	}

	op := newOperation("ReturnLoan")
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		loan, err := tx.Loans().GetForUpdate(ctx, in.LoanID)
		if err != nil {
			return lookup(err, "loan", in.LoanID)
		}
		if loan.Status != domain.LoanStatusActive {
			return domain.InvalidTransition("loan", loan.ID, string(loan.Status), string(domain.LoanStatusReturned))
		}
		group, err := tx.ToolGroups().GetByID(ctx, loan.ToolGroupID)
		if err != nil {
			return lookup(err, "tool_group", loan.ToolGroupID)
		}

		now := s.now()
		damage := in.DamageCharge
		outcome := domain.ReleaseNormal
		switch {
		case in.Irreparable:
			damage = group.ReplacementValue
			outcome = domain.ReleaseRetire
		case damage.IsPositive():
			outcome = domain.ReleaseRepair
		}
		if _, err := s.registry.ReleaseUnit(ctx, tx, loan.ToolUnitID, outcome); err != nil {
			return err
		}

		loan.ReturnDate = &now
		loan.Status = domain.LoanStatusReturned
		loan.FineAmount = domain.LateFine(loan.DueDate, now, group.DailyFineRate)
		loan.DamageCharge = damage
		loan.SettledAmount = decimal.Zero
		loan.Paid = !loan.Charges().IsPositive()
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return storeErr(err, "update loan")
		}

		detail := fmt.Sprintf("returned %d day(s) late, fine %s, damage %s",
			domain.DaysOverdue(loan.DueDate, now), loan.FineAmount.StringFixed(2), damage.StringFixed(2))
		if _, err := s.kardex.Record(ctx, tx, movement(op, domain.MovementReturn, group.ID, loan.ToolUnitID, loan.ID, loan.CustomerID, detail)); err != nil {
			return storeErr(err, "record return movement")
		}
		switch outcome {
		case domain.ReleaseRepair:
			_, err = s.kardex.Record(ctx, tx, movement(op, domain.MovementRepair, group.ID, loan.ToolUnitID, loan.ID, loan.CustomerID, "damaged on return"))
		case domain.ReleaseRetire:
			_, err = s.kardex.Record(ctx, tx, movement(op, domain.MovementRetire, group.ID, loan.ToolUnitID, loan.ID, loan.CustomerID, "irreparable on return"))
		}
		if err != nil {
			return storeErr(err, "record release movement")
		}

		ev := LedgerEvent{Kind: EventLoanReturned, Operation: op, CustomerID: loan.CustomerID, LoanID: loan.ID, Amount: loan.Charges(), At: now}
		if err := s.publish(ctx, tx, ev); err != nil {
			return err
		}
		out = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *loanLedger) PayLoanDebts(ctx context.Context, loanID int32) (out *domain.Loan, err error) {
	logger.EnterMethod(ctx, "PayLoanDebts", "loan_id", loanID)
	defer func() { track(ctx, s.metrics, "PayLoanDebts", err) }()

	op := newOperation("PayLoanDebts")
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		loan, err := tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return lookup(err, "loan", loanID)
		}
		if loan.Status != domain.LoanStatusReturned {
			return domain.InvalidTransition("loan", loan.ID, string(loan.Status), "PAID")
		}
		if err := s.pay(ctx, tx, op, loan); err != nil {
			return err
		}
		out, err = tx.Loans().GetByID(ctx, loanID)
		return lookup(err, "loan", loanID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PayCustomerDebt settles every returned loan of the customer that still
// carries charges.
func (s *loanLedger) PayCustomerDebt(ctx context.Context, customerID int32) (out *domain.Customer, err error) {
	logger.EnterMethod(ctx, "PayCustomerDebt", "customer_id", customerID)
	defer func() { track(ctx, s.metrics, "PayCustomerDebt", err) }()

	op := newOperation("PayCustomerDebt")
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Customers().GetForUpdate(ctx, customerID); err != nil {
			return lookup(err, "customer", customerID)
		}
		loans, err := tx.Loans().ListByCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("list loans: %w", err)
		}
		var paid int
		for i := range loans {
			if !loans[i].Outstanding().IsPositive() {
				continue
			}
			if err := s.pay(ctx, tx, op, &loans[i]); err != nil {
				return err
			}
			paid++
		}
		if paid == 0 {
			return domain.AlreadyPaid("customer", customerID)
		}
		out, err = tx.Customers().GetByID(ctx, customerID)
		return lookup(err, "customer", customerID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *loanLedger) pay(ctx context.Context, tx repository.Repositories, op Operation, loan *domain.Loan) error {
	amount := loan.Outstanding()
	if !amount.IsPositive() {
		return domain.AlreadyPaid("loan", loan.ID)
	}
	return s.publish(ctx, tx, LedgerEvent{
		Kind:       EventPaymentReceived,
		Operation:  op,
		CustomerID: loan.CustomerID,
		LoanID:     loan.ID,
		Amount:     amount,
		At:         s.now(),
	})
}

// ResolveRepair decides the fate of a unit sitting IN_REPAIR. Retiring it
// may bill an additional charge to the loan that sent it to repair; that
// charge reopens the loan's debt even when it was already paid.
func (s *loanLedger) ResolveRepair(ctx context.Context, in ResolveRepairInput) (out *domain.ToolUnit, err error) {
	logger.EnterMethod(ctx, "ResolveRepair", "unit_id", in.UnitID, "outcome", in.Outcome)
	defer func() { track(ctx, s.metrics, "ResolveRepair", err) }()

	var target domain.ToolStatus
	switch in.Outcome {
	case domain.RepairResolutionAvailable:
		target = domain.ToolStatusAvailable
	case domain.RepairResolutionRetire:
		target = domain.ToolStatusRetired
	default:
		return nil, domain.Validation("outcome", "unknown repair resolution %q", in.Outcome)
	}
	if in.AdditionalCharge.IsNegative() {
		return nil, domain.Validation("additional_charge", "additional charge cannot be negative")
	}
	if in.AdditionalCharge.IsPositive() && target != domain.ToolStatusRetired {
		return nil, domain.Validation("additional_charge", "additional charge is only billed when retiring a unit")
	}

	op := newOperation("ResolveRepair")
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		unit, err := tx.ToolUnits().GetForUpdate(ctx, in.UnitID)
		if err != nil {
			return lookup(err, "tool_unit", in.UnitID)
		}
		if unit.Status == domain.ToolStatusRetired {
			return domain.AlreadyRetired(unit.ID)
		}
		if unit.Status != domain.ToolStatusInRepair {
			return domain.InvalidTransition("tool_unit", unit.ID, string(unit.Status), string(target))
		}

		if in.AdditionalCharge.IsPositive() {
			if err := s.chargeRepair(ctx, tx, op, unit, in.AdditionalCharge); err != nil {
				return err
			}
		}
		out, err = s.registry.Transition(ctx, tx, unit.ID, target, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *loanLedger) chargeRepair(ctx context.Context, tx repository.Repositories, op Operation, unit *domain.ToolUnit, charge decimal.Decimal) error {
	loan, err := tx.Loans().LastReturnedByUnit(ctx, unit.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Validation("additional_charge", "unit %d has no returned loan to bill", unit.ID)
		}
		return storeErr(err, "load last returned loan")
	}
	loan.DamageCharge = loan.DamageCharge.Add(charge)
	loan.Paid = false
	if err := tx.Loans().Update(ctx, loan); err != nil {
		return storeErr(err, "update loan")
	}
	logger.InfoContext(ctx, "Repair charge billed", "unit_id", unit.ID, "loan_id", loan.ID, "customer_id", loan.CustomerID, "amount", charge.String())
	return s.publish(ctx, tx, LedgerEvent{
		Kind:       EventRepairCharged,
		Operation:  op,
		CustomerID: loan.CustomerID,
		LoanID:     loan.ID,
		Amount:     charge,
		At:         s.now(),
	})
}

func (s *loanLedger) GetLoan(ctx context.Context, id int32) (*domain.Loan, error) {
	var out *domain.Loan
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		var err error
		out, err = tx.Loans().GetByID(ctx, id)
		return lookup(err, "loan", id)
	})
	return out, err
}

func (s *loanLedger) ListCustomerLoans(ctx context.Context, customerID int32) ([]domain.Loan, error) {
	var out []domain.Loan
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Customers().GetByID(ctx, customerID); err != nil {
			return lookup(err, "customer", customerID)
		}
		var err error
		out, err = tx.Loans().ListByCustomer(ctx, customerID)
		return err
	})
	return out, err
}

func (s *loanLedger) ListOverdue(ctx context.Context) ([]domain.Loan, error) {
	var out []domain.Loan
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		var err error
		out, err = tx.Loans().ListOverdue(ctx, s.now())
		return err
	})
	return out, err
}
