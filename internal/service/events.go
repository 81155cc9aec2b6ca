package service

import (
	"context"
	"time"

	"toolrent-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation correlates the kardex entries written by one engine operation.
type Operation struct {
	ID   uuid.UUID
	Name string
}

func newOperation(name string) Operation {
	return Operation{ID: uuid.New(), Name: name}
}

type LedgerEventKind string

const (
	EventLoanOpened      LedgerEventKind = "LOAN_OPENED"
	EventLoanReturned    LedgerEventKind = "LOAN_RETURNED"
	EventPaymentReceived LedgerEventKind = "PAYMENT_RECEIVED"
	EventRepairCharged   LedgerEventKind = "REPAIR_CHARGED"
)

// LedgerEvent is published by the loan ledger after it staged a change and
// before the transaction commits. Amount is the charge billed by the event,
// zero when nothing was billed.
type LedgerEvent struct {
	Kind       LedgerEventKind
	Operation  Operation
	CustomerID int32
	LoanID     int32
	Amount     decimal.Decimal
	At         time.Time
}

// LedgerObserver reacts to ledger events inside the publishing transaction.
// An error aborts the whole operation.
type LedgerObserver interface {
	OnLedgerEvent(ctx context.Context, tx repository.Repositories, ev LedgerEvent) error
}
