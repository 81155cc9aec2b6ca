package service

import (
	"context"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
	"toolrent-backend/internal/security"

	"github.com/google/uuid"
)

type kardexRecorder struct {
	store repository.Store
	now   Clock
}

func NewKardexRecorder(store repository.Store, now Clock) KardexRecorder {
	return &kardexRecorder{store: store, now: now}
}

// Record appends m with a server-assigned timestamp and the acting
// principal. Type must be one of the canonical movement types.
func (k *kardexRecorder) Record(ctx context.Context, tx repository.Repositories, m domain.KardexMovement) (*domain.KardexMovement, error) {
	if _, err := domain.ParseMovementType(string(m.Type)); err != nil || m.Type == "" {
		return nil, domain.Validation("type", "unknown movement type %q", m.Type)
	}
	if m.OperationID == uuid.Nil {
		m.OperationID = uuid.New()
	}
	m.ID = 0
	m.OccurredAt = k.now()
	m.Actor = security.Actor(ctx)
	if err := tx.Kardex().Append(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (k *kardexRecorder) List(ctx context.Context, filter domain.KardexFilter) ([]domain.KardexMovement, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.Validation("from", "from must not be after to")
	}
	var out []domain.KardexMovement
	err := k.store.ReadTx(ctx, func(tx repository.Repositories) error {
		var err error
		out, err = tx.Kardex().List(ctx, filter)
		return err
	})
	return out, err
}

// movement builds a kardex entry for op. Zero ids are left unset.
func movement(op Operation, t domain.MovementType, groupID, unitID, loanID, customerID int32, detail string) domain.KardexMovement {
	return domain.KardexMovement{
		OperationID: op.ID,
		Type:        t,
		ToolGroupID: domain.Ref(groupID),
		ToolUnitID:  domain.Ref(unitID),
		LoanID:      domain.Ref(loanID),
		CustomerID:  domain.Ref(customerID),
		Detail:      detail,
	}
}
