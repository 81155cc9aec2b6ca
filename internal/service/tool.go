package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type toolUnitRegistry struct {
	store   repository.Store
	kardex  KardexRecorder
	rules   Rules
	metrics *metrics.Metrics
}

func NewToolUnitRegistry(store repository.Store, kardex KardexRecorder, rules Rules, m *metrics.Metrics) ToolUnitRegistry {
	return &toolUnitRegistry{
		store:   store,
		kardex:  kardex,
		rules:   rules,
		metrics: m,
	}
}

func (s *toolUnitRegistry) RegisterToolGroup(ctx context.Context, in RegisterToolGroupInput) (out *domain.ToolGroupStock, err error) {
	logger.EnterMethod(ctx, "RegisterToolGroup", "name", in.Name, "stock", in.Stock)
	defer func() { track(ctx, s.metrics, "RegisterToolGroup", err) }()

	group := &domain.ToolGroup{
		Name:             strings.TrimSpace(in.Name),
		Category:         strings.TrimSpace(in.Category),
		DailyRentalRate:  in.DailyRentalRate,
		DailyFineRate:    in.DailyFineRate,
		ReplacementValue: in.ReplacementValue,
	}
	if group.DailyFineRate.IsZero() {
		group.DailyFineRate = s.rules.DefaultDailyFineRate
	}
	if err := group.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkStock("stock", in.Stock, 0); err != nil {
		return nil, err
	}

	op := newOperation("RegisterToolGroup")
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		if err := tx.ToolGroups().Create(ctx, group); err != nil {
			return storeErr(err, "create tool group")
		}
		if _, err := s.provision(ctx, tx, op, group, in.Stock); err != nil {
			return err
		}
		out = &domain.ToolGroupStock{ToolGroup: *group, Available: int32(in.Stock)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *toolUnitRegistry) UpdateTariff(ctx context.Context, toolGroupID int32, dailyRentalRate, dailyFineRate decimal.Decimal) (*domain.ToolGroup, error) {
	return s.updateGroup(ctx, "UpdateTariff", toolGroupID, func(g *domain.ToolGroup) {
		g.DailyRentalRate = dailyRentalRate
		g.DailyFineRate = dailyFineRate
	})
}

func (s *toolUnitRegistry) UpdateReplacementValue(ctx context.Context, toolGroupID int32, value decimal.Decimal) (*domain.ToolGroup, error) {
	return s.updateGroup(ctx, "UpdateReplacementValue", toolGroupID, func(g *domain.ToolGroup) {
		g.ReplacementValue = value
	})
}

// updateGroup applies mutate and re-validates the whole group so a tariff
// change can never leave a non-positive rate behind.
func (s *toolUnitRegistry) updateGroup(ctx context.Context, method string, id int32, mutate func(g *domain.ToolGroup)) (out *domain.ToolGroup, err error) {
	logger.EnterMethod(ctx, method, "tool_group_id", id)
	defer func() { track(ctx, s.metrics, method, err) }()

	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		g, err := tx.ToolGroups().GetByID(ctx, id)
		if err != nil {
			return lookup(err, "tool_group", id)
		}
		mutate(g)
		if err := g.Validate(); err != nil {
			return err
		}
		if err := tx.ToolGroups().Update(ctx, g); err != nil {
			return storeErr(err, "update tool group")
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *toolUnitRegistry) ProvisionUnits(ctx context.Context, toolGroupID int32, count int) (out []domain.ToolUnit, err error) {
	logger.EnterMethod(ctx, "ProvisionUnits", "tool_group_id", toolGroupID, "count", count)
	defer func() { track(ctx, s.metrics, "ProvisionUnits", err) }()

	if err := s.checkStock("count", count, 1); err != nil {
		return nil, err
	}
	op := newOperation("ProvisionUnits")
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		g, err := tx.ToolGroups().GetByID(ctx, toolGroupID)
		if err != nil {
			return lookup(err, "tool_group", toolGroupID)
		}
		out, err = s.provision(ctx, tx, op, g, count)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *toolUnitRegistry) checkStock(field string, n, min int) error {
	if n < min {
		return domain.Validation(field, "must be at least %d", min)
	}
	if s.rules.MaxStockPerRequest > 0 && n > s.rules.MaxStockPerRequest {
		return domain.Validation(field, "must be at most %d", s.rules.MaxStockPerRequest)
	}
	return nil
}

// provision creates count AVAILABLE units and one REGISTRY entry per unit.
func (s *toolUnitRegistry) provision(ctx context.Context, tx repository.Repositories, op Operation, g *domain.ToolGroup, count int) ([]domain.ToolUnit, error) {
	units := make([]domain.ToolUnit, 0, count)
	for i := 0; i < count; i++ {
		u := domain.ToolUnit{ToolGroupID: g.ID, Status: domain.ToolStatusAvailable}
		if err := tx.ToolUnits().Create(ctx, &u); err != nil {
			return nil, storeErr(err, "create tool unit")
		}
		detail := fmt.Sprintf("unit registered in %s (%d of %d)", g.Name, i+1, count)
		if _, err := s.kardex.Record(ctx, tx, movement(op, domain.MovementRegistry, g.ID, u.ID, 0, 0, detail)); err != nil {
			return nil, storeErr(err, "record registry movement")
		}
		units = append(units, u)
	}
	return units, nil
}

func (s *toolUnitRegistry) ChangeStatus(ctx context.Context, unitID int32, target domain.ToolStatus) (out *domain.ToolUnit, err error) {
	logger.EnterMethod(ctx, "ChangeStatus", "unit_id", unitID, "target", target)
	defer func() { track(ctx, s.metrics, "ChangeStatus", err) }()

	op := newOperation("ChangeStatus")
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		out, err = s.Transition(ctx, tx, unitID, target, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// movementFor is the kardex type recorded when an operator moves a unit
// into target.
var movementFor = map[domain.ToolStatus]domain.MovementType{
	domain.ToolStatusInRepair:  domain.MovementRepair,
	domain.ToolStatusRetired:   domain.MovementRetire,
	domain.ToolStatusAvailable: domain.MovementReEntry,
}

// Transition applies an operator status change within tx. LOANED is never
// a legal target here; only reservation and release move units in and out
// of it.
func (s *toolUnitRegistry) Transition(ctx context.Context, tx repository.Repositories, unitID int32, target domain.ToolStatus, op Operation) (*domain.ToolUnit, error) {
	u, err := tx.ToolUnits().GetForUpdate(ctx, unitID)
	if err != nil {
		return nil, lookup(err, "tool_unit", unitID)
	}
	if u.Status == domain.ToolStatusRetired {
		return nil, domain.AlreadyRetired(unitID)
	}
	if !domain.CanTransition(u.Status, target) {
		return nil, domain.InvalidTransition("tool_unit", unitID, string(u.Status), string(target))
	}
	from := u.Status
	u.Status = target
	if err := tx.ToolUnits().Update(ctx, u); err != nil {
		return nil, storeErr(err, "update tool unit")
	}
	detail := fmt.Sprintf("%s -> %s", from, target)
	if _, err := s.kardex.Record(ctx, tx, movement(op, movementFor[target], u.ToolGroupID, u.ID, 0, 0, detail)); err != nil {
		return nil, storeErr(err, "record status movement")
	}
	return u, nil
}

// ReserveUnit claims the lowest-id AVAILABLE unit of the group and marks it
// LOANED. Concurrent reservations never receive the same unit: the postgres
// store skips rows locked by other claims, the memory store serializes
// writers.
func (s *toolUnitRegistry) ReserveUnit(ctx context.Context, tx repository.Repositories, toolGroupID int32) (*domain.ToolUnit, error) {
	u, err := tx.ToolUnits().ClaimAvailable(ctx, toolGroupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NoUnitsAvailable(toolGroupID)
		}
		return nil, storeErr(err, "claim tool unit")
	}
	u.Status = domain.ToolStatusLoaned
	if err := tx.ToolUnits().Update(ctx, u); err != nil {
		return nil, storeErr(err, "update tool unit")
	}
	return u, nil
}

// ReleaseUnit moves a LOANED unit to the status the outcome leads to.
func (s *toolUnitRegistry) ReleaseUnit(ctx context.Context, tx repository.Repositories, unitID int32, outcome domain.ReleaseOutcome) (*domain.ToolUnit, error) {
	u, err := tx.ToolUnits().GetForUpdate(ctx, unitID)
	if err != nil {
		return nil, lookup(err, "tool_unit", unitID)
	}
	target := outcome.Target()
	if u.Status != domain.ToolStatusLoaned {
		return nil, domain.InvalidTransition("tool_unit", unitID, string(u.Status), string(target))
	}
	u.Status = target
	if err := tx.ToolUnits().Update(ctx, u); err != nil {
		return nil, storeErr(err, "update tool unit")
	}
	return u, nil
}

func (s *toolUnitRegistry) GetToolGroup(ctx context.Context, id int32) (*domain.ToolGroupStock, error) {
	var out *domain.ToolGroupStock
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		g, err := tx.ToolGroups().GetByID(ctx, id)
		if err != nil {
			return lookup(err, "tool_group", id)
		}
		out, err = withStock(ctx, tx, g)
		return err
	})
	return out, err
}

func (s *toolUnitRegistry) ListToolGroups(ctx context.Context) ([]domain.ToolGroupStock, error) {
	var out []domain.ToolGroupStock
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		groups, err := tx.ToolGroups().List(ctx)
		if err != nil {
			return err
		}
		out = make([]domain.ToolGroupStock, 0, len(groups))
		for i := range groups {
			gs, err := withStock(ctx, tx, &groups[i])
			if err != nil {
				return err
			}
			out = append(out, *gs)
		}
		return nil
	})
	return out, err
}

func (s *toolUnitRegistry) ListUnits(ctx context.Context, toolGroupID int32) ([]domain.ToolUnit, error) {
	var out []domain.ToolUnit
	err := s.store.ReadTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.ToolGroups().GetByID(ctx, toolGroupID); err != nil {
			return lookup(err, "tool_group", toolGroupID)
		}
		var err error
		out, err = tx.ToolUnits().ListByGroup(ctx, toolGroupID)
		return err
	})
	return out, err
}

func withStock(ctx context.Context, tx repository.Repositories, g *domain.ToolGroup) (*domain.ToolGroupStock, error) {
	counts, err := tx.ToolUnits().CountByStatus(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return &domain.ToolGroupStock{
		ToolGroup: *g,
		Available: counts[domain.ToolStatusAvailable],
		Loaned:    counts[domain.ToolStatusLoaned],
		InRepair:  counts[domain.ToolStatusInRepair],
		Retired:   counts[domain.ToolStatusRetired],
	}, nil
}
