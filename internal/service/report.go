package service

import (
	"context"
	"fmt"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
)

// reportAggregator is read-only. Every report runs in one ReadTx so it never
// sees a half-committed ledger operation.
type reportAggregator struct {
	store repository.Store
	now   Clock
}

func NewReportAggregator(store repository.Store, now Clock) ReportAggregator {
	return &reportAggregator{store: store, now: now}
}

func checkWindow(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return domain.Validation("from", "from must not be after to")
	}
	return nil
}

// ActiveLoans lists ACTIVE loans opened in [from, to]; zero bounds are open.
func (r *reportAggregator) ActiveLoans(ctx context.Context, from, to time.Time) ([]domain.ActiveLoanView, error) {
	if err := checkWindow(from, to); err != nil {
		return nil, err
	}
	var out []domain.ActiveLoanView
	err := r.store.ReadTx(ctx, func(tx repository.Repositories) error {
		loans, err := tx.Loans().ListActive(ctx, from, to)
		if err != nil {
			return fmt.Errorf("list active loans: %w", err)
		}
		names := newNameCache(tx)
		now := r.now()
		out = make([]domain.ActiveLoanView, 0, len(loans))
		for _, l := range loans {
			customer, err := names.customer(ctx, l.CustomerID)
			if err != nil {
				return err
			}
			group, err := names.group(ctx, l.ToolGroupID)
			if err != nil {
				return err
			}
			out = append(out, domain.ActiveLoanView{
				Loan:          l,
				CustomerName:  customer.Name,
				ToolGroupName: group.Name,
				Overdue:       l.IsOverdue(now),
			})
		}
		return nil
	})
	return out, err
}

// TopTools ranks tool groups by LOAN movements in [from, to]. A zero to
// means now.
func (r *reportAggregator) TopTools(ctx context.Context, from, to time.Time) ([]domain.ToolRanking, error) {
	if to.IsZero() {
		to = r.now()
	}
	if err := checkWindow(from, to); err != nil {
		return nil, err
	}
	var out []domain.ToolRanking
	err := r.store.ReadTx(ctx, func(tx repository.Repositories) error {
		counts, err := tx.Kardex().CountByToolGroup(ctx, domain.MovementLoan, from, to)
		if err != nil {
			return fmt.Errorf("count loan movements: %w", err)
		}
		names := newNameCache(tx)
		out = make([]domain.ToolRanking, 0, len(counts))
		for _, c := range counts {
			g, err := names.group(ctx, c.ToolGroupID)
			if err != nil {
				return err
			}
			out = append(out, domain.ToolRanking{
				ToolGroupID:   c.ToolGroupID,
				ToolGroupName: g.Name,
				Category:      g.Category,
				Total:         c.Total,
			})
		}
		return nil
	})
	return out, err
}

func (r *reportAggregator) CustomersWithDebt(ctx context.Context) ([]domain.CustomerDebtView, error) {
	var out []domain.CustomerDebtView
	err := r.store.ReadTx(ctx, func(tx repository.Repositories) error {
		customers, err := tx.Customers().ListWithDebt(ctx)
		if err != nil {
			return fmt.Errorf("list customers with debt: %w", err)
		}
		now := r.now()
		out = make([]domain.CustomerDebtView, 0, len(customers))
		for i := range customers {
			v, err := debtView(ctx, tx, &customers[i], now)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// OverdueCustomers lists customers holding at least one ACTIVE loan past its
// due date, most overdue first.
func (r *reportAggregator) OverdueCustomers(ctx context.Context) ([]domain.CustomerDebtView, error) {
	var out []domain.CustomerDebtView
	err := r.store.ReadTx(ctx, func(tx repository.Repositories) error {
		now := r.now()
		loans, err := tx.Loans().ListOverdue(ctx, now)
		if err != nil {
			return fmt.Errorf("list overdue loans: %w", err)
		}
		seen := make(map[int32]bool)
		for _, l := range loans {
			if seen[l.CustomerID] {
				continue
			}
			seen[l.CustomerID] = true
			c, err := tx.Customers().GetByID(ctx, l.CustomerID)
			if err != nil {
				return lookup(err, "customer", l.CustomerID)
			}
			v, err := debtView(ctx, tx, c, now)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (r *reportAggregator) PendingPayment(ctx context.Context) ([]domain.Loan, error) {
	var out []domain.Loan
	err := r.store.ReadTx(ctx, func(tx repository.Repositories) error {
		var err error
		out, err = tx.Loans().ListUnpaid(ctx)
		return err
	})
	return out, err
}

// debtView annotates c with the due date of its oldest unpaid loan and
// whether any of its active loans is overdue.
func debtView(ctx context.Context, tx repository.Repositories, c *domain.Customer, now time.Time) (domain.CustomerDebtView, error) {
	loans, err := tx.Loans().ListByCustomer(ctx, c.ID)
	if err != nil {
		return domain.CustomerDebtView{}, fmt.Errorf("list loans: %w", err)
	}
	v := domain.CustomerDebtView{
		CustomerID: c.ID,
		Name:       c.Name,
		NationalID: c.NationalID,
		Email:      c.Email,
		TotalDebt:  c.OutstandingDebt,
	}
	for i := range loans {
		l := &loans[i]
		if l.IsOverdue(now) {
			v.HasOverdueLoan = true
		}
		if !l.Outstanding().IsPositive() {
			continue
		}
		if v.OldestDueDate == nil || l.DueDate.Before(*v.OldestDueDate) {
			due := l.DueDate
			v.OldestDueDate = &due
		}
	}
	return v, nil
}

type nameCache struct {
	tx        repository.Repositories
	customers map[int32]*domain.Customer
	groups    map[int32]*domain.ToolGroup
}

func newNameCache(tx repository.Repositories) *nameCache {
	return &nameCache{
		tx:        tx,
		customers: make(map[int32]*domain.Customer),
		groups:    make(map[int32]*domain.ToolGroup),
	}
}

func (n *nameCache) customer(ctx context.Context, id int32) (*domain.Customer, error) {
	if c, ok := n.customers[id]; ok {
		return c, nil
	}
	c, err := n.tx.Customers().GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "customer", id)
	}
	n.customers[id] = c
	return c, nil
}

func (n *nameCache) group(ctx context.Context, id int32) (*domain.ToolGroup, error) {
	if g, ok := n.groups[id]; ok {
		return g, nil
	}
	g, err := n.tx.ToolGroups().GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "tool_group", id)
	}
	n.groups[id] = g
	return g, nil
}
