package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
)

type customerRepository struct{ sc scope }

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	return r.sc.write(func(st *state) error {
		for _, existing := range st.customers {
			if existing.NationalID == c.NationalID {
				return fmt.Errorf("%w: customers_national_id_key", repository.ErrDuplicate)
			}
		}
		st.customerSeq++
		now := time.Now()
		c.ID, c.CreatedOn, c.UpdatedOn = st.customerSeq, now, now
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *customerRepository) GetByID(ctx context.Context, id int32) (*domain.Customer, error) {
	var out domain.Customer
	err := r.sc.read(func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForUpdate needs no lock of its own: writers are already serialized.
func (r *customerRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Customer, error) {
	return r.GetByID(ctx, id)
}

func (r *customerRepository) GetByNationalID(ctx context.Context, nationalID string) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.sc.read(func(st *state) error {
		for _, c := range st.customers {
			if c.NationalID == nationalID {
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	return r.sc.write(func(st *state) error {
		existing, ok := st.customers[c.ID]
		if !ok {
			return repository.ErrNotFound
		}
		c.NationalID, c.CreatedOn = existing.NationalID, existing.CreatedOn
		c.UpdatedOn = time.Now()
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *customerRepository) List(ctx context.Context, status domain.CustomerStatus) ([]domain.Customer, error) {
	return r.filter(func(c *domain.Customer) bool { return status == "" || c.Status == status })
}

func (r *customerRepository) ListWithDebt(ctx context.Context) ([]domain.Customer, error) {
	return r.filter(func(c *domain.Customer) bool { return c.OutstandingDebt.IsPositive() })
}

func (r *customerRepository) filter(keep func(c *domain.Customer) bool) ([]domain.Customer, error) {
	var out []domain.Customer
	err := r.sc.read(func(st *state) error {
		for _, c := range st.customers {
			if keep(&c) {
				out = append(out, c)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Customer) int { return int(a.ID - b.ID) })
	return out, err
}

type toolGroupRepository struct{ sc scope }

func (r *toolGroupRepository) Create(ctx context.Context, g *domain.ToolGroup) error {
	return r.sc.write(func(st *state) error {
		st.groupSeq++
		now := time.Now()
		g.ID, g.CreatedOn, g.UpdatedOn = st.groupSeq, now, now
		st.groups[g.ID] = *g
		return nil
	})
}

func (r *toolGroupRepository) GetByID(ctx context.Context, id int32) (*domain.ToolGroup, error) {
	var out domain.ToolGroup
	err := r.sc.read(func(st *state) error {
		g, ok := st.groups[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *toolGroupRepository) Update(ctx context.Context, g *domain.ToolGroup) error {
	return r.sc.write(func(st *state) error {
		existing, ok := st.groups[g.ID]
		if !ok {
			return repository.ErrNotFound
		}
		g.CreatedOn, g.UpdatedOn = existing.CreatedOn, time.Now()
		st.groups[g.ID] = *g
		return nil
	})
}

func (r *toolGroupRepository) List(ctx context.Context) ([]domain.ToolGroup, error) {
	var out []domain.ToolGroup
	err := r.sc.read(func(st *state) error {
		for _, g := range st.groups {
			out = append(out, g)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.ToolGroup) int { return int(a.ID - b.ID) })
	return out, err
}

type toolUnitRepository struct{ sc scope }

func (r *toolUnitRepository) Create(ctx context.Context, u *domain.ToolUnit) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.groups[u.ToolGroupID]; !ok {
			return fmt.Errorf("tool group %d does not exist", u.ToolGroupID)
		}
		st.unitSeq++
		now := time.Now()
		u.ID, u.CreatedOn, u.UpdatedOn = st.unitSeq, now, now
		st.units[u.ID] = *u
		return nil
	})
}

func (r *toolUnitRepository) GetByID(ctx context.Context, id int32) (*domain.ToolUnit, error) {
	var out domain.ToolUnit
	err := r.sc.read(func(st *state) error {
		u, ok := st.units[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *toolUnitRepository) GetForUpdate(ctx context.Context, id int32) (*domain.ToolUnit, error) {
	return r.GetByID(ctx, id)
}

func (r *toolUnitRepository) ClaimAvailable(ctx context.Context, toolGroupID int32) (*domain.ToolUnit, error) {
	var out *domain.ToolUnit
	err := r.sc.read(func(st *state) error {
		for _, u := range st.units {
			if u.ToolGroupID != toolGroupID || u.Status != domain.ToolStatusAvailable {
				continue
			}
			if out == nil || u.ID < out.ID {
				out = &u
			}
		}
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *toolUnitRepository) Update(ctx context.Context, u *domain.ToolUnit) error {
	return r.sc.write(func(st *state) error {
		existing, ok := st.units[u.ID]
		if !ok {
			return repository.ErrNotFound
		}
		u.ToolGroupID, u.CreatedOn, u.UpdatedOn = existing.ToolGroupID, existing.CreatedOn, time.Now()
		st.units[u.ID] = *u
		return nil
	})
}

func (r *toolUnitRepository) ListByGroup(ctx context.Context, toolGroupID int32) ([]domain.ToolUnit, error) {
	var out []domain.ToolUnit
	err := r.sc.read(func(st *state) error {
		for _, u := range st.units {
			if u.ToolGroupID == toolGroupID {
				out = append(out, u)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.ToolUnit) int { return int(a.ID - b.ID) })
	return out, err
}

func (r *toolUnitRepository) CountByStatus(ctx context.Context, toolGroupID int32) (map[domain.ToolStatus]int32, error) {
	counts := make(map[domain.ToolStatus]int32)
	err := r.sc.read(func(st *state) error {
		for _, u := range st.units {
			if u.ToolGroupID == toolGroupID {
				counts[u.Status]++
			}
		}
		return nil
	})
	return counts, err
}

type loanRepository struct{ sc scope }

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	return r.sc.write(func(st *state) error {
		if l.Status == domain.LoanStatusActive {
			for _, existing := range st.loans {
				if existing.ToolUnitID == l.ToolUnitID && existing.Status == domain.LoanStatusActive {
					return fmt.Errorf("%w: loans_one_active_per_unit", repository.ErrDuplicate)
				}
			}
		}
		st.loanSeq++
		now := time.Now()
		l.ID, l.CreatedOn, l.UpdatedOn = st.loanSeq, now, now
		st.loans[l.ID] = *l
		return nil
	})
}

func (r *loanRepository) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	var out domain.Loan
	err := r.sc.read(func(st *state) error {
		l, ok := st.loans[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *loanRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r *loanRepository) Update(ctx context.Context, l *domain.Loan) error {
	return r.sc.write(func(st *state) error {
		existing, ok := st.loans[l.ID]
		if !ok {
			return repository.ErrNotFound
		}
		// Only the mutable columns change, matching the SQL UPDATE.
		existing.ReturnDate = l.ReturnDate
		existing.Status = l.Status
		existing.FineAmount = l.FineAmount
		existing.DamageCharge = l.DamageCharge
		existing.SettledAmount = l.SettledAmount
		existing.Paid = l.Paid
		existing.UpdatedOn = time.Now()
		st.loans[l.ID] = existing
		l.UpdatedOn = existing.UpdatedOn
		return nil
	})
}

func (r *loanRepository) ListByCustomer(ctx context.Context, customerID int32) ([]domain.Loan, error) {
	out, err := r.filter(func(l *domain.Loan) bool { return l.CustomerID == customerID })
	slices.SortFunc(out, func(a, b domain.Loan) int {
		if c := b.LoanDate.Compare(a.LoanDate); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, err
}

func (r *loanRepository) ActiveByUnit(ctx context.Context, toolUnitID int32) (*domain.Loan, error) {
	out, err := r.filter(func(l *domain.Loan) bool {
		return l.ToolUnitID == toolUnitID && l.Status == domain.LoanStatusActive
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return &out[0], nil
}

func (r *loanRepository) LastReturnedByUnit(ctx context.Context, toolUnitID int32) (*domain.Loan, error) {
	out, err := r.filter(func(l *domain.Loan) bool {
		return l.ToolUnitID == toolUnitID && l.Status == domain.LoanStatusReturned
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	sortByReturnDesc(out)
	return &out[0], nil
}

func (r *loanRepository) ListActive(ctx context.Context, from, to time.Time) ([]domain.Loan, error) {
	out, err := r.filter(func(l *domain.Loan) bool {
		if l.Status != domain.LoanStatusActive {
			return false
		}
		if !from.IsZero() && l.LoanDate.Before(from) {
			return false
		}
		return to.IsZero() || !l.LoanDate.After(to)
	})
	sortByDue(out)
	return out, err
}

func (r *loanRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Loan, error) {
	out, err := r.filter(func(l *domain.Loan) bool { return l.IsOverdue(now) })
	sortByDue(out)
	return out, err
}

func (r *loanRepository) ListUnpaid(ctx context.Context) ([]domain.Loan, error) {
	out, err := r.filter(func(l *domain.Loan) bool {
		return l.Status == domain.LoanStatusReturned && !l.Paid
	})
	sortByReturnDesc(out)
	return out, err
}

func (r *loanRepository) filter(keep func(l *domain.Loan) bool) ([]domain.Loan, error) {
	var out []domain.Loan
	err := r.sc.read(func(st *state) error {
		for _, l := range st.loans {
			if keep(&l) {
				out = append(out, l)
			}
		}
		return nil
	})
	return out, err
}

func sortByDue(loans []domain.Loan) {
	slices.SortFunc(loans, func(a, b domain.Loan) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
}

func sortByReturnDesc(loans []domain.Loan) {
	slices.SortFunc(loans, func(a, b domain.Loan) int {
		var ra, rb time.Time
		if a.ReturnDate != nil {
			ra = *a.ReturnDate
		}
		if b.ReturnDate != nil {
			rb = *b.ReturnDate
		}
		if c := rb.Compare(ra); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
}

type kardexRepository struct{ sc scope }

func (r *kardexRepository) Append(ctx context.Context, m *domain.KardexMovement) error {
	return r.sc.write(func(st *state) error {
		st.kardexSeq++
		m.ID = st.kardexSeq
		st.kardex = append(st.kardex, *m)
		return nil
	})
}

func (r *kardexRepository) List(ctx context.Context, f domain.KardexFilter) ([]domain.KardexMovement, error) {
	var out []domain.KardexMovement
	err := r.sc.read(func(st *state) error {
		for i := range st.kardex {
			if f.Matches(&st.kardex[i]) {
				out = append(out, st.kardex[i])
			}
		}
		return nil
	})
	slices.SortStableFunc(out, func(a, b domain.KardexMovement) int {
		if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, err
}

func (r *kardexRepository) CountByToolGroup(ctx context.Context, movementType domain.MovementType, from, to time.Time) ([]domain.GroupCount, error) {
	totals := make(map[int32]int64)
	err := r.sc.read(func(st *state) error {
		for _, m := range st.kardex {
			if m.Type != movementType || m.ToolGroupID == nil {
				continue
			}
			if m.OccurredAt.Before(from) || m.OccurredAt.After(to) {
				continue
			}
			totals[*m.ToolGroupID]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.GroupCount, 0, len(totals))
	for id, n := range totals {
		out = append(out, domain.GroupCount{ToolGroupID: id, Total: n})
	}
	slices.SortFunc(out, func(a, b domain.GroupCount) int {
		if a.Total != b.Total {
			if a.Total > b.Total {
				return -1
			}
			return 1
		}
		return int(a.ToolGroupID - b.ToolGroupID)
	})
	return out, nil
}
