// Package memory is an in-process repository.Store used by tests and by
// single-node deployments that run without Postgres.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
)

var errReadOnly = errors.New("write attempted in read-only transaction")

type state struct {
	customers map[int32]domain.Customer
	groups    map[int32]domain.ToolGroup
	units     map[int32]domain.ToolUnit
	loans     map[int32]domain.Loan
	kardex    []domain.KardexMovement

	customerSeq int32
	groupSeq    int32
	unitSeq     int32
	loanSeq     int32
	kardexSeq   int64
}

func newState() *state {
	return &state{
		customers: make(map[int32]domain.Customer),
		groups:    make(map[int32]domain.ToolGroup),
		units:     make(map[int32]domain.ToolUnit),
		loans:     make(map[int32]domain.Loan),
	}
}

func (s *state) clone() *state {
	c := *s
	c.customers = maps.Clone(s.customers)
	c.groups = maps.Clone(s.groups)
	c.units = maps.Clone(s.units)
	c.loans = maps.Clone(s.loans)
	c.kardex = append([]domain.KardexMovement(nil), s.kardex...)
	return &c
}

// scope decides how a repository call reaches the state: directly inside a
// transaction, or under the store lock for standalone calls.
type scope interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

type txScope struct {
	st       *state
	readOnly bool
}

func (t *txScope) read(fn func(st *state) error) error { return fn(t.st) }

func (t *txScope) write(fn func(st *state) error) error {
	if t.readOnly {
		return errReadOnly
	}
	return fn(t.st)
}

type repositories struct {
	customers  *customerRepository
	toolGroups *toolGroupRepository
	toolUnits  *toolUnitRepository
	loans      *loanRepository
	kardex     *kardexRepository
}

func newRepositories(sc scope) *repositories {
	return &repositories{
		customers:  &customerRepository{sc: sc},
		toolGroups: &toolGroupRepository{sc: sc},
		toolUnits:  &toolUnitRepository{sc: sc},
		loans:      &loanRepository{sc: sc},
		kardex:     &kardexRepository{sc: sc},
	}
}

func (r *repositories) Customers() repository.CustomerRepository   { return r.customers }
func (r *repositories) ToolGroups() repository.ToolGroupRepository { return r.toolGroups }
func (r *repositories) ToolUnits() repository.ToolUnitRepository   { return r.toolUnits }
func (r *repositories) Loans() repository.LoanRepository           { return r.loans }
func (r *repositories) Kardex() repository.KardexRepository        { return r.kardex }

// Store serializes writers on one mutex. A transaction works on a private
// copy of the state that replaces the committed state only when fn returns
// nil, so a failed operation leaves nothing behind.
//
// Calls made on the Store's own repositories from inside WithTx or ReadTx
// deadlock; use the tx handle instead.
type Store struct {
	mu sync.RWMutex
	st *state
	*repositories
}

func NewStore() *Store {
	s := &Store{st: newState()}
	s.repositories = newRepositories(s)
	return s
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := s.st.clone()
	if err := fn(staged); err != nil {
		return err
	}
	s.st = staged
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		return fn(newRepositories(&txScope{st: st}))
	})
}

func (s *Store) ReadTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.read(func(st *state) error {
		return fn(newRepositories(&txScope{st: st, readOnly: true}))
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}
