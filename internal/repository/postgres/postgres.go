package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/repository"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every repository can
// run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositories struct {
	customers  repository.CustomerRepository
	toolGroups repository.ToolGroupRepository
	toolUnits  repository.ToolUnitRepository
	loans      repository.LoanRepository
	kardex     repository.KardexRepository
}

func newRepositories(q DBTX) *repositories {
	return &repositories{
		customers:  NewCustomerRepository(q),
		toolGroups: NewToolGroupRepository(q),
		toolUnits:  NewToolUnitRepository(q),
		loans:      NewLoanRepository(q),
		kardex:     NewKardexRepository(q),
	}
}

func (r *repositories) Customers() repository.CustomerRepository   { return r.customers }
func (r *repositories) ToolGroups() repository.ToolGroupRepository { return r.toolGroups }
func (r *repositories) ToolUnits() repository.ToolUnitRepository   { return r.toolUnits }
func (r *repositories) Loans() repository.LoanRepository           { return r.loans }
func (r *repositories) Kardex() repository.KardexRepository        { return r.kardex }

type Store struct {
	db *sql.DB
	*repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		repositories: newRepositories(db),
	}
}

// WithTx runs fn in a read-write transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	return s.run(ctx, nil, fn)
}

// ReadTx runs fn in a read-only repeatable-read transaction so multi-query
// views never mix committed states.
func (s *Store) ReadTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(tx repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		logger.DatabaseResult("begin", 0, err)
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.DatabaseResult("commit", 0, err)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// mapError converts driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// expectOne turns a zero-row UPDATE into ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
