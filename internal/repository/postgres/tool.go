package postgres

import (
	"context"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
)

type toolGroupRepository struct {
	db DBTX
}

func NewToolGroupRepository(db DBTX) repository.ToolGroupRepository {
	return &toolGroupRepository{db: db}
}

const toolGroupColumns = `id, name, category, daily_rental_rate, daily_fine_rate, replacement_value, created_on, updated_on`

func scanToolGroup(row rowScanner) (*domain.ToolGroup, error) {
	g := &domain.ToolGroup{}
	err := row.Scan(&g.ID, &g.Name, &g.Category, &g.DailyRentalRate, &g.DailyFineRate, &g.ReplacementValue, &g.CreatedOn, &g.UpdatedOn)
	if err != nil {
		return nil, mapError(err)
	}
	return g, nil
}

func (r *toolGroupRepository) Create(ctx context.Context, g *domain.ToolGroup) error {
	query := `INSERT INTO tool_groups (name, category, daily_rental_rate, daily_fine_rate, replacement_value, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now()
	g.CreatedOn, g.UpdatedOn = now, now
	err := r.db.QueryRowContext(ctx, query, g.Name, g.Category, g.DailyRentalRate, g.DailyFineRate, g.ReplacementValue, now, now).Scan(&g.ID)
	return mapError(err)
}

func (r *toolGroupRepository) GetByID(ctx context.Context, id int32) (*domain.ToolGroup, error) {
	query := `SELECT ` + toolGroupColumns + ` FROM tool_groups WHERE id = $1`
	return scanToolGroup(r.db.QueryRowContext(ctx, query, id))
}

func (r *toolGroupRepository) Update(ctx context.Context, g *domain.ToolGroup) error {
	query := `UPDATE tool_groups SET name=$1, category=$2, daily_rental_rate=$3, daily_fine_rate=$4, replacement_value=$5, updated_on=$6 WHERE id=$7`
	g.UpdatedOn = time.Now()
	return expectOne(r.db.ExecContext(ctx, query, g.Name, g.Category, g.DailyRentalRate, g.DailyFineRate, g.ReplacementValue, g.UpdatedOn, g.ID))
}

func (r *toolGroupRepository) List(ctx context.Context) ([]domain.ToolGroup, error) {
	query := `SELECT ` + toolGroupColumns + ` FROM tool_groups ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.ToolGroup
	for rows.Next() {
		g, err := scanToolGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

type toolUnitRepository struct {
	db DBTX
}

func NewToolUnitRepository(db DBTX) repository.ToolUnitRepository {
	return &toolUnitRepository{db: db}
}

const toolUnitColumns = `id, tool_group_id, status, created_on, updated_on`

func scanToolUnit(row rowScanner) (*domain.ToolUnit, error) {
	u := &domain.ToolUnit{}
	if err := row.Scan(&u.ID, &u.ToolGroupID, &u.Status, &u.CreatedOn, &u.UpdatedOn); err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *toolUnitRepository) Create(ctx context.Context, u *domain.ToolUnit) error {
	query := `INSERT INTO tool_units (tool_group_id, status, created_on, updated_on) VALUES ($1, $2, $3, $4) RETURNING id`
	now := time.Now()
	u.CreatedOn, u.UpdatedOn = now, now
	err := r.db.QueryRowContext(ctx, query, u.ToolGroupID, u.Status, now, now).Scan(&u.ID)
	return mapError(err)
}

func (r *toolUnitRepository) GetByID(ctx context.Context, id int32) (*domain.ToolUnit, error) {
	query := `SELECT ` + toolUnitColumns + ` FROM tool_units WHERE id = $1`
	return scanToolUnit(r.db.QueryRowContext(ctx, query, id))
}

func (r *toolUnitRepository) GetForUpdate(ctx context.Context, id int32) (*domain.ToolUnit, error) {
	query := `SELECT ` + toolUnitColumns + ` FROM tool_units WHERE id = $1 FOR UPDATE`
	return scanToolUnit(r.db.QueryRowContext(ctx, query, id))
}

func (r *toolUnitRepository) ClaimAvailable(ctx context.Context, toolGroupID int32) (*domain.ToolUnit, error) {
	query := `SELECT ` + toolUnitColumns + ` FROM tool_units
	          WHERE tool_group_id = $1 AND status = $2
	          ORDER BY id LIMIT 1
	          FOR UPDATE SKIP LOCKED`
	return scanToolUnit(r.db.QueryRowContext(ctx, query, toolGroupID, domain.ToolStatusAvailable))
}

func (r *toolUnitRepository) Update(ctx context.Context, u *domain.ToolUnit) error {
	query := `UPDATE tool_units SET status=$1, updated_on=$2 WHERE id=$3`
	u.UpdatedOn = time.Now()
	return expectOne(r.db.ExecContext(ctx, query, u.Status, u.UpdatedOn, u.ID))
}

func (r *toolUnitRepository) ListByGroup(ctx context.Context, toolGroupID int32) ([]domain.ToolUnit, error) {
	query := `SELECT ` + toolUnitColumns + ` FROM tool_units WHERE tool_group_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, toolGroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []domain.ToolUnit
	for rows.Next() {
		u, err := scanToolUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

func (r *toolUnitRepository) CountByStatus(ctx context.Context, toolGroupID int32) (map[domain.ToolStatus]int32, error) {
	query := `SELECT status, COUNT(*) FROM tool_units WHERE tool_group_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, toolGroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ToolStatus]int32)
	for rows.Next() {
		var status domain.ToolStatus
		var n int32
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
