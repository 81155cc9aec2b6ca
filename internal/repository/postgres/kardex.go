package postgres

import (
	"context"
	"fmt"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/repository"
)

type kardexRepository struct {
	db DBTX
}

func NewKardexRepository(db DBTX) repository.KardexRepository {
	return &kardexRepository{db: db}
}

func (r *kardexRepository) Append(ctx context.Context, m *domain.KardexMovement) error {
	query := `INSERT INTO kardex_movements (operation_id, movement_type, occurred_at, tool_group_id, tool_unit_id, loan_id, customer_id, actor, detail)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, m.OperationID, m.Type, m.OccurredAt, m.ToolGroupID, m.ToolUnitID, m.LoanID, m.CustomerID, m.Actor, m.Detail).Scan(&m.ID)
	return mapError(err)
}

func (r *kardexRepository) List(ctx context.Context, f domain.KardexFilter) ([]domain.KardexMovement, error) {
	query := `SELECT id, operation_id, movement_type, occurred_at, tool_group_id, tool_unit_id, loan_id, customer_id, actor, detail
	          FROM kardex_movements WHERE 1=1`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}
	if f.Type != "" {
		add(` AND movement_type = $%d`, f.Type)
	}
	if f.ToolGroupID != 0 {
		add(` AND tool_group_id = $%d`, f.ToolGroupID)
	}
	if f.ToolUnitID != 0 {
		add(` AND tool_unit_id = $%d`, f.ToolUnitID)
	}
	if f.CustomerID != 0 {
		add(` AND customer_id = $%d`, f.CustomerID)
	}
	if f.LoanID != 0 {
		add(` AND loan_id = $%d`, f.LoanID)
	}
	if f.From != nil {
		add(` AND occurred_at >= $%d`, *f.From)
	}
	if f.To != nil {
		add(` AND occurred_at <= $%d`, *f.To)
	}
	query += ` ORDER BY occurred_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []domain.KardexMovement
	for rows.Next() {
		var m domain.KardexMovement
		if err := rows.Scan(&m.ID, &m.OperationID, &m.Type, &m.OccurredAt, &m.ToolGroupID, &m.ToolUnitID, &m.LoanID, &m.CustomerID, &m.Actor, &m.Detail); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *kardexRepository) CountByToolGroup(ctx context.Context, movementType domain.MovementType, from, to time.Time) ([]domain.GroupCount, error) {
	query := `SELECT tool_group_id, COUNT(*) FROM kardex_movements
	          WHERE movement_type = $1 AND tool_group_id IS NOT NULL AND occurred_at >= $2 AND occurred_at <= $3
	          GROUP BY tool_group_id
	          ORDER BY COUNT(*) DESC, tool_group_id`
	rows, err := r.db.QueryContext(ctx, query, movementType, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.GroupCount
	for rows.Next() {
		var c domain.GroupCount
		if err := rows.Scan(&c.ToolGroupID, &c.Total); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
