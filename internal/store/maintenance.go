package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const taskColumns = `id, asset_id, title, description, status, priority, due_date, cost, created_at, updated_at`

func scanTask(row pgx.Row) (fleet.MaintenanceTask, error) {
	var (
		t   fleet.MaintenanceTask
		due pgtype.Timestamptz
	)
	err := row.Scan(
		&t.ID, &t.AssetID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &due, &t.Cost, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}
	t.DueDate = fleet.FromPgTimestamptz(due)
	return t, nil
}

// MaintenanceTasks returns all kanban cards ordered for board rendering:
// by status lane, then priority, then age.
func (s *Store) MaintenanceTasks(ctx context.Context) ([]fleet.MaintenanceTask, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM maintenance_tasks
		ORDER BY status, priority, created_at`)
	if err != nil {
		return nil, fmt.Errorf("query maintenance tasks: %w", err)
	}
	defer rows.Close()

	var tasks []fleet.MaintenanceTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateMaintenanceTask adds a card, defaulting to the backlog lane.
func (s *Store) CreateMaintenanceTask(ctx context.Context, t fleet.MaintenanceTask) (fleet.MaintenanceTask, error) {
	t.ID = uuid.NewString()
	if t.Status == "" {
		t.Status = fleet.TaskBacklog
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO maintenance_tasks (id, asset_id, title, description, status, priority, due_date, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		t.ID, t.AssetID, t.Title, t.Description, t.Status, t.Priority,
		fleet.ToPgTimestamptz(t.DueDate), t.Cost,
	)
	created, err := scanTask(row)
	if err != nil {
		return fleet.MaintenanceTask{}, fmt.Errorf("insert maintenance task: %w", err)
	}
	return created, nil
}

// UpdateMaintenanceTask overwrites a card's mutable fields.
func (s *Store) UpdateMaintenanceTask(ctx context.Context, t fleet.MaintenanceTask) (fleet.MaintenanceTask, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE maintenance_tasks
		SET title = $2, description = $3, status = $4, priority = $5,
		    due_date = $6, cost = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, t.Status, t.Priority,
		fleet.ToPgTimestamptz(t.DueDate), t.Cost,
	)
	updated, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return fleet.MaintenanceTask{}, fmt.Errorf("maintenance task %s: %w", t.ID, ErrNotFound)
	}
	if err != nil {
		return fleet.MaintenanceTask{}, fmt.Errorf("update maintenance task: %w", err)
	}
	return updated, nil
}

// MoveMaintenanceTask moves a card to another kanban lane.
func (s *Store) MoveMaintenanceTask(ctx context.Context, id string, status fleet.TaskStatus) (fleet.MaintenanceTask, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE maintenance_tasks
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns,
		id, status,
	)
	moved, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return fleet.MaintenanceTask{}, fmt.Errorf("maintenance task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fleet.MaintenanceTask{}, fmt.Errorf("move maintenance task: %w", err)
	}
	return moved, nil
}

// DeleteMaintenanceTask removes a card.
func (s *Store) DeleteMaintenanceTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM maintenance_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete maintenance task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("maintenance task %s: %w", id, ErrNotFound)
	}
	return nil
}
