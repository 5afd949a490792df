package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const inventoryColumns = `id, name, category, quantity, unit, unit_cost, location, reorder_level, created_at, updated_at`

func scanItem(row pgx.Row) (fleet.InventoryItem, error) {
	var it fleet.InventoryItem
	err := row.Scan(
		&it.ID, &it.Name, &it.Category, &it.Quantity, &it.Unit,
		&it.UnitCost, &it.Location, &it.ReorderLevel, &it.CreatedAt, &it.UpdatedAt,
	)
	return it, err
}

// InventoryItems returns the stock list ordered by category then name.
func (s *Store) InventoryItems(ctx context.Context) ([]fleet.InventoryItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []fleet.InventoryItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateInventoryItem adds a stocked part or consumable.
func (s *Store) CreateInventoryItem(ctx context.Context, it fleet.InventoryItem) (fleet.InventoryItem, error) {
	it.ID = uuid.NewString()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO inventory_items (id, name, category, quantity, unit, unit_cost, location, reorder_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+inventoryColumns,
		it.ID, it.Name, it.Category, it.Quantity, it.Unit, it.UnitCost, it.Location, it.ReorderLevel,
	)
	created, err := scanItem(row)
	if err != nil {
		return fleet.InventoryItem{}, fmt.Errorf("insert inventory item: %w", err)
	}
	return created, nil
}

// UpdateInventoryItem overwrites an item's mutable fields.
func (s *Store) UpdateInventoryItem(ctx context.Context, it fleet.InventoryItem) (fleet.InventoryItem, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE inventory_items
		SET name = $2, category = $3, quantity = $4, unit = $5,
		    unit_cost = $6, location = $7, reorder_level = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+inventoryColumns,
		it.ID, it.Name, it.Category, it.Quantity, it.Unit, it.UnitCost, it.Location, it.ReorderLevel,
	)
	updated, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return fleet.InventoryItem{}, fmt.Errorf("inventory item %s: %w", it.ID, ErrNotFound)
	}
	if err != nil {
		return fleet.InventoryItem{}, fmt.Errorf("update inventory item: %w", err)
	}
	return updated, nil
}

// DeleteInventoryItem removes an item.
func (s *Store) DeleteInventoryItem(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory item %s: %w", id, ErrNotFound)
	}
	return nil
}
