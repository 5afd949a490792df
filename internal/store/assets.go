package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const assetColumns = `id, name, type, status, current_hours, fuel_capacity, fuel_type, location, created_at, updated_at`

func scanAsset(row pgx.Row) (fleet.Asset, error) {
	var a fleet.Asset
	err := row.Scan(
		&a.ID, &a.Name, &a.Type, &a.Status, &a.CurrentHours,
		&a.FuelCapacity, &a.FuelType, &a.Location, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// Assets returns all assets ordered by name. Retired assets are included;
// retirement is a status, not a deletion, and the KPI calculator still sees
// their history.
func (s *Store) Assets(ctx context.Context) ([]fleet.Asset, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []fleet.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Asset returns one asset by ID.
func (s *Store) Asset(ctx context.Context, id string) (fleet.Asset, error) {
	a, err := scanAsset(s.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return fleet.Asset{}, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fleet.Asset{}, fmt.Errorf("query asset: %w", err)
	}
	return a, nil
}

// CreateAsset inserts a new asset and returns it with its generated ID and
// timestamps.
func (s *Store) CreateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error) {
	a.ID = uuid.NewString()
	if a.Status == "" {
		a.Status = fleet.StatusActive
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO assets (id, name, type, status, current_hours, fuel_capacity, fuel_type, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+assetColumns,
		a.ID, a.Name, a.Type, a.Status, a.CurrentHours, a.FuelCapacity, a.FuelType, a.Location,
	)
	created, err := scanAsset(row)
	if err != nil {
		return fleet.Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return created, nil
}

// UpdateAsset overwrites the mutable fields of an asset.
func (s *Store) UpdateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE assets
		SET name = $2, type = $3, status = $4, current_hours = $5,
		    fuel_capacity = $6, fuel_type = $7, location = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+assetColumns,
		a.ID, a.Name, a.Type, a.Status, a.CurrentHours, a.FuelCapacity, a.FuelType, a.Location,
	)
	updated, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return fleet.Asset{}, fmt.Errorf("asset %s: %w", a.ID, ErrNotFound)
	}
	if err != nil {
		return fleet.Asset{}, fmt.Errorf("update asset: %w", err)
	}
	return updated, nil
}

// DeleteAsset removes an asset and, via ON DELETE CASCADE, its fuel records,
// sessions, and maintenance tasks.
func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return nil
}

// rollMeterForward advances an asset's cumulative hours inside tx, but never
// backwards: stale readings are ignored.
func rollMeterForward(ctx context.Context, tx DBTX, assetID string, hours float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE assets
		SET current_hours = GREATEST(current_hours, $2), updated_at = now()
		WHERE id = $1`,
		assetID, hours,
	)
	if err != nil {
		return fmt.Errorf("roll meter forward: %w", err)
	}
	return nil
}
