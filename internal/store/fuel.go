package store

import (
	"context"
	"fmt"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const fuelColumns = `id, asset_id, date, quantity, price_per_liter, cost, fuel_type, location,
	current_hours, previous_hours, consumption_rate, created_at`

func scanFuelRecord(row pgx.Row) (fleet.FuelRecord, error) {
	var (
		r        fleet.FuelRecord
		current  pgtype.Float8
		previous pgtype.Float8
		rate     pgtype.Float8
	)
	err := row.Scan(
		&r.ID, &r.AssetID, &r.Date, &r.Quantity, &r.PricePerLiter, &r.Cost,
		&r.FuelType, &r.Location, &current, &previous, &rate, &r.CreatedAt,
	)
	if err != nil {
		return r, err
	}
	r.CurrentHours = fleet.FromPgFloat8(current)
	r.PreviousHours = fleet.FromPgFloat8(previous)
	r.ConsumptionRate = fleet.FromPgFloat8(rate)
	return r, nil
}

// FuelRecords returns all fuel records, newest first.
func (s *Store) FuelRecords(ctx context.Context) ([]fleet.FuelRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+fuelColumns+` FROM fuel_records ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query fuel records: %w", err)
	}
	defer rows.Close()

	var records []fleet.FuelRecord
	for rows.Next() {
		r, err := scanFuelRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fuel record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CreateFuelRecord inserts a fill event. When the record carries meter
// readings, the per-fill consumption rate is derived from them and the
// asset's cumulative hours are rolled forward in the same transaction.
func (s *Store) CreateFuelRecord(ctx context.Context, r fleet.FuelRecord) (fleet.FuelRecord, error) {
	r.ID = uuid.NewString()
	if r.ConsumptionRate == nil {
		r.ConsumptionRate = deriveFillRate(r)
	}

	var created fleet.FuelRecord
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO fuel_records
				(id, asset_id, date, quantity, price_per_liter, cost, fuel_type, location,
				 current_hours, previous_hours, consumption_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING `+fuelColumns,
			r.ID, r.AssetID, r.Date, r.Quantity, r.PricePerLiter, r.Cost, r.FuelType, r.Location,
			fleet.ToPgFloat8(r.CurrentHours), fleet.ToPgFloat8(r.PreviousHours), fleet.ToPgFloat8(r.ConsumptionRate),
		)
		var err error
		if created, err = scanFuelRecord(row); err != nil {
			return fmt.Errorf("insert fuel record: %w", err)
		}

		if r.CurrentHours != nil {
			return rollMeterForward(ctx, tx, r.AssetID, *r.CurrentHours)
		}
		return nil
	})
	if err != nil {
		return fleet.FuelRecord{}, err
	}
	return created, nil
}

// DeleteFuelRecord removes a fill event. The asset meter is left alone;
// readings are monotonic and a deleted record does not un-run the engine.
func (s *Store) DeleteFuelRecord(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM fuel_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fuel record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fuel record %s: %w", id, ErrNotFound)
	}
	return nil
}

// deriveFillRate computes liters per hour between two meter readings, nil
// when the readings are missing or not increasing.
func deriveFillRate(r fleet.FuelRecord) *float64 {
	if r.CurrentHours == nil || r.PreviousHours == nil {
		return nil
	}
	delta := *r.CurrentHours - *r.PreviousHours
	if delta <= 0 {
		return nil
	}
	rate := r.Quantity / delta
	return &rate
}
