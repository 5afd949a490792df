package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sessionColumns = `id, asset_id, session_start, session_end, fuel_consumed,
	operating_hours, efficiency_rating, task_type, operator, created_at`

func scanSession(row pgx.Row) (fleet.OperatingSession, error) {
	var (
		s   fleet.OperatingSession
		end pgtype.Timestamptz
	)
	err := row.Scan(
		&s.ID, &s.AssetID, &s.SessionStart, &end, &s.FuelConsumed,
		&s.OperatingHours, &s.EfficiencyRating, &s.TaskType, &s.Operator, &s.CreatedAt,
	)
	if err != nil {
		return s, err
	}
	s.SessionEnd = fleet.FromPgTimestamptz(end)
	return s, nil
}

// Sessions returns all operating sessions, newest first. Ongoing sessions
// (nil end) are included.
func (s *Store) Sessions(ctx context.Context) ([]fleet.OperatingSession, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM operating_sessions ORDER BY session_start DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []fleet.OperatingSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CreateSession opens or records an operating session. When both endpoints
// are present and OperatingHours was not supplied, the hours are derived
// from the interval.
func (s *Store) CreateSession(ctx context.Context, sess fleet.OperatingSession) (fleet.OperatingSession, error) {
	sess.ID = uuid.NewString()
	if sess.OperatingHours == 0 {
		sess.OperatingHours = sess.DerivedHours()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO operating_sessions
			(id, asset_id, session_start, session_end, fuel_consumed,
			 operating_hours, efficiency_rating, task_type, operator)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+sessionColumns,
		sess.ID, sess.AssetID, sess.SessionStart, fleet.ToPgTimestamptz(sess.SessionEnd),
		sess.FuelConsumed, sess.OperatingHours, sess.EfficiencyRating, sess.TaskType, sess.Operator,
	)
	created, err := scanSession(row)
	if err != nil {
		return fleet.OperatingSession{}, fmt.Errorf("insert session: %w", err)
	}
	return created, nil
}

// CloseSession ends an ongoing session at the given time, derives its
// operating hours, records the fuel consumed, and rolls the asset meter
// forward by the session hours, all in one transaction.
func (s *Store) CloseSession(ctx context.Context, id string, end time.Time, fuelConsumed float64) (fleet.OperatingSession, error) {
	var closed fleet.OperatingSession
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE operating_sessions
			SET session_end = $2,
			    fuel_consumed = $3,
			    operating_hours = GREATEST(EXTRACT(EPOCH FROM ($2 - session_start)) / 3600, 0)
			WHERE id = $1 AND session_end IS NULL
			RETURNING `+sessionColumns,
			id, end, fuelConsumed,
		)
		var err error
		if closed, err = scanSession(row); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("open session %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("close session: %w", err)
		}

		var currentHours float64
		if err := tx.QueryRow(ctx, `SELECT current_hours FROM assets WHERE id = $1`, closed.AssetID).Scan(&currentHours); err != nil {
			return fmt.Errorf("read asset hours: %w", err)
		}
		return rollMeterForward(ctx, tx, closed.AssetID, currentHours+closed.OperatingHours)
	})
	if err != nil {
		return fleet.OperatingSession{}, err
	}
	return closed, nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM operating_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}
