package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/jackc/pgx/v5"
)

// Reserve adds minutes to the reservation counter if the limit allows it.
// Both insert and update branches are conditional, so the check and the increment are one atomic statement
func (db *DB) Reserve(ctx context.Context, userID string, year, month int, minutes, limit float64) (bool, error) {
	cmd, err := db.pool.Exec(ctx, `INSERT INTO transcription_usage(user_id, year, month, minutes_used, 
		minutes_reserved, updated)
	SELECT $1::text, $2::integer, $3::integer, 0, $4::double precision, $6::timestamptz WHERE $4::double precision <= $5::double precision
	ON CONFLICT (user_id, year, month) DO UPDATE SET 
		minutes_reserved = transcription_usage.minutes_reserved + EXCLUDED.minutes_reserved,
		updated = EXCLUDED.updated
	WHERE transcription_usage.minutes_used + transcription_usage.minutes_reserved + EXCLUDED.minutes_reserved 
		<= $5::double precision`, userID, year, month, minutes, limit, time.Now())
	if err != nil {
		return false, fmt.Errorf("can't reserve usage: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// Commit adds actual minutes and drops reserved ones
func (db *DB) Commit(ctx context.Context, userID string, year, month int, actual, reserved float64) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO transcription_usage(user_id, year, month, minutes_used, 
		minutes_reserved, updated)
	VALUES($1, $2, $3, $4, 0, $6)
	ON CONFLICT (user_id, year, month) DO UPDATE SET 
		minutes_used = transcription_usage.minutes_used + EXCLUDED.minutes_used,
		minutes_reserved = GREATEST(transcription_usage.minutes_reserved - $5, 0),
		updated = EXCLUDED.updated`, userID, year, month, actual, reserved, time.Now())
	if err != nil {
		return fmt.Errorf("can't commit usage: %w", err)
	}
	return nil
}

// Release drops reserved minutes
func (db *DB) Release(ctx context.Context, userID string, year, month int, reserved float64) error {
	_, err := db.pool.Exec(ctx, `UPDATE transcription_usage SET 
		minutes_reserved = GREATEST(minutes_reserved - $4, 0),
		updated = $5
	WHERE user_id = $1 AND year = $2 AND month = $3`, userID, year, month, reserved, time.Now())
	if err != nil {
		return fmt.Errorf("can't release usage: %w", err)
	}
	return nil
}

// LoadUsage returns the month record or nil
func (db *DB) LoadUsage(ctx context.Context, userID string, year, month int) (*persistence.Usage, error) {
	var res persistence.Usage
	err := db.pool.QueryRow(ctx, `SELECT user_id, year, month, minutes_used, minutes_reserved, updated 
	FROM transcription_usage WHERE user_id = $1 AND year = $2 AND month = $3`, userID, year, month).
		Scan(&res.UserID, &res.Year, &res.Month, &res.MinutesUsed, &res.MinutesReserved, &res.Updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load usage: %w", err)
	}
	return &res, nil
}

// ListUsage returns all user's month records, the newest first
func (db *DB) ListUsage(ctx context.Context, userID string) ([]*persistence.Usage, error) {
	rows, err := db.pool.Query(ctx, `SELECT user_id, year, month, minutes_used, minutes_reserved, updated 
	FROM transcription_usage WHERE user_id = $1 ORDER BY year DESC, month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("can't select usage: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Usage{}
	for rows.Next() {
		var u persistence.Usage
		if err := rows.Scan(&u.UserID, &u.Year, &u.Month, &u.MinutesUsed, &u.MinutesReserved, &u.Updated); err != nil {
			return nil, fmt.Errorf("can't retrieve usage: %w", err)
		}
		res = append(res, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't retrieve usage: %w", err)
	}
	return res, nil
}
