package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/utils"
)

// LockEmailTable marks the email as being sent, fails if it is sent or in progress
func (db *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	cmd, err := db.pool.Exec(ctx, `INSERT INTO email_lock(id, type, value, updated) VALUES($1, $2, 1, $3)
	ON CONFLICT (id, type) DO UPDATE SET value = 1, updated = EXCLUDED.updated WHERE email_lock.value = 0`,
		id, msgType, time.Now())
	if err != nil {
		return fmt.Errorf("can't lock email: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("email %s(%s) is sent or in progress: %w", id, msgType, utils.ErrConflict)
	}
	return nil
}

// UnLockEmailTable sets the final lock value: 0 - allow retry, 2 - sent
func (db *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	v := 0
	if value != nil {
		v = *value
	}
	_, err := db.pool.Exec(ctx, `UPDATE email_lock SET value = $3, updated = $4 WHERE id = $1 AND type = $2`,
		id, msgType, v, time.Now())
	if err != nil {
		return fmt.Errorf("can't unlock email: %w", err)
	}
	return nil
}
