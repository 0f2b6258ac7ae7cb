package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/airenas/docbuddy/internal/pkg/status"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner discards expired drafts
type Cleaner struct {
	db *DB
}

// NewCleaner creates Cleaner instance
func NewCleaner(pool *pgxpool.Pool) (*Cleaner, error) {
	db, err := NewDB(pool)
	if err != nil {
		return nil, err
	}
	return &Cleaner{db: db}, nil
}

// Clean deletes the draft of any version and leaves a DISCARDED tombstone
func (c *Cleaner) Clean(ctx context.Context, id string) error {
	return c.db.inTx(ctx, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx, `DELETE FROM draft_sessions WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			goapp.Log.Info().Str("ID", id).Msg("no draft")
			return nil
		}
		if err != nil {
			return fmt.Errorf("can't delete draft %s: %w", id, err)
		}
		goapp.Log.Info().Str("ID", id).Str("user", userID).Msg("discarded")
		return insertTombstone(ctx, tx, userID, id, status.Discarded)
	})
}
