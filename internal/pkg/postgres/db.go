package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/status"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

//NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	res := &DB{pool: pool}
	return res, nil
}

// Live checks db connection
func (db *DB) Live(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("can't ping db: %w", err)
	}
	return nil
}

const draftColumns = `id, user_id, audio_key, audio_url, title, state, version, language, transcript, summary,
	suggested_diagnosis, suggested_prescription, created, updated`

func scanDraft(row pgx.Row) (*persistence.Draft, error) {
	var res persistence.Draft
	err := row.Scan(&res.ID, &res.UserID, &res.AudioKey, &res.AudioURL, &res.Title, &res.State, &res.Version,
		&res.Language, &res.Transcript, &res.Summary, &res.SuggestedDiagnosis, &res.SuggestedPrescription,
		&res.Created, &res.Updated)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// InsertDraft inserts a new draft
func (db *DB) InsertDraft(ctx context.Context, d *persistence.Draft) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO draft_sessions(id, user_id, audio_key, audio_url, title, state, 
	version, created, updated) 
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`, d.ID, d.UserID, d.AudioKey, d.AudioURL, d.Title, d.State,
		d.Version, d.Created, d.Updated)
	if err != nil {
		return fmt.Errorf("can't insert draft: %w", err)
	}
	return nil
}

// LoadDraft loads user's draft, returns utils.ErrNotFound if there is no such
func (db *DB) LoadDraft(ctx context.Context, userID, id string) (*persistence.Draft, error) {
	res, err := scanDraft(db.pool.QueryRow(ctx, `SELECT `+draftColumns+` FROM draft_sessions
		WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("draft %s: %w", id, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("can't load draft: %w", err)
	}
	return res, nil
}

// ListDrafts returns user's drafts, the newest first
func (db *DB) ListDrafts(ctx context.Context, userID string) ([]*persistence.Draft, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+draftColumns+` FROM draft_sessions
		WHERE user_id = $1 ORDER BY created DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("can't select drafts: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("can't retrieve draft: %w", err)
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't retrieve drafts: %w", err)
	}
	return res, nil
}

// UpdateDraft saves the draft if its version is not changed, increases version
// returns utils.ErrConflict on a stale version
func (db *DB) UpdateDraft(ctx context.Context, d *persistence.Draft) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE draft_sessions SET 
	audio_key = $4,
	audio_url = $5,
	title = $6,
	state = $7,
	language = $8,
	transcript = $9,
	summary = $10,
	suggested_diagnosis = $11,
	suggested_prescription = $12,
	updated = $13,
	version = $3 + 1 
	WHERE id = $1 AND user_id = $2 AND version = $3`, d.ID, d.UserID, d.Version,
		d.AudioKey, d.AudioURL, d.Title, d.State, d.Language, d.Transcript, d.Summary,
		d.SuggestedDiagnosis, d.SuggestedPrescription, d.Updated)
	if err != nil {
		return fmt.Errorf("can't update draft: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("draft %s v%d: %w", d.ID, d.Version, utils.ErrConflict)
	}
	d.Version++
	return nil
}

// DeleteDraft deletes the draft of the version and leaves a DISCARDED tombstone
func (db *DB) DeleteDraft(ctx context.Context, userID, id string, version int) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		return removeDraft(ctx, tx, userID, id, version, status.Discarded)
	})
}

// LoadTombstone loads a terminal state of removed draft, returns utils.ErrNotFound if there is no such
func (db *DB) LoadTombstone(ctx context.Context, userID, id string) (*persistence.Tombstone, error) {
	var res persistence.Tombstone
	err := db.pool.QueryRow(ctx, `SELECT id, user_id, state, created FROM draft_tombstones
		WHERE id = $1 AND user_id = $2`, id, userID).Scan(&res.ID, &res.UserID, &res.State, &res.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tombstone %s: %w", id, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("can't load tombstone: %w", err)
	}
	return &res, nil
}

// FinalizeDraft creates the session, links it to the user and removes the draft in one transaction
func (db *DB) FinalizeDraft(ctx context.Context, s *persistence.Session, d *persistence.Draft) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertSession(ctx, tx, s); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO user_sessions(user_id, session_id) VALUES($1, $2)`,
			s.UserID, s.ID); err != nil {
			return fmt.Errorf("can't link session: %w", err)
		}
		return removeDraft(ctx, tx, d.UserID, d.ID, d.Version, status.Finalized)
	})
}

// DeleteExpiredDrafts deletes user's drafts created before the time
func (db *DB) DeleteExpiredDrafts(ctx context.Context, userID string, olderThan time.Time) (int, error) {
	var res int
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `DELETE FROM draft_sessions WHERE user_id = $1 AND created < $2 RETURNING id`,
			userID, olderThan)
		if err != nil {
			return fmt.Errorf("can't delete drafts: %w", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("can't retrieve deleted IDs: %w", err)
		}
		for _, id := range ids {
			if err := insertTombstone(ctx, tx, userID, id, status.Discarded); err != nil {
				return err
			}
		}
		res = len(ids)
		return nil
	})
	return res, err
}

func removeDraft(ctx context.Context, tx pgx.Tx, userID, id string, version int, st status.Status) error {
	cmd, err := tx.Exec(ctx, `DELETE FROM draft_sessions WHERE id = $1 AND user_id = $2 AND version = $3`,
		id, userID, version)
	if err != nil {
		return fmt.Errorf("can't delete draft: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("draft %s v%d: %w", id, version, utils.ErrConflict)
	}
	return insertTombstone(ctx, tx, userID, id, st)
}

func insertTombstone(ctx context.Context, tx pgx.Tx, userID, id string, st status.Status) error {
	if _, err := tx.Exec(ctx, `INSERT INTO draft_tombstones(id, user_id, state, created) 
		VALUES($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`, id, userID, st.String(), time.Now()); err != nil {
		return fmt.Errorf("can't insert tombstone: %w", err)
	}
	return nil
}

func (db *DB) inTx(ctx context.Context, f func(tx pgx.Tx) error) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("can't start tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rErr := tx.Rollback(ctx); rErr != nil {
				err = multierr.Append(err, fmt.Errorf("can't rollback: %w", rErr))
			}
		}
	}()
	if err = f(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("can't commit: %w", err)
	}
	return nil
}
