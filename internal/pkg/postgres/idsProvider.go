package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBIdsProvider provides expired draft IDs from postgresql
type DBIdsProvider struct {
	pool         *pgxpool.Pool
	expiresAfter time.Duration
	// tombstones are kept longer, so late actions on a removed draft still get a conflict
	tombstonesAfter time.Duration
}

// DefaultExpire is the draft age after which the sweep removes it
const DefaultExpire = 24 * time.Hour

// NewDBIdsProvider creates DBIdsProvider instance, 0 expiresAfter - DefaultExpire
func NewDBIdsProvider(pool *pgxpool.Pool, expiresAfter time.Duration) (*DBIdsProvider, error) {
	if expiresAfter == 0 {
		expiresAfter = DefaultExpire
	}
	if expiresAfter < 0 {
		return nil, fmt.Errorf("wrong expire duration %v", expiresAfter)
	}
	goapp.Log.Info().Dur("expire", expiresAfter).Msg("sweep")
	res := &DBIdsProvider{pool: pool, expiresAfter: expiresAfter, tombstonesAfter: expiresAfter * 7}
	return res, nil
}

// GetExpired purges old tombstones and returns IDs of drafts older than the expire duration
func (db *DBIdsProvider) GetExpired(ctx context.Context) ([]string, error) {
	now := time.Now()
	cmd, err := db.pool.Exec(ctx, `DELETE FROM draft_tombstones WHERE created < $1`, now.Add(-db.tombstonesAfter))
	if err != nil {
		return nil, fmt.Errorf("can't delete tombstones: %w", err)
	}
	goapp.Log.Info().Int64("rows", cmd.RowsAffected()).Msg("deleted tombstones")

	exp := now.Add(-db.expiresAfter)
	goapp.Log.Info().Time("older than", exp).Msg("selecting old drafts...")
	rows, err := db.pool.Query(ctx, `SELECT id FROM draft_sessions WHERE created < $1 ORDER BY created`, exp)
	if err != nil {
		return nil, fmt.Errorf("can't select draft IDs: %w", err)
	}
	res, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("can't collect draft IDs: %w", err)
	}
	return res, nil
}
