package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/airenas/docbuddy/internal/pkg/postgres/migrations"
	"github.com/airenas/go-app/pkg/goapp"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies embedded schema migrations
func Migrate(ctx context.Context, url string) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("can't open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("can't set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("can't migrate: %w", err)
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("can't get db version: %w", err)
	}
	goapp.Log.Info().Int64("version", v).Msg("migrated")
	return nil
}
