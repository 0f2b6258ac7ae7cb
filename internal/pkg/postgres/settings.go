package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/jackc/pgx/v5"
)

// LoadSettings returns user's settings or nil
func (db *DB) LoadSettings(ctx context.Context, userID string) (*persistence.Settings, error) {
	var res persistence.Settings
	err := db.pool.QueryRow(ctx, `SELECT user_id, clinic_prompt, summary_prompt, updated FROM user_settings
		WHERE user_id = $1`, userID).Scan(&res.UserID, &res.ClinicPrompt, &res.SummaryPrompt, &res.Updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load settings: %w", err)
	}
	return &res, nil
}

// SaveSettings upserts user's settings
func (db *DB) SaveSettings(ctx context.Context, s *persistence.Settings) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO user_settings(user_id, clinic_prompt, summary_prompt, updated) 
	VALUES($1, $2, $3, $4)
	ON CONFLICT (user_id) DO UPDATE SET 
		clinic_prompt = EXCLUDED.clinic_prompt,
		summary_prompt = EXCLUDED.summary_prompt,
		updated = EXCLUDED.updated`, s.UserID, s.ClinicPrompt, s.SummaryPrompt, s.Updated)
	if err != nil {
		return fmt.Errorf("can't save settings: %w", err)
	}
	return nil
}
