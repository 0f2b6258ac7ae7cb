package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `p.id, u.user_id, p.name, p.age, p.transcript, p.summary, p.suggested_diagnosis,
	p.suggested_prescription, p.final_diagnosis, p.final_prescription, p.examination_results, p.treatment_plan,
	p.doctor_notes, p.media_urls, p.document_key, p.document_url, p.notify_email, p.created, p.updated`

func scanSession(row pgx.Row) (*persistence.Session, error) {
	var res persistence.Session
	err := row.Scan(&res.ID, &res.UserID, &res.PatientName, &res.PatientAge, &res.Transcript, &res.Summary,
		&res.SuggestedDiagnosis, &res.SuggestedPrescription, &res.FinalDiagnosis, &res.FinalPrescription,
		&res.ExaminationResults, &res.TreatmentPlan, &res.DoctorNotes, &res.MediaURLs, &res.DocumentKey,
		&res.DocumentURL, &res.NotifyEmail, &res.Created, &res.Updated)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func insertSession(ctx context.Context, tx pgx.Tx, s *persistence.Session) error {
	_, err := tx.Exec(ctx, `INSERT INTO patient_sessions(id, name, age, transcript, summary, suggested_diagnosis, 
	suggested_prescription, final_diagnosis, final_prescription, examination_results, treatment_plan, doctor_notes,
	media_urls, document_key, document_url, notify_email, created, updated) 
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		s.ID, s.PatientName, s.PatientAge, s.Transcript, s.Summary, s.SuggestedDiagnosis, s.SuggestedPrescription,
		s.FinalDiagnosis, s.FinalPrescription, s.ExaminationResults, s.TreatmentPlan, s.DoctorNotes,
		nonNil(s.MediaURLs), s.DocumentKey, s.DocumentURL, s.NotifyEmail, s.Created, s.Updated)
	if err != nil {
		return fmt.Errorf("can't insert session: %w", err)
	}
	return nil
}

// LoadSession loads user's session, returns utils.ErrNotFound if there is no such
func (db *DB) LoadSession(ctx context.Context, userID, id string) (*persistence.Session, error) {
	res, err := scanSession(db.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM patient_sessions p
		JOIN user_sessions u ON u.session_id = p.id WHERE p.id = $1 AND u.user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("can't load session: %w", err)
	}
	return res, nil
}

// ListSessions returns user's sessions, the newest first
func (db *DB) ListSessions(ctx context.Context, userID string) ([]*persistence.Session, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+sessionColumns+` FROM patient_sessions p
		JOIN user_sessions u ON u.session_id = p.id WHERE u.user_id = $1 ORDER BY p.created DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("can't select sessions: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("can't retrieve session: %w", err)
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't retrieve sessions: %w", err)
	}
	return res, nil
}

// UpdateSession saves clinician editable fields and the new document, suggestions are never updated
func (db *DB) UpdateSession(ctx context.Context, s *persistence.Session) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE patient_sessions SET 
	name = $3,
	age = $4,
	summary = $5,
	final_diagnosis = $6,
	final_prescription = $7,
	examination_results = $8,
	treatment_plan = $9,
	doctor_notes = $10,
	media_urls = $11,
	document_key = $12,
	document_url = $13,
	notify_email = $14,
	updated = $15
	WHERE id = $1 AND id IN (SELECT session_id FROM user_sessions WHERE user_id = $2)`, s.ID, s.UserID,
		s.PatientName, s.PatientAge, s.Summary, s.FinalDiagnosis, s.FinalPrescription, s.ExaminationResults,
		s.TreatmentPlan, s.DoctorNotes, nonNil(s.MediaURLs), s.DocumentKey, s.DocumentURL, s.NotifyEmail, s.Updated)
	if err != nil {
		return fmt.Errorf("can't update session: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("session %s: %w", s.ID, utils.ErrNotFound)
	}
	return nil
}

// DeleteSession deletes user's session and its link
func (db *DB) DeleteSession(ctx context.Context, userID, id string) error {
	cmd, err := db.pool.Exec(ctx, `WITH l AS (
		DELETE FROM user_sessions WHERE user_id = $1 AND session_id = $2 RETURNING session_id)
	DELETE FROM patient_sessions WHERE id IN (SELECT session_id FROM l)`, userID, id)
	if err != nil {
		return fmt.Errorf("can't delete session: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("session %s: %w", id, utils.ErrNotFound)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
