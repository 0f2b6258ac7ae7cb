package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/analysis"
	"github.com/airenas/docbuddy/internal/pkg/diarize"
	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/status"
	tapi "github.com/airenas/docbuddy/internal/pkg/transcriber/api"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
)

const ledgerTimeout = 10 * time.Second

// loadDraft loads user's draft, a removed draft is reported as utils.ErrConflict
func loadDraft(ctx context.Context, data *Data, userID, id string) (*persistence.Draft, error) {
	if id == "" {
		return nil, utils.NewErrField("id", "missing")
	}
	res, err := data.DB.LoadDraft(ctx, userID, id)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, storageErr("can't load draft", err)
	}
	ts, tErr := data.DB.LoadTombstone(ctx, userID, id)
	if tErr == nil {
		return nil, fmt.Errorf("%w: draft %s is %s", utils.ErrConflict, id, ts.State)
	}
	if !errors.Is(tErr, utils.ErrNotFound) {
		goapp.Log.Error().Err(tErr).Str("ID", id).Msg("can't load tombstone")
	}
	return nil, err
}

func storageErr(msg string, err error) error {
	if errors.Is(err, utils.ErrConflict) || errors.Is(err, utils.ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %v", utils.ErrStorage, msg, err)
}

func saveDraft(ctx context.Context, data *Data, d *persistence.Draft, st status.Status) error {
	d.State = st.String()
	d.Updated = data.now()
	if err := data.DB.UpdateDraft(ctx, d); err != nil {
		return storageErr("can't save draft", err)
	}
	return nil
}

// loadFor loads the draft and checks the event is allowed in its state
func loadFor(ctx context.Context, data *Data, userID, id string, ev event) (*persistence.Draft, status.Status, error) {
	d, err := loadDraft(ctx, data, userID, id)
	if err != nil {
		return nil, 0, err
	}
	st, err := next(status.From(d.State), ev)
	if err != nil {
		return nil, 0, err
	}
	return d, st, nil
}

func setTitle(ctx context.Context, data *Data, userID, id, title string) (*persistence.Draft, error) {
	d, st, err := loadFor(ctx, data, userID, id, evEdit)
	if err != nil {
		return nil, err
	}
	d.Title = utils.ToSQLStr(title)
	if err := saveDraft(ctx, data, d, st); err != nil {
		return nil, err
	}
	return d, nil
}

func markRecording(ctx context.Context, data *Data, userID, id string) (*persistence.Draft, error) {
	d, st, err := loadFor(ctx, data, userID, id, evStartRecording)
	if err != nil {
		return nil, err
	}
	if err := saveDraft(ctx, data, d, st); err != nil {
		return nil, err
	}
	return d, nil
}

func deleteDraft(ctx context.Context, data *Data, userID, id string) error {
	d, _, err := loadFor(ctx, data, userID, id, evDelete)
	if err != nil {
		return err
	}
	if err := data.DB.DeleteDraft(ctx, userID, d.ID, d.Version); err != nil {
		return storageErr("can't delete draft", err)
	}
	goapp.Log.Info().Str("ID", d.ID).Msg("draft discarded")
	return nil
}

// setAudio replaces the single audio of the draft, working review fields become stale
func setAudio(ctx context.Context, data *Data, d *persistence.Draft, st status.Status, key, url string) error {
	d.AudioKey, d.AudioURL = key, url
	d.Transcript, d.Summary = sql.NullString{}, sql.NullString{}
	d.SuggestedDiagnosis, d.SuggestedPrescription = sql.NullString{}, sql.NullString{}
	return saveDraft(ctx, data, d, st)
}

// transcribeDraft runs the transcription step and the analysis step
func transcribeDraft(ctx context.Context, data *Data, userID, id, language string) (*persistence.Draft, error) {
	d, st, err := loadFor(ctx, data, userID, id, evTranscribe)
	if err != nil {
		return nil, err
	}
	audio, err := data.Blob.Load(ctx, d.AudioKey)
	if err != nil {
		return nil, fmt.Errorf("%w: can't load audio: %v", utils.ErrStorage, err)
	}
	estimated := data.Estimator.EstimateMinutes(ctx, audio)
	res, err := data.Ledger.CheckQuota(ctx, userID, estimated)
	if err != nil {
		return nil, err
	}
	tr, err := callProvider(ctx, data, &tapi.Audio{Name: path.Base(d.AudioKey), Content: audio, Language: language})
	lCtx, cancel := ledgerCtx(ctx)
	defer cancel()
	if err != nil {
		data.Ledger.Release(lCtx, res)
		return nil, fmt.Errorf("%w: %v", utils.ErrProviderFailure, err)
	}
	actual, ok := tr.Minutes()
	if !ok {
		actual = estimated
	}
	data.Ledger.CommitUsage(lCtx, res, actual)

	d.Transcript = sql.NullString{String: diarize.Format(tr.Words), Valid: true}
	d.Language = utils.ToSQLStr(language)
	d.Summary, d.SuggestedDiagnosis, d.SuggestedPrescription = sql.NullString{}, sql.NullString{}, sql.NullString{}
	if err := saveDraft(ctx, data, d, st); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			goapp.Log.Warn().Str("ID", d.ID).Msg("draft changed while transcribing, result dropped")
		}
		return nil, err
	}
	goapp.Log.Info().Str("ID", d.ID).Float64("minutes", actual).Int("words", len(tr.Words)).Msg("transcribed")
	return analyzeDraft(ctx, data, d)
}

// ledgerCtx is not cancelled with the request, a reservation must be settled after the client is gone
func ledgerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
}

func callProvider(ctx context.Context, data *Data, audio *tapi.Audio) (*tapi.Result, error) {
	defer goapp.Estimate("transcription")()
	return data.Transcriber.Transcribe(ctx, audio)
}

// analyzeDraft makes the summary and suggestions of the transcript, on failure the transcript stays
func analyzeDraft(ctx context.Context, data *Data, d *persistence.Draft) (*persistence.Draft, error) {
	st, err := next(status.From(d.State), evAnalyze)
	if err != nil {
		return nil, err
	}
	if transcript := utils.FromSQLStr(d.Transcript); transcript != "" {
		defer goapp.Estimate("analysis")()
		in := &analysis.Input{Transcript: transcript}
		in.ClinicPrompt, in.SummaryPrompt = loadPrompts(ctx, data, d.UserID)
		res, err := data.Analyzer.Analyze(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrAnalysisFailure, err)
		}
		d.Summary = utils.ToSQLStr(res.Summary)
		d.SuggestedDiagnosis = utils.ToSQLStr(res.SuggestedDiagnosis)
		d.SuggestedPrescription = utils.ToSQLStr(res.SuggestedPrescription)
	}
	if err := saveDraft(ctx, data, d, st); err != nil {
		return nil, err
	}
	return d, nil
}

// loadPrompts returns user's prompts, configured defaults are used for missing ones
func loadPrompts(ctx context.Context, data *Data, userID string) (string, string) {
	clinic, summary := data.Prompts.Clinic, data.Prompts.Summary
	s, err := data.DB.LoadSettings(ctx, userID)
	if err != nil {
		goapp.Log.Error().Err(err).Str("user", userID).Msg("can't load settings, use defaults")
		return clinic, summary
	}
	if s == nil {
		return clinic, summary
	}
	return utils.SQLStrOr(s.ClinicPrompt, clinic), utils.SQLStrOr(s.SummaryPrompt, summary)
}
