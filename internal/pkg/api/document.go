package api

import (
	"context"
	"fmt"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/docbuddy/internal/pkg/messages"
	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/render"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
)

// Putter saves blobs and returns a public reference
type Putter interface {
	Put(ctx context.Context, data []byte, path, contentType string) (string, error)
}

// DocumentContentType is a content type of rendered documents
const DocumentContentType = "text/html; charset=utf-8"

// MediaPath makes a blob key for the i-th media file of one request of the owner (draft or session).
// Files of one request share the time, the index keeps keys of equally named files distinct
func MediaPath(userID, ownerID string, at time.Time, i int, name string) string {
	return fmt.Sprintf("media/%s/%s_%d_%d_%s", utils.SanitizeName(userID), ownerID, at.UnixMilli(), i, name)
}

// DocumentPath makes a blob key for a session document
func DocumentPath(userID, patientName string, at time.Time) string {
	return fmt.Sprintf("documents/%s/%s_%d.html", utils.SanitizeName(userID), utils.SanitizeName(patientName), at.UnixMilli())
}

// SaveMedia uploads files and returns their references in the same order
func SaveMedia(ctx context.Context, p Putter, userID, ownerID string, at time.Time, files []*MediaFile) ([]string, error) {
	res := make([]string, 0, len(files))
	for i, f := range files {
		url, err := p.Put(ctx, f.Data, MediaPath(userID, ownerID, at, i, f.Name), f.ContentType)
		if err != nil {
			return nil, fmt.Errorf("%w: can't save media '%s': %v", utils.ErrStorage, f.Name, err)
		}
		res = append(res, url)
	}
	return res, nil
}

// Apply copies request fields into the session, new media references are appended to the kept ones
func Apply(s *persistence.Session, f *SessionFields, media []string) {
	s.PatientName = f.PatientName
	s.PatientAge = f.PatientAge
	if f.Summary != "" {
		s.Summary = f.Summary
	}
	s.FinalDiagnosis = f.FinalDiagnosis
	s.FinalPrescription = f.FinalPrescription
	s.ExaminationResults = utils.ToSQLStr(f.ExaminationResults)
	s.TreatmentPlan = utils.ToSQLStr(f.TreatmentPlan)
	s.DoctorNotes = utils.ToSQLStr(f.DoctorNotes)
	s.NotifyEmail = utils.ToSQLStr(f.NotifyEmail)
	if f.MediaURLs != nil {
		s.MediaURLs = append([]string{}, f.MediaURLs...)
	}
	s.MediaURLs = append(s.MediaURLs, media...)
}

// NewDocument maps the session to a printable document dated by the consultation date
func NewDocument(s *persistence.Session) *render.Document {
	return &render.Document{
		PatientName:        s.PatientName,
		PatientAge:         s.PatientAge,
		Date:               s.Created.Format("2006-01-02"),
		Summary:            s.Summary,
		ExaminationResults: utils.FromSQLStr(s.ExaminationResults),
		Diagnosis:          s.FinalDiagnosis,
		Prescription:       s.FinalPrescription,
		TreatmentPlan:      utils.FromSQLStr(s.TreatmentPlan),
		DoctorNotes:        utils.FromSQLStr(s.DoctorNotes),
		Media:              s.MediaURLs,
	}
}

// SaveDocument renders the session document, uploads it and sets the session document reference
func SaveDocument(ctx context.Context, p Putter, s *persistence.Session, at time.Time) error {
	defer goapp.Estimate("render document")()
	data, err := render.Render(NewDocument(s))
	if err != nil {
		return fmt.Errorf("can't render document: %w", err)
	}
	key := DocumentPath(s.UserID, s.PatientName, at)
	url, err := p.Put(ctx, data, key, DocumentContentType)
	if err != nil {
		return fmt.Errorf("%w: can't save document: %v", utils.ErrStorage, err)
	}
	s.DocumentKey, s.DocumentURL = key, url
	return nil
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Notify enqueues the document e-mail if the session has an address.
// The session is already saved, so errors are only logged
func Notify(ctx context.Context, sender MsgSender, s *persistence.Session) {
	if !s.NotifyEmail.Valid {
		return
	}
	msg := messages.NewDocumentMessage(s.ID, s.UserID, amessages.InformTypeFinished, s.Updated)
	if err := sender.SendMessage(ctx, msg, messages.Inform); err != nil {
		goapp.Log.Error().Err(err).Str("session", s.ID).Msg("can't enqueue e-mail")
	}
}
