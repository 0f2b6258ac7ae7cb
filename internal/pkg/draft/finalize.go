package draft

import (
	"context"
	"net/http"

	"github.com/airenas/docbuddy/internal/pkg/api"
	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type sessionResult struct {
	ID          string `json:"id"`
	DocumentURL string `json:"documentUrl"`
}

func finalize(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("finalize method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		d, _, err := loadFor(ctx, data, user, c.Param("id"), evFinalize)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		req, err := api.ParseSessionRequest(c)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		s, err := finalizeDraft(ctx, data, d, req)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusCreated, sessionResult{ID: s.ID, DocumentURL: s.DocumentURL})
	}
}

// finalizeDraft makes the session of the draft, the draft stays intact on any failure
func finalizeDraft(ctx context.Context, data *Data, d *persistence.Draft, req api.SessionRequest) (*persistence.Session, error) {
	now := data.now()
	s := &persistence.Session{ID: uuid.New().String(), UserID: d.UserID,
		Transcript: utils.FromSQLStr(d.Transcript), Summary: utils.FromSQLStr(d.Summary),
		SuggestedDiagnosis:    utils.FromSQLStr(d.SuggestedDiagnosis),
		SuggestedPrescription: utils.FromSQLStr(d.SuggestedPrescription),
		Created:               now, Updated: now}
	media, err := api.SaveMedia(ctx, data.Blob, d.UserID, d.ID, now, req.Media())
	if err != nil {
		return nil, err
	}
	api.Apply(s, req.Fields(), media)
	if err := api.SaveDocument(ctx, data.Blob, s, now); err != nil {
		return nil, err
	}
	if err := data.DB.FinalizeDraft(ctx, s, d); err != nil {
		return nil, storageErr("can't finalize draft", err)
	}
	goapp.Log.Info().Str("draft", d.ID).Str("session", s.ID).Msg("finalized")
	api.Notify(ctx, data.MsgSender, s)
	return s, nil
}
