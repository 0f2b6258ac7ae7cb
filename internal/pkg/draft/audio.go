package draft

import (
	"fmt"
	"net/http"
	"path"

	"github.com/airenas/docbuddy/internal/pkg/api"
	"github.com/airenas/docbuddy/internal/pkg/audio"
	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/status"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func create(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("create method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		f, err := api.ReadAudio(c)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		now := data.now()
		key := fmt.Sprintf("drafts/%s/%d%s", utils.SanitizeName(user), now.UnixMilli(), path.Ext(f.Name))
		url, err := data.Blob.Put(ctx, f.Data, key, f.ContentType)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't save audio: %v", utils.ErrStorage, err))
		}
		d := &persistence.Draft{ID: uuid.New().String(), UserID: user, AudioKey: key, AudioURL: url,
			Title: utils.ToSQLStr(c.FormValue("title")), State: status.Editing.String(), Version: 1,
			Created: now, Updated: now}
		if err := data.DB.InsertDraft(ctx, d); err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: %v", utils.ErrStorage, err))
		}
		goapp.Log.Info().Str("ID", d.ID).Str("key", key).Msg("draft created")
		return c.JSON(http.StatusCreated, toResult(d))
	}
}

// continueRecording appends the uploaded segment to the stored audio
func continueRecording(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("continuation method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		d, st, err := loadFor(ctx, data, user, c.Param("id"), evContinue)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		f, err := api.ReadAudio(c)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		original, err := data.Blob.Load(ctx, d.AudioKey)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't load audio: %v", utils.ErrStorage, err))
		}
		combined := audio.Combine(original, f.Data)
		key := fmt.Sprintf("drafts/%s/%s_%d%s", utils.SanitizeName(user), d.ID, data.now().UnixMilli(), audio.CombinedExt)
		url, err := data.Blob.Put(ctx, combined, key, audio.CombinedContentType)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't save audio: %v", utils.ErrStorage, err))
		}
		if err := setAudio(ctx, data, d, st, key, url); err != nil {
			return utils.ToHTTPError(err)
		}
		goapp.Log.Info().Str("ID", d.ID).Int("bytes", len(combined)).Msg("combined")
		return c.JSON(http.StatusOK, toResult(d))
	}
}

// replaceAudio stores the full audio combined by the client
func replaceAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("replace audio method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		d, st, err := loadFor(ctx, data, user, c.Param("id"), evReplaceAudio)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		f, err := api.ReadAudio(c)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		key := fmt.Sprintf("drafts/%s/%s_%d%s", utils.SanitizeName(user), d.ID, data.now().UnixMilli(), path.Ext(f.Name))
		url, err := data.Blob.Put(ctx, f.Data, key, f.ContentType)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't save audio: %v", utils.ErrStorage, err))
		}
		if err := setAudio(ctx, data, d, st, key, url); err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusOK, toResult(d))
	}
}

func getAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("get audio method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		d, err := loadDraft(ctx, data, user, c.Param("id"))
		if err != nil {
			return utils.ToHTTPError(err)
		}
		res, err := data.Blob.Load(ctx, d.AudioKey)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't load audio: %v", utils.ErrStorage, err))
		}
		c.Response().Header().Set("Content-Disposition", "attachment; filename="+path.Base(d.AudioKey))
		return c.Blob(http.StatusOK, api.AudioContentType(path.Ext(d.AudioKey)), res)
	}
}
