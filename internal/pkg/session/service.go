package session

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	"github.com/airenas/docbuddy/internal/pkg/api"
	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/render"
	"github.com/airenas/docbuddy/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB keeps finalized sessions
type DB interface {
	LoadSession(ctx context.Context, userID, id string) (*persistence.Session, error)
	ListSessions(ctx context.Context, userID string) ([]*persistence.Session, error)
	UpdateSession(ctx context.Context, s *persistence.Session) error
	DeleteSession(ctx context.Context, userID, id string) error
}

// BlobStore keeps media and documents
type BlobStore interface {
	Put(ctx context.Context, data []byte, path, contentType string) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	DB        DB
	Blob      BlobStore
	MsgSender api.MsgSender

	now func() time.Time
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP DocBuddy session service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 60 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.Blob == nil {
		return errors.New("no blob store")
	}
	if data.MsgSender == nil {
		return errors.New("no msg sender")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("docbuddy_session", nil)
}

func initRoutes(data *Data) *echo.Echo {
	if data.now == nil {
		data.now = time.Now
	}
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/sessions", list(data))
	e.GET("/sessions/:id", get(data))
	e.PATCH("/sessions/:id", edit(data))
	e.DELETE("/sessions/:id", remove(data))
	e.GET("/sessions/:id/document", document(data))
	e.POST("/media", uploadMedia(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

type media struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type sessionResult struct {
	ID                    string    `json:"id"`
	PatientName           string    `json:"patientName"`
	PatientAge            string    `json:"patientAge"`
	Transcript            string    `json:"transcript,omitempty"`
	Summary               string    `json:"summary,omitempty"`
	SuggestedDiagnosis    string    `json:"suggestedDiagnosis,omitempty"`
	SuggestedPrescription string    `json:"suggestedPrescription,omitempty"`
	FinalDiagnosis        string    `json:"finalDiagnosis"`
	FinalPrescription     string    `json:"finalPrescription"`
	ExaminationResults    string    `json:"examinationResults,omitempty"`
	TreatmentPlan         string    `json:"treatmentPlan,omitempty"`
	DoctorNotes           string    `json:"doctorNotes,omitempty"`
	NotifyEmail           string    `json:"notifyEmail,omitempty"`
	Media                 []media   `json:"media"`
	DocumentURL           string    `json:"documentUrl"`
	Created               time.Time `json:"created"`
	Updated               time.Time `json:"updated"`
}

var kindName = map[render.MediaKind]string{render.Link: "link", render.Image: "image", render.Video: "video"}

func toResult(s *persistence.Session) *sessionResult {
	res := &sessionResult{ID: s.ID, PatientName: s.PatientName, PatientAge: s.PatientAge, Transcript: s.Transcript,
		Summary: s.Summary, SuggestedDiagnosis: s.SuggestedDiagnosis, SuggestedPrescription: s.SuggestedPrescription,
		FinalDiagnosis: s.FinalDiagnosis, FinalPrescription: s.FinalPrescription,
		ExaminationResults: utils.FromSQLStr(s.ExaminationResults), TreatmentPlan: utils.FromSQLStr(s.TreatmentPlan),
		DoctorNotes: utils.FromSQLStr(s.DoctorNotes), NotifyEmail: utils.FromSQLStr(s.NotifyEmail),
		DocumentURL: s.DocumentURL, Created: s.Created, Updated: s.Updated, Media: []media{}}
	for _, m := range s.MediaURLs {
		res.Media = append(res.Media, media{URL: m, Name: render.FileName(m), Kind: kindName[render.Classify(m)]})
	}
	return res
}

func loadSession(ctx context.Context, data *Data, userID, id string) (*persistence.Session, error) {
	if id == "" {
		return nil, utils.NewErrField("id", "missing")
	}
	res, err := data.DB.LoadSession(ctx, userID, id)
	if err != nil {
		return nil, storageErr("can't load session", err)
	}
	return res, nil
}

func storageErr(msg string, err error) error {
	if errors.Is(err, utils.ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %v", utils.ErrStorage, msg, err)
}

func list(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("list method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		sessions, err := data.DB.ListSessions(c.Request().Context(), user)
		if err != nil {
			return utils.ToHTTPError(storageErr("can't list sessions", err))
		}
		res := make([]*sessionResult, 0, len(sessions))
		for _, s := range sessions {
			res = append(res, toResult(s))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func get(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("get method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		s, err := loadSession(c.Request().Context(), data, user, c.Param("id"))
		if err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusOK, toResult(s))
	}
}

// edit saves clinician fields and re-renders the whole document
func edit(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("edit method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		s, err := loadSession(ctx, data, user, c.Param("id"))
		if err != nil {
			return utils.ToHTTPError(err)
		}
		req, err := api.ParseSessionRequest(c)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		now := data.now()
		added, err := api.SaveMedia(ctx, data.Blob, user, s.ID, now, req.Media())
		if err != nil {
			return utils.ToHTTPError(err)
		}
		api.Apply(s, req.Fields(), added)
		s.Updated = now
		if err := api.SaveDocument(ctx, data.Blob, s, now); err != nil {
			return utils.ToHTTPError(err)
		}
		if err := data.DB.UpdateSession(ctx, s); err != nil {
			return utils.ToHTTPError(storageErr("can't update session", err))
		}
		goapp.Log.Info().Str("ID", s.ID).Str("document", s.DocumentKey).Msg("re-rendered")
		api.Notify(ctx, data.MsgSender, s)
		return c.JSON(http.StatusOK, toResult(s))
	}
}

func remove(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("delete method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		id := c.Param("id")
		if id == "" {
			return utils.ToHTTPError(utils.NewErrField("id", "missing"))
		}
		if err := data.DB.DeleteSession(c.Request().Context(), user, id); err != nil {
			return utils.ToHTTPError(storageErr("can't delete session", err))
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func document(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("document method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		s, err := loadSession(ctx, data, user, c.Param("id"))
		if err != nil {
			return utils.ToHTTPError(err)
		}
		if s.DocumentKey == "" {
			return utils.ToHTTPError(fmt.Errorf("no document: %w", utils.ErrNotFound))
		}
		res, err := data.Blob.Load(ctx, s.DocumentKey)
		if err != nil {
			return utils.ToHTTPError(storageErr("can't load document", err))
		}
		c.Response().Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s.html", utils.SanitizeName(s.PatientName)))
		return c.Blob(http.StatusOK, api.DocumentContentType, res)
	}
}

type mediaResult struct {
	URLs []string `json:"urls"`
}

// uploadMedia saves images and videos before the session exists, owner defaults to "manual"
func uploadMedia(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("media method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		form, err := c.MultipartForm()
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: no multipart form data", utils.ErrValidation))
		}
		defer func() { _ = form.RemoveAll() }()
		files, err := api.ReadMedia(form.File[api.PrmMedia])
		if err != nil {
			return utils.ToHTTPError(err)
		}
		if len(files) == 0 {
			return utils.ToHTTPError(utils.NewErrField(api.PrmMedia, "no files"))
		}
		owner := utils.SanitizeName(c.FormValue("sessionId"))
		if owner == "" {
			owner = "manual"
		}
		urls, err := api.SaveMedia(c.Request().Context(), data.Blob, user, owner, data.now(), files)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusOK, mediaResult{URLs: urls})
	}
}
