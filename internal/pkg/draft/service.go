package draft

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/docbuddy/internal/pkg/analysis"
	"github.com/airenas/docbuddy/internal/pkg/persistence"
	tapi "github.com/airenas/docbuddy/internal/pkg/transcriber/api"
	"github.com/airenas/docbuddy/internal/pkg/usage"
	"github.com/airenas/docbuddy/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB keeps drafts and creates sessions
type DB interface {
	InsertDraft(ctx context.Context, d *persistence.Draft) error
	LoadDraft(ctx context.Context, userID, id string) (*persistence.Draft, error)
	ListDrafts(ctx context.Context, userID string) ([]*persistence.Draft, error)
	UpdateDraft(ctx context.Context, d *persistence.Draft) error
	DeleteDraft(ctx context.Context, userID, id string, version int) error
	LoadTombstone(ctx context.Context, userID, id string) (*persistence.Tombstone, error)
	FinalizeDraft(ctx context.Context, s *persistence.Session, d *persistence.Draft) error
	DeleteExpiredDrafts(ctx context.Context, userID string, olderThan time.Time) (int, error)
	LoadSettings(ctx context.Context, userID string) (*persistence.Settings, error)
}

// BlobStore keeps audio, media and documents
type BlobStore interface {
	Put(ctx context.Context, data []byte, path, contentType string) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
}

// Ledger enforces the monthly transcription limit
type Ledger interface {
	CheckQuota(ctx context.Context, userID string, estimated float64) (*usage.Reservation, error)
	CommitUsage(ctx context.Context, r *usage.Reservation, actual float64)
	Release(ctx context.Context, r *usage.Reservation)
}

// Estimator estimates audio duration
type Estimator interface {
	EstimateMinutes(ctx context.Context, data []byte) float64
}

// Transcriber calls the speech-to-text provider
type Transcriber interface {
	Transcribe(ctx context.Context, audio *tapi.Audio) (*tapi.Result, error)
}

// Analyzer makes the summary and suggestions
type Analyzer interface {
	Analyze(ctx context.Context, in *analysis.Input) (*analysis.Result, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Prompts are default analysis prompts used when the user has no settings
type Prompts struct {
	Clinic  string
	Summary string
}

// Data keeps data required for service work
type Data struct {
	Port        int
	DB          DB
	Blob        BlobStore
	Ledger      Ledger
	Estimator   Estimator
	Transcriber Transcriber
	Analyzer    Analyzer
	MsgSender   MsgSender
	Prompts     Prompts

	now func() time.Time
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP DocBuddy draft service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 300 * time.Second

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
	if data.Ledger == nil {
		return errors.New("no usage ledger")
	}
	if data.Estimator == nil {
		return errors.New("no estimator")
	}
	if data.Transcriber == nil {
		return errors.New("no transcriber")
	}
	if data.Analyzer == nil {
		return errors.New("no analyzer")
	}
	if data.MsgSender == nil {
		return errors.New("no msg sender")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("docbuddy_draft", nil)
}

func initRoutes(data *Data) *echo.Echo {
	if data.now == nil {
		data.now = time.Now
	}
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/drafts", create(data))
	e.GET("/drafts", list(data))
	e.POST("/drafts/cleanup", cleanup(data))
	e.GET("/drafts/:id", get(data))
	e.PATCH("/drafts/:id", edit(data))
	e.DELETE("/drafts/:id", remove(data))
	e.POST("/drafts/:id/recording", startRecording(data))
	e.POST("/drafts/:id/continuation", continueRecording(data))
	e.PUT("/drafts/:id/audio", replaceAudio(data))
	e.GET("/drafts/:id/audio", getAudio(data))
	e.POST("/drafts/:id/transcribe", transcribe(data))
	e.POST("/drafts/:id/analyze", analyze(data))
	e.POST("/drafts/:id/finalize", finalize(data))
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

type draftResult struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title,omitempty"`
	State                 string    `json:"state"`
	Version               int       `json:"version"`
	AudioURL              string    `json:"audioUrl"`
	Language              string    `json:"language,omitempty"`
	Transcript            string    `json:"transcript,omitempty"`
	Summary               string    `json:"summary,omitempty"`
	SuggestedDiagnosis    string    `json:"suggestedDiagnosis,omitempty"`
	SuggestedPrescription string    `json:"suggestedPrescription,omitempty"`
	Created               time.Time `json:"created"`
	Updated               time.Time `json:"updated"`
}

func toResult(d *persistence.Draft) *draftResult {
	return &draftResult{ID: d.ID, Title: utils.FromSQLStr(d.Title), State: d.State, Version: d.Version,
		AudioURL: d.AudioURL, Language: utils.FromSQLStr(d.Language), Transcript: utils.FromSQLStr(d.Transcript),
		Summary: utils.FromSQLStr(d.Summary), SuggestedDiagnosis: utils.FromSQLStr(d.SuggestedDiagnosis),
		SuggestedPrescription: utils.FromSQLStr(d.SuggestedPrescription), Created: d.Created, Updated: d.Updated}
}

type editInput struct {
	Title string `json:"title"`
}

type transcribeInput struct {
	Language string `json:"language"`
}

type cleanupInput struct {
	OlderThanHours int `json:"olderThanHours"`
}

type cleanupResult struct {
	Deleted int `json:"deleted"`
}

func list(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("list method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		drafts, err := data.DB.ListDrafts(c.Request().Context(), user)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't list drafts: %v", utils.ErrStorage, err))
		}
		res := make([]*draftResult, 0, len(drafts))
		for _, d := range drafts {
			res = append(res, toResult(d))
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
		d, err := loadDraft(c.Request().Context(), data, user, c.Param("id"))
		if err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusOK, toResult(d))
	}
}

func edit(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("edit method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		var in editInput
		if err := c.Bind(&in); err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't decode: %v", utils.ErrValidation, err))
		}
		d, err := setTitle(c.Request().Context(), data, user, c.Param("id"), in.Title)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusOK, toResult(d))
	}
}

func remove(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("delete method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		if err := deleteDraft(c.Request().Context(), data, user, c.Param("id")); err != nil {
			return utils.ToHTTPError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func cleanup(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("cleanup method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		in := cleanupInput{}
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&in); err != nil {
				return utils.ToHTTPError(fmt.Errorf("%w: can't decode: %v", utils.ErrValidation, err))
			}
		}
		if in.OlderThanHours < 0 {
			return utils.ToHTTPError(utils.NewErrField("olderThanHours", "negative"))
		}
		if in.OlderThanHours == 0 {
			in.OlderThanHours = 24
		}
		older := data.now().Add(-time.Duration(in.OlderThanHours) * time.Hour)
		n, err := data.DB.DeleteExpiredDrafts(c.Request().Context(), user, older)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't clean drafts: %v", utils.ErrStorage, err))
		}
		goapp.Log.Info().Str("user", user).Int("deleted", n).Msg("cleaned")
		return c.JSON(http.StatusOK, cleanupResult{Deleted: n})
	}
}

func startRecording(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("recording method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		d, err := markRecording(c.Request().Context(), data, user, c.Param("id"))
		if err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusOK, toResult(d))
	}
}

func transcribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("transcribe method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		in := transcribeInput{}
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&in); err != nil {
				return utils.ToHTTPError(fmt.Errorf("%w: can't decode: %v", utils.ErrValidation, err))
			}
		}
		if !supportLanguage(in.Language) {
			return utils.ToHTTPError(utils.NewErrField("language", "not supported: "+in.Language))
		}
		d, err := transcribeDraft(c.Request().Context(), data, user, c.Param("id"), in.Language)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusOK, toResult(d))
	}
}

func analyze(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("analyze method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		d, err := loadDraft(ctx, data, user, c.Param("id"))
		if err != nil {
			return utils.ToHTTPError(err)
		}
		if !d.Transcript.Valid {
			return utils.ToHTTPError(fmt.Errorf("%w: no transcript", utils.ErrConflict))
		}
		d, err = analyzeDraft(ctx, data, d)
		if err != nil {
			return utils.ToHTTPError(err)
		}
		return c.JSON(http.StatusOK, toResult(d))
	}
}

var languages = map[string]bool{"": true, "en": true, "msa": true, "tam": true, "cmn": true, "hin": true,
	"yue": true, "jpn": true, "kor": true}

func supportLanguage(l string) bool {
	return languages[l]
}
