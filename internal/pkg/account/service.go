package account

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	"github.com/airenas/docbuddy/internal/pkg/persistence"
	"github.com/airenas/docbuddy/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB keeps user's settings and usage history
type DB interface {
	LoadSettings(ctx context.Context, userID string) (*persistence.Settings, error)
	SaveSettings(ctx context.Context, s *persistence.Settings) error
	ListUsage(ctx context.Context, userID string) ([]*persistence.Usage, error)
}

// UsageReader returns monthly usage
type UsageReader interface {
	Usage(ctx context.Context, userID string, year, month int) (float64, error)
	Now() (int, int)
	Limit() float64
}

// Data keeps data required for service work
type Data struct {
	Port    int
	DB      DB
	Usage   UsageReader
	Prompts Prompts
}

// Prompts are defaults shown for users without settings
type Prompts struct {
	Clinic  string
	Summary string
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP DocBuddy account service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.Usage == nil {
		return errors.New("no usage reader")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("docbuddy_account", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/usage", currentUsage(data))
	e.GET("/usage/history", usageHistory(data))
	e.GET("/usage/:year/:month", monthUsage(data))
	e.GET("/settings", getSettings(data))
	e.PUT("/settings", putSettings(data))
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

type usageResult struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	MinutesUsed float64 `json:"minutesUsed"`
	Limit       float64 `json:"limit"`
	Remaining   float64 `json:"remaining"`
}

func newUsageResult(year, month int, used, limit float64) *usageResult {
	res := &usageResult{Year: year, Month: month, MinutesUsed: used, Limit: limit, Remaining: limit - used}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res
}

func currentUsage(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("usage method")()
		y, m := data.Usage.Now()
		return writeUsage(c, data, y, m)
	}
}

func monthUsage(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("month usage method")()
		y, err := strconv.Atoi(c.Param("year"))
		if err != nil || y < 2000 || y > 9999 {
			return utils.ToHTTPError(utils.NewErrField("year", "wrong value"))
		}
		m, err := strconv.Atoi(c.Param("month"))
		if err != nil || m < 1 || m > 12 {
			return utils.ToHTTPError(utils.NewErrField("month", "wrong value"))
		}
		return writeUsage(c, data, y, m)
	}
}

func writeUsage(c echo.Context, data *Data, year, month int) error {
	user, err := utils.TakeUser(c)
	if err != nil {
		return err
	}
	used, err := data.Usage.Usage(c.Request().Context(), user, year, month)
	if err != nil {
		return utils.ToHTTPError(fmt.Errorf("%w: can't load usage: %v", utils.ErrStorage, err))
	}
	return c.JSON(http.StatusOK, newUsageResult(year, month, used, data.Usage.Limit()))
}

func usageHistory(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("usage history method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		list, err := data.DB.ListUsage(c.Request().Context(), user)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't load usage: %v", utils.ErrStorage, err))
		}
		res := make([]*usageResult, 0, len(list))
		for _, u := range list {
			res = append(res, newUsageResult(u.Year, u.Month, u.MinutesUsed, data.Usage.Limit()))
		}
		return c.JSON(http.StatusOK, res)
	}
}

type settings struct {
	ClinicPrompt  string `json:"clinicPrompt"`
	SummaryPrompt string `json:"summaryPrompt"`
}

func getSettings(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("get settings method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		s, err := data.DB.LoadSettings(c.Request().Context(), user)
		if err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't load settings: %v", utils.ErrStorage, err))
		}
		return c.JSON(http.StatusOK, effective(data, s))
	}
}

// putSettings saves prompts, an empty prompt means the default one
func putSettings(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("put settings method")()
		user, err := utils.TakeUser(c)
		if err != nil {
			return err
		}
		var in settings
		if err := c.Bind(&in); err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't decode: %v", utils.ErrValidation, err))
		}
		s := &persistence.Settings{UserID: user, ClinicPrompt: utils.ToSQLStr(in.ClinicPrompt),
			SummaryPrompt: utils.ToSQLStr(in.SummaryPrompt), Updated: time.Now()}
		if err := data.DB.SaveSettings(c.Request().Context(), s); err != nil {
			return utils.ToHTTPError(fmt.Errorf("%w: can't save settings: %v", utils.ErrStorage, err))
		}
		return c.JSON(http.StatusOK, effective(data, s))
	}
}

func effective(data *Data, s *persistence.Settings) *settings {
	res := &settings{ClinicPrompt: data.Prompts.Clinic, SummaryPrompt: data.Prompts.Summary}
	if s != nil {
		res.ClinicPrompt = utils.SQLStrOr(s.ClinicPrompt, res.ClinicPrompt)
		res.SummaryPrompt = utils.SQLStrOr(s.SummaryPrompt, res.SummaryPrompt)
	}
	return res
}
