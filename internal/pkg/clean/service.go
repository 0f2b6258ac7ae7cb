package clean

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Cleaner discards one draft
type Cleaner interface {
	Clean(ctx context.Context, ID string) error
}

// IDsProvider returns expired draft IDs
type IDsProvider interface {
	GetExpired(ctx context.Context) ([]string, error)
}

// Data keeps data required for service work
type Data struct {
	Port        int
	Cleaner     Cleaner
	IDsProvider IDsProvider
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP DocBuddy clean service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 60 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Cleaner == nil {
		return errors.New("no cleaner")
	}
	if data.IDsProvider == nil {
		return errors.New("no IDs provider")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("docbuddy_clean", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.DELETE("/delete/:id", delete(data.Cleaner))
	e.POST("/sweep", sweep(data))
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

func delete(cleaner Cleaner) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("delete method")()

		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		err := cleaner.Clean(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't delete")
		}
		return c.String(http.StatusOK, "deleted")
	}
}

type sweepResult struct {
	Expired int `json:"expired"`
	Deleted int `json:"deleted"`
}

// sweep discards all expired drafts now, without waiting for the timer
func sweep(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("sweep method")()
		ctx := c.Request().Context()
		ids, err := data.IDsProvider.GetExpired(ctx)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't get expired")
		}
		res := sweepResult{Expired: len(ids)}
		for _, id := range ids {
			if err := data.Cleaner.Clean(ctx, id); err != nil {
				goapp.Log.Error().Err(err).Str("ID", id).Msg("can't clean")
				continue
			}
			res.Deleted++
		}
		goapp.Log.Info().Int("expired", res.Expired).Int("deleted", res.Deleted).Msg("swept")
		return c.JSON(http.StatusOK, res)
	}
}
