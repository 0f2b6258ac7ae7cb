package utils

import (
	"errors"
	"net/http"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/echo/v4"
)

// ErrResponse is an error body returned to the client
type ErrResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToHTTPError maps pipeline errors to an echo error, quota errors get own status and code
func ToHTTPError(err error) error {
	var fErr *ErrField
	switch {
	case errors.As(err, &fErr):
		return echo.NewHTTPError(http.StatusBadRequest, ErrResponse{Code: "VALIDATION", Message: fErr.Error()})
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, ErrResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrResponse{Code: "NOT_FOUND", Message: "not found"})
	case errors.Is(err, ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusTooManyRequests, ErrResponse{Code: "QUOTA_EXCEEDED", Message: err.Error()})
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, ErrResponse{Code: "CONFLICT", Message: "draft state changed, reload and retry"})
	case errors.Is(err, ErrProviderFailure):
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusBadGateway, ErrResponse{Code: "TRANSCRIPTION_FAILED", Message: "transcription failed, retry"})
	case errors.Is(err, ErrAnalysisFailure):
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusBadGateway, ErrResponse{Code: "ANALYSIS_FAILED", Message: "analysis failed, retry"})
	}
	goapp.Log.Error().Err(err).Send()
	return echo.NewHTTPError(http.StatusInternalServerError, ErrResponse{Code: "FAILED", Message: "failed, retry"})
}
