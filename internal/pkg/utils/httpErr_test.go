package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "field", err: NewErrField("age", "missing"), wantCode: http.StatusBadRequest, wantBody: "VALIDATION"},
		{name: "validation", err: fmt.Errorf("olia: %w", ErrValidation), wantCode: http.StatusBadRequest, wantBody: "VALIDATION"},
		{name: "not found", err: fmt.Errorf("olia: %w", ErrNotFound), wantCode: http.StatusNotFound, wantBody: "NOT_FOUND"},
		{name: "quota", err: fmt.Errorf("olia: %w", ErrQuotaExceeded), wantCode: http.StatusTooManyRequests, wantBody: "QUOTA_EXCEEDED"},
		{name: "conflict", err: ErrConflict, wantCode: http.StatusConflict, wantBody: "CONFLICT"},
		{name: "provider", err: ErrProviderFailure, wantCode: http.StatusBadGateway, wantBody: "TRANSCRIPTION_FAILED"},
		{name: "analysis", err: ErrAnalysisFailure, wantCode: http.StatusBadGateway, wantBody: "ANALYSIS_FAILED"},
		{name: "storage", err: ErrStorage, wantCode: http.StatusInternalServerError, wantBody: "FAILED"},
		{name: "other", err: errors.New("olia"), wantCode: http.StatusInternalServerError, wantBody: "FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToHTTPError(tt.err)
			var hErr *echo.HTTPError
			require.True(t, errors.As(got, &hErr))
			assert.Equal(t, tt.wantCode, hErr.Code)
			resp, ok := hErr.Message.(ErrResponse)
			require.True(t, ok)
			assert.Equal(t, tt.wantBody, resp.Code)
		})
	}
}
