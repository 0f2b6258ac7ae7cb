package utils

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// UserHeader keeps caller's ID, set by the auth gateway
const UserHeader = "x-docbuddy-user"

// TakeUser returns caller's user ID or 401 echo error
func TakeUser(c echo.Context) (string, error) {
	res := strings.TrimSpace(c.Request().Header.Get(UserHeader))
	if res == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "no user")
	}
	return res, nil
}
