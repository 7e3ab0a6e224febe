package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers and monitoring.
func Health(c echo.Context) error {
	return ok(c, http.StatusOK, "ok", nil)
}

// Root answers GET / so a bare deployment shows it is alive.
func Root(c echo.Context) error {
	return ok(c, http.StatusOK, "flight booking API", nil)
}
