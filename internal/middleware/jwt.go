// Package middleware contains the echo middleware of the API: JWT
// authentication, Redis token-bucket rate limiting, request metrics and
// request logging.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-booking/internal/utils"
)

func deny(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]any{"success": false, "message": msg})
}

// JWTAuth validates a Bearer access token and stores its subject under
// UserIDKey.  Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return deny(c, http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			id, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return deny(c, http.StatusUnauthorized, "invalid token")
			}
			c.Set(UserIDKey, id)
			return next(c)
		}
	}
}
