package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserIDKey is the echo context key JWTAuth stores the caller's ID under.
const UserIDKey = "user_id"

// UserID returns the authenticated user's ID set by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(UserIDKey).(uint64)
	return id, ok && id > 0
}

// userKey identifies the caller for rate limiting; "anon" before
// authentication.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
