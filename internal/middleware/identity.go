package middleware

// identity.go holds helpers shared by the rate limiter and cache for keying
// requests by the caller.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated user id as a string, or "guest" when the
// request did not pass through JWTAuth.
func userID(c echo.Context) string {
	switch v := c.Get(CtxUserID).(type) {
	case uint64:
		if v > 0 {
			return strconv.FormatUint(v, 10)
		}
	case string:
		if v != "" {
			return v
		}
	}
	return "guest"
}
