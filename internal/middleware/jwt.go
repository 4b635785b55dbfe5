package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/meethub/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
)

// AccessCookie holds a copy of the access token for browser navigations
// that cannot carry an Authorization header, such as the gateway redirect
// back to /tickets/success. Only JWTAuthOrCookie reads it.
const AccessCookie = "meethub_access"

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and email claims into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers read
// the authenticated user via `c.Get("user_id")` (a uint64) and
// `c.Get("email")`.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			return authenticate(c, secret, raw, next)
		}
	}
}

// JWTAuthOrCookie is JWTAuth that falls back to the AccessCookie when no
// bearer header is present. Use it only on safe GET routes reached by a
// top-level browser redirect.
func JWTAuthOrCookie(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				ck, err := c.Cookie(AccessCookie)
				if err != nil || ck.Value == "" {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
				}
				raw = ck.Value
			}
			return authenticate(c, secret, raw, next)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")), true
}

func authenticate(c echo.Context, secret, raw string, next echo.HandlerFunc) error {
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxEmail, claims.Email)
	return next(c)
}
