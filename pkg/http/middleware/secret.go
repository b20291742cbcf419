package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SharedSecret rejects requests whose key query parameter does not match
// secret. An empty secret accepts every request.
func SharedSecret(secret string) echo.MiddlewareFunc {
	want := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(want) == 0 {
				return next(c)
			}
			got := []byte(c.QueryParam("key"))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				return c.JSON(http.StatusForbidden, map[string]any{"ok": false, "error": "forbidden"})
			}
			return next(c)
		}
	}
}
