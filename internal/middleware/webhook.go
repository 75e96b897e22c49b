package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// WebhookTokenHeader carries the shared secret configured on the
// conversational agent.
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookToken rejects agent calls whose header does not match token.
// An empty token disables the check.
func WebhookToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if token == "" {
			return next
		}
		return func(c echo.Context) error {
			got := c.Request().Header.Get(WebhookTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid webhook token"})
			}
			return next(c)
		}
	}
}
