package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole admits callers whose token role is one of roles.  USER
// tokens reach the signed-in API and PENDING tokens reach signup only.
// Must run after JWTAuth; a request with no role at all is answered 401 so
// a misordered chain fails closed.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := Role(c)
			if role == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
			}
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token not valid for this endpoint"})
			}
			return next(c)
		}
	}
}
