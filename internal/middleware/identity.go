package middleware

// identity.go exposes the caller identity stored by JWTAuth.  Handlers
// use these accessors instead of reading context keys directly.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's ID.  ok is false for anonymous
// requests and for PENDING tokens, which carry no user.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the role claim or "" when the request is anonymous.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// Mobile returns the verified mobile number carried by a PENDING token.
func Mobile(c echo.Context) string {
	m, _ := c.Get(ctxMobile).(string)
	return m
}

// userKey identifies the caller in rate-limit keys: the user ID when
// signed in and "anon" otherwise.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
