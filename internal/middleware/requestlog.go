package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/habit-coach/internal/logger"
)

const ctxRequestID = "request_id"

// RequestLogger assigns every request an ID (reusing X-Request-ID when the
// caller sent one), echoes it in the response and logs one line per
// request once the handler returns.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(ctxRequestID, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			err := next(c)
			if err != nil {
				// let echo's error handler write the response before we
				// read the final status
				c.Error(err)
			}

			kv := []interface{}{
				"request_id", rid,
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"ip", c.RealIP(),
			}
			if id, ok := UserID(c); ok {
				kv = append(kv, "user_id", id)
			}
			switch {
			case c.Response().Status >= 500:
				log.Error("request", append(kv, "error", err)...)
			case c.Response().Status >= 400:
				log.Warn("request", kv...)
			default:
				log.Info("request", kv...)
			}
			return nil
		}
	}
}

// RequestID returns the ID assigned by RequestLogger.
func RequestID(c echo.Context) string {
	s, _ := c.Get(ctxRequestID).(string)
	return s
}
