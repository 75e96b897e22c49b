package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/repository"
	"github.com/iliyamo/habit-coach/internal/service"
	"github.com/iliyamo/habit-coach/internal/utils"
)

// statusFor maps domain errors onto HTTP statuses.  Anything unknown is a
// 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrConcurrencyConflict),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrMobileExists),
		errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, repository.ErrIncompleteProfile),
		errors.Is(err, service.ErrInvalidHour),
		errors.Is(err, service.ErrSameHabit),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrUnknownFactor),
		errors.Is(err, service.ErrInvalidTimezone),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, utils.ErrInvalidMobile):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrCodeNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// fail writes {"error": ...}.  Internal errors are logged and hidden from
// the client.
func fail(c echo.Context, log *logger.Logger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", "path", c.Path(), "error", err)
		}
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
