// Package handler exposes the HTTP handlers of the API.  This file serves
// the public, read-only catalog: factors and habits.  Responses are
// cached in Redis by the router.
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/habit-coach/internal/logger"
)

// CatalogHandler aggregates the reference data needed for browsing.
type CatalogHandler struct {
	Habits   Catalog
	Profiles Profiles
	Log      *logger.Logger
}

// PublicHabit is a catalog habit as exposed to clients.  Factor weights
// stay internal.
type PublicHabit struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Hour        int    `json:"hour"`
}

// ListFactors returns the factors a user rates during onboarding.
func (h *CatalogHandler) ListFactors(c echo.Context) error {
	factors, err := h.Profiles.List(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": factors})
}

// ListHabits returns every catalog habit in id order.
func (h *CatalogHandler) ListHabits(c echo.Context) error {
	habits, err := h.Habits.List(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]PublicHabit, 0, len(habits))
	for _, hb := range habits {
		out = append(out, PublicHabit{ID: hb.ID, Title: hb.Title, Description: hb.Description, Hour: hb.Hour})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetHabit returns one catalog habit.
func (h *CatalogHandler) GetHabit(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "invalid id")
	}
	hb, err := h.Habits.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, PublicHabit{
		ID: hb.ID, Title: hb.Title, Description: hb.Description, Hour: hb.Hour,
	})
}
