package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/middleware"
	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/service"
	"github.com/iliyamo/habit-coach/internal/streak"
)

// AccountHandler serves everything behind a USER token: profile,
// recommendations, the current habit and its successes.
type AccountHandler struct {
	Users     UserLookup
	Profiles  Profiles
	Recommend Recommender
	Habits    HabitActions
	Log       *logger.Logger
}

// ----- DTOs -----

type profileReq struct {
	Scores map[uint64]int `json:"scores"`
}
type partnerReq struct {
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	CountryCode string `json:"country_code"`
}
type startHabitReq struct {
	HabitID      uint64  `json:"habit_id"`
	Hour         *int    `json:"hour"`
	BreakHabitID *uint64 `json:"break_habit_id"`
	PartnerID    *uint64 `json:"partner_id"`
}
type successReq struct {
	Timestamp string `json:"timestamp"`
}

// userHabitView is the JSON form of a user habit.
type userHabitView struct {
	ID           uint64    `json:"id"`
	HabitID      uint64    `json:"habit_id"`
	Title        string    `json:"title"`
	State        string    `json:"state"`
	StartTime    time.Time `json:"start_time"`
	BreakHabitID *uint64   `json:"break_habit_id,omitempty"`
	PartnerID    *uint64   `json:"partner_id,omitempty"`
}

func toUserHabitView(uh model.UserHabit) userHabitView {
	return userHabitView{
		ID: uh.ID, HabitID: uh.HabitID, Title: uh.Title, State: string(uh.State),
		StartTime: uh.StartTime, BreakHabitID: uh.BreakHabitID, PartnerID: uh.PartnerID,
	}
}

type statsView struct {
	Stats streak.Stats      `json:"stats"`
	Week  []service.WeekDay `json:"week"`
}

// Me returns the signed-in user.
func (h *AccountHandler) Me(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// SubmitProfile stores a new self-assessment.  It becomes the latest
// profile and drives recommendations from now on.
func (h *AccountHandler) SubmitProfile(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	pid, err := h.Profiles.Submit(c.Request().Context(), id, req.Scores)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"profile_id": pid})
}

// LatestProfile returns the newest profile's scores.
func (h *AccountHandler) LatestProfile(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, scores, err := h.Profiles.Latest(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"profile_id": p.ID, "created_at": p.CreatedAt, "scores": scores})
}

// Recommendations returns one page of ranked habits.  The cursor query
// parameter is the next_cursor of the previous page; absent or invalid
// means the first page.
func (h *AccountHandler) Recommendations(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	cursor, _ := strconv.Atoi(c.QueryParam("cursor"))
	page, err := h.Recommend.Recommend(c.Request().Context(), id, cursor)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// AddPartner registers an accountability partner.
func (h *AccountHandler) AddPartner(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req partnerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Habits.AddPartner(c.Request().Context(), id, req.Name, req.Mobile, req.CountryCode)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": p.ID, "name": p.Name, "mobile": p.Mobile})
}

// StartHabit makes the chosen habit the user's current one, replacing any
// previous current habit.
func (h *AccountHandler) StartHabit(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req startHabitReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.HabitID == 0 || req.Hour == nil {
		return badRequest(c, "habit_id/hour required")
	}
	uh, err := h.Habits.StartHabit(c.Request().Context(), id, service.StartHabitRequest{
		HabitID:      req.HabitID,
		Hour:         *req.Hour,
		BreakHabitID: req.BreakHabitID,
		PartnerID:    req.PartnerID,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toUserHabitView(uh))
}

// CurrentHabit returns the ACTIVE or PAUSED habit.
func (h *AccountHandler) CurrentHabit(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	uh, err := h.Habits.CurrentHabit(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserHabitView(uh))
}

// Pause stops reminders for the current habit.
func (h *AccountHandler) Pause(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	msg, err := h.Habits.Pause(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// Resume re-activates a paused habit.
func (h *AccountHandler) Resume(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	msg, err := h.Habits.Unpause(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// TrackSuccess records a success from the dashboard.  An optional
// RFC 3339 timestamp backdates it; otherwise the server time is used.
// A repeated success on the same local day answers 200 with
// recorded=false.
func (h *AccountHandler) TrackSuccess(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req successReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		return badRequest(c, "timestamp must be RFC 3339")
	}
	res, err := h.Habits.ProcessSuccess(c.Request().Context(), id, ts)
	if err != nil {
		return fail(c, h.Log, err)
	}
	status := http.StatusCreated
	if !res.Recorded {
		status = http.StatusOK
	}
	return c.JSON(status, res)
}

// Dashboard returns the current habit, its statistics and the latest
// factor scores.
func (h *AccountHandler) Dashboard(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	d, err := h.Habits.Dashboard(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := echo.Map{
		"user":   toUserPart(d.User),
		"habit":  nil,
		"stats":  nil,
		"scores": d.Scores,
	}
	if d.Habit != nil {
		out["habit"] = toUserHabitView(*d.Habit)
	}
	if d.Stats != nil {
		out["stats"] = statsView{Stats: d.Stats.Stats, Week: d.Stats.Week}
	}
	return c.JSON(http.StatusOK, out)
}

// Stats returns the current habit's statistics and seven-day graph.
func (h *AccountHandler) Stats(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	hs, err := h.Habits.CurrentStats(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, statsView{Stats: hs.Stats, Week: hs.Week})
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds.  An
// empty string yields the zero time, which the service reads as now.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
