package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/middleware"
	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/service"
	"github.com/iliyamo/habit-coach/internal/utils"
)

// AuthHandler serves SMS verification, sign-in and signup.
type AuthHandler struct {
	Onboarding Onboarding
	Log        *logger.Logger
}

func NewAuthHandler(o Onboarding, log *logger.Logger) *AuthHandler {
	return &AuthHandler{Onboarding: o, Log: log}
}

// ----- DTOs -----

type verifyReq struct {
	Mobile      string `json:"mobile"`
	CountryCode string `json:"country_code"`
}
type signinReq struct {
	Mobile      string `json:"mobile"`
	CountryCode string `json:"country_code"`
	Code        string `json:"code"`
}
type signupReq struct {
	Name   string         `json:"name"`
	TZ     string         `json:"tz"`
	Scores map[uint64]int `json:"scores"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	TZ     string `json:"tz"`
}
type signinResp struct {
	Enrolled bool      `json:"enrolled"`
	Role     string    `json:"role"`
	User     *userPart `json:"user,omitempty"`
	Access   tokenPart `json:"access"`
}

func toUserPart(u model.User) *userPart {
	return &userPart{ID: u.ID, Name: u.Name, Mobile: u.Mobile, TZ: u.TZ}
}

// Verify sends a verification code to the submitted number.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Mobile) == "" {
		return badRequest(c, "mobile required")
	}
	mobile, err := h.Onboarding.SendCode(c.Request().Context(), req.Mobile, req.CountryCode)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"mobile": mobile})
}

// SignIn exchanges a verification code for a token.  Unknown numbers get
// a PENDING token that only unlocks signup.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signinReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Mobile) == "" || strings.TrimSpace(req.Code) == "" {
		return badRequest(c, "mobile/code required")
	}
	res, err := h.Onboarding.SignIn(c.Request().Context(), req.Mobile, req.CountryCode, req.Code)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := signinResp{
		Enrolled: res.Enrolled,
		Role:     utils.RolePending,
		Access:   tokenPart{Token: res.Token.Token, Expires: res.Token.Exp},
	}
	if res.Enrolled {
		out.Role = utils.RoleUser
		out.User = toUserPart(res.User)
	}
	return c.JSON(http.StatusOK, out)
}

// Signup creates the account of a verified number together with its first
// factor profile.
func (h *AuthHandler) Signup(c echo.Context) error {
	mobile := middleware.Mobile(c)
	if mobile == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "verification required"})
	}
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	user, tok, err := h.Onboarding.Signup(c.Request().Context(), service.SignupRequest{
		Mobile: mobile,
		Name:   req.Name,
		TZ:     strings.TrimSpace(req.TZ),
		Scores: req.Scores,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, signinResp{
		Enrolled: true,
		Role:     utils.RoleUser,
		User:     toUserPart(user),
		Access:   tokenPart{Token: tok.Token, Expires: tok.Exp},
	})
}
