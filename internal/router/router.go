package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/habit-coach/internal/handler"    // handlers that implement each endpoint
	"github.com/iliyamo/habit-coach/internal/middleware" // JWT, role, cache and webhook middleware
	"github.com/iliyamo/habit-coach/internal/utils"
)

// RegisterRoutes registers routes that do not belong to any API group.
// Currently it exposes only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the onboarding routes.  verify and signin are
// public and sit behind the SMS rate limiter; signup requires the PENDING
// token returned by signin for a new number.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, smsLimiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	// Each verify call sends an SMS, so it gets the small bucket.
	g.POST("/verify", a.Verify, smsLimiter)
	g.POST("/signin", a.SignIn, smsLimiter)
	g.POST("/signup", a.Signup,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RolePending),
	)
}

// RegisterPublic registers the read-only catalog.  No JWT is required and
// responses go through the Redis response cache.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/factors", p.ListFactors)
	g.GET("/habits", p.ListHabits)
	g.GET("/habits/:id", p.GetHabit)
}

// RegisterAccount registers every endpoint of a signed-in user.  All
// routes require a USER token.
func RegisterAccount(e *echo.Echo, a *handler.AccountHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleUser),
	)

	g.GET("/me", a.Me)

	// ---- Profile & recommendations ----
	g.POST("/profile", a.SubmitProfile)
	g.GET("/profile/latest", a.LatestProfile)
	g.GET("/recommendations", a.Recommendations)

	// ---- Habits ----
	g.POST("/partners", a.AddPartner)
	g.POST("/my-habits", a.StartHabit)
	g.GET("/my-habits/current", a.CurrentHabit)
	g.POST("/my-habits/current/pause", a.Pause)
	g.POST("/my-habits/current/resume", a.Resume)
	g.POST("/successes", a.TrackSuccess)

	// ---- Dashboard ----
	g.GET("/dashboard", a.Dashboard)
	g.GET("/dashboard/stats", a.Stats)
}

// RegisterWebhook registers the conversational agent's fulfillment
// endpoint.  It is authenticated by a shared token header, not a JWT.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler, token string) {
	e.POST("/webhook/agent", w.Handle, middleware.WebhookToken(token))
}
