package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/handler"
	"github.com/iliyamo/user-service/internal/middleware"
)

// Deps are the handlers and middleware the routes are built from. Nil
// middleware is treated as a pass-through.
type Deps struct {
	Auth     *handler.AuthHandler
	Profiles *handler.ProfileHandler
	Tokens   middleware.TokenVerifier
	DB       handler.Pinger

	RateLimit echo.MiddlewareFunc // register, login, resend-verification
	Cache     echo.MiddlewareFunc // public profile lookups
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/health", handler.Health(d.DB))
}

// RegisterAuth registers the authentication endpoints under /api/auth.
// Credential-bearing POSTs are rate limited; verify-token requires a bearer.
func RegisterAuth(e *echo.Echo, d Deps) {
	limit := orPass(d.RateLimit)
	g := e.Group("/api/auth")
	g.POST("/register", d.Auth.Register, limit)
	g.POST("/login", d.Auth.Login, limit)
	g.GET("/verify-email", d.Auth.VerifyEmail)
	g.POST("/resend-verification", d.Auth.ResendVerification, limit)
	g.GET("/verify-token", d.Auth.VerifyToken, middleware.BearerAuth(d.Tokens))
}

// RegisterUsers registers the profile endpoints under /api/users. The static
// /profile routes take precedence over the /:userId lookup.
func RegisterUsers(e *echo.Echo, d Deps) {
	g := e.Group("/api/users")
	bearer := middleware.BearerAuth(d.Tokens)
	g.GET("/profile", d.Profiles.GetProfile, bearer)
	g.PUT("/profile", d.Profiles.UpdateProfile, bearer)
	g.GET("/:userId", d.Profiles.GetUser, orPass(d.Cache))
}

// Register wires every route group.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterUsers(e, d)
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}
