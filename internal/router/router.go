// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/localspothub/deals-api/internal/handler"
	"github.com/localspothub/deals-api/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware. Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access only mints a new
	// access token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout runs outside the JWT middleware so an expired access token
	// still lets a client close its session with the refresh token.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("OWNER", "CUSTOMER"))
	auth.GET("/me", a.Me)

	// Alias kept for clients that call the top-level logout path.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers unauthenticated browse endpoints. The
// PublicHandler returns sanitized data for stores and live deals; no
// JWT or role middleware applies, and the optional middlewares (Redis
// response cache, rate limiter) are attached per route group here.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("", mw...)
	// Store directory and per-store pages.
	g.GET("/v1/stores", p.GetPublicStores)
	g.GET("/v1/stores/:id", p.GetPublicStore)
	// Deal browse/search with optional lat/lng distance sorting.
	g.GET("/v1/deals", p.SearchPublicDeals)
	g.GET("/v1/deals/:id", p.GetPublicDeal)
}
