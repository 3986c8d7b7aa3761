package router

import (
	"github.com/labstack/echo/v4"

	"github.com/localspothub/deals-api/internal/handler"
	"github.com/localspothub/deals-api/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1. All
// routes require a valid JWT and the CUSTOMER role. Customers can check
// eligibility, redeem deals, list their redemptions and favorites, and
// manage preferences.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	// Note: GET /v1/deals and GET /v1/deals/:id are registered on the
	// public router so guests can browse. Redemption starts here.
	g.GET("/deals/:id/eligibility", h.Eligibility)
	g.POST("/deals/:id/redeem", h.Redeem)
	g.POST("/deals/:id/favorite", h.ToggleFavorite)

	g.GET("/my-redemptions", h.MyRedemptions)
	g.GET("/redemptions/:id", h.GetRedemption)
	g.GET("/redemptions/:id/qr", h.RedemptionQR)

	g.GET("/my-favorites", h.MyFavorites)
	g.GET("/preferences", h.GetPreferences)
	g.PUT("/preferences", h.PutPreferences)
}
