package router

import (
	"github.com/labstack/echo/v4"

	"github.com/localspothub/deals-api/internal/handler"
	"github.com/localspothub/deals-api/internal/middleware"
)

// RegisterOwner registers OWNER-scoped endpoints under /v1.
// All routes require a valid JWT and OWNER role.
func RegisterOwner(e *echo.Echo, o *handler.OwnerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OWNER"),
	)

	// ---- Stores ----
	g.POST("/stores", o.CreateStore)
	g.GET("/my-stores", o.ListStores)
	// NOTE: GET /v1/stores and /v1/stores/:id are the public directory;
	// the owner detail view lives under /my-stores/:id to avoid a route
	// conflict.
	g.GET("/my-stores/:id", o.GetStore)
	g.PUT("/stores/:id", o.UpdateStore)
	g.PATCH("/stores/:id", o.UpdateStore)
	g.DELETE("/stores/:id", o.DeleteStore)

	// ---- Deals ----
	g.POST("/deals", o.CreateDeal)
	g.GET("/my-deals", o.ListDeals)
	g.GET("/my-deals/:id", o.GetDeal)
	g.PUT("/deals/:id", o.UpdateDeal)
	g.PATCH("/deals/:id", o.UpdateDeal)
	g.DELETE("/deals/:id", o.DeleteDeal)

	// ---- Redemptions ----
	g.GET("/deals/:id/redemptions", o.ListDealRedemptions)
}
