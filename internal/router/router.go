// Package router registers the HTTP routes of the API.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ckfr/ops-allocation/internal/handler"
	"github.com/ckfr/ops-allocation/internal/middleware"
	"github.com/ckfr/ops-allocation/internal/permission"
)

// RegisterRoutes registers routes that need no authentication: liveness,
// readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the session endpoints.  Token exchange lives under
// /v1/auth; /v1/me only needs a valid access token so that a freshly
// registered account without groups can still see itself.  mw wraps the
// /v1/auth group (rate limiting).
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", mw...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// API bundles the handlers and middleware of the protected routes.
type API struct {
	Ships      *handler.ShipHandler
	Allocation *handler.AllocationHandler
	Operations *handler.OperationHandler
	Users      *handler.UserHandler
	// RateLimit runs after authentication so buckets can be keyed by user.
	RateLimit echo.MiddlewareFunc
	// CatalogCache wraps the catalog reads (ships, taxonomy).
	CatalogCache echo.MiddlewareFunc
	// CatalogPurge wraps ship writes and empties the catalog cache.
	CatalogPurge echo.MiddlewareFunc
}

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}

// RegisterAPI registers the member and manager routes.  Members may read;
// managers may also write.  Both share one /v1 group so that unknown paths
// under it answer 404 to any authenticated caller; the permission check is
// attached per route.
func RegisterAPI(e *echo.Echo, api API, jwtSecret string) {
	cache := orPass(api.CatalogCache)
	purge := orPass(api.CatalogPurge)
	member := middleware.RequirePermission(permission.CanAccessMemberHome)
	manager := middleware.RequirePermission(permission.CanManageOps)

	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret), orPass(api.RateLimit))

	v1.GET("/ships", api.Ships.List, member, cache)
	v1.GET("/ships/:id", api.Ships.Get, member)
	v1.GET("/taxonomy", handler.Taxonomy, member, cache)
	v1.GET("/allocation", api.Allocation.Overview, member)
	v1.GET("/operations", api.Operations.List, member)
	v1.GET("/operations/overview", api.Operations.Overview, member)
	v1.GET("/operations/active", api.Operations.Active, member)
	v1.GET("/operations/:id", api.Operations.Get, member)

	v1.POST("/ships", api.Ships.Create, manager, purge)
	v1.PUT("/ships/:id", api.Ships.Update, manager, purge)
	v1.DELETE("/ships/:id", api.Ships.Delete, manager, purge)

	v1.POST("/ships/:id/roles", api.Allocation.CreateTemplate, manager)
	v1.PUT("/roles/:id", api.Allocation.UpdateTemplate, manager)
	v1.PATCH("/roles/:id", api.Allocation.UpdateTemplate, manager)
	v1.DELETE("/roles/:id", api.Allocation.DeleteTemplate, manager)
	v1.PUT("/slots/:id", api.Allocation.UpdateSlot, manager)
	v1.PATCH("/slots/:id", api.Allocation.UpdateSlot, manager)

	v1.POST("/operations", api.Operations.Create, manager)
	v1.PUT("/operations/:id", api.Operations.Update, manager)
	v1.PATCH("/operations/:id", api.Operations.Update, manager)
	v1.DELETE("/operations/:id", api.Operations.Delete, manager)
	v1.PUT("/operations/:id/highlighted-ships", api.Operations.SetHighlightedShips, manager)

	v1.GET("/users", api.Users.List, manager)
	v1.PUT("/users/:id/groups", api.Users.SetGroups, manager)
}
