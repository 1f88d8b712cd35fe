// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-dashboard/internal/handler"
	"github.com/iliyamo/inventory-dashboard/internal/middleware"
	"github.com/iliyamo/inventory-dashboard/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check
// for load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints.  Register, login and
// refresh live under /v1/auth and need no access token; /v1/me and
// /v1/logout sit behind the JWT middleware.  Logout is additionally
// reachable without a bearer token when the client still holds a refresh
// token to invalidate.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterOrganizations registers tenant onboarding and settings routes.
// Creating an organization is open (a tenant must exist before its first
// user can register); reading or changing settings requires an admin of
// that organization.
func RegisterOrganizations(e *echo.Echo, o *handler.OrganizationHandler, jwtSecret string) {
	e.POST("/v1/organizations", o.Post)

	g := e.Group("/v1/organizations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(repository.AdminRole))
	g.GET("/:id", o.Get)
	g.PUT("/:id", o.Put)
}

// RegisterResources registers the catalog CRUD endpoints.  Every route is
// behind the JWT middleware; the organization scoping itself happens in
// the handlers, which read the tenant from the verified token, never from
// the request.
func RegisterResources(e *echo.Echo, jwtSecret string, cats *handler.CategoryHandler, subs *handler.SubCategoryHandler, items *handler.ItemHandler) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	g.GET("/item-categories", cats.Get)
	g.GET("/item-categories/:id", cats.Get)
	g.POST("/item-categories", cats.Post)
	g.PUT("/item-categories/:id", cats.Put)
	g.DELETE("/item-categories/:id", cats.Delete)

	g.GET("/item-subcategories", subs.Get)
	g.GET("/item-subcategories/:id", subs.Get)
	g.POST("/item-subcategories", subs.Post)
	g.PUT("/item-subcategories/:id", subs.Put)
	g.DELETE("/item-subcategories/:id", subs.Delete)

	g.GET("/items", items.Get)
	g.GET("/items/:id", items.Get)
	g.POST("/items", items.Post)
	g.PUT("/items/:id", items.Put)
	g.DELETE("/items/:id", items.Delete)
}
