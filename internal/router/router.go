// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-management-api/internal/auth"
	"github.com/iliyamo/task-management-api/internal/config"
	"github.com/iliyamo/task-management-api/internal/handler"
	"github.com/iliyamo/task-management-api/internal/middleware"
	"github.com/iliyamo/task-management-api/internal/model"
)

// RegisterRoutes registers routes that need no authentication context at all.
// Currently only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the /api/v1 surface. The authentication gate runs on
// every request and never rejects; per-group guards decide which endpoints
// require an identity or a specific authority. The token endpoints get a
// Redis-backed rate limiter since login and refresh are the brute-force
// surface.
func RegisterAPI(e *echo.Echo,
	a *handler.AuthHandler, u *handler.UserHandler, t *handler.TaskHandler,
	signer *auth.Signer, rlCfg config.RateLimitConfig, rdb *redis.Client) {

	e.Use(middleware.Gate(signer))

	api := e.Group("/api/v1")

	tokens := api.Group("/token", middleware.NewTokenBucket(rlCfg, rdb))
	tokens.POST("", a.Login)
	tokens.POST("/refresh", a.Refresh)
	tokens.POST("/invalidate", a.Invalidate, middleware.RequireAuthenticated())

	users := api.Group("/users")
	users.POST("", u.Register)
	users.GET("/me", u.Me, middleware.RequireAuthenticated())
	users.GET("", u.List, middleware.RequireAuthority(model.AuthorityAdmin))
	users.PATCH("/:id/status", u.ChangeStatus, middleware.RequireAuthority(model.AuthorityAdmin))

	tasks := api.Group("/tasks", middleware.RequireAuthenticated())
	tasks.GET("", t.List)
	tasks.GET("/:id", t.Get)
	tasks.POST("", t.Create, middleware.RequireAuthority(model.AuthorityAdmin))
	tasks.PATCH("/:id", t.ChangeStatus, middleware.RequireAuthority(model.AuthorityAdmin))
	tasks.PATCH("/:id/take", t.Take, middleware.RequireAuthority(model.AuthorityUser))
	tasks.DELETE("/:id", t.Delete, middleware.RequireAuthority(model.AuthorityAdmin))
}
