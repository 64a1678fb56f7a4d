// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"authcore/config"
	"authcore/internal/delivery/api/middleware"
	"authcore/internal/delivery/api/router/handler"
	"authcore/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	Gatherer       prometheus.Gatherer `optional:"true"`
	Config         *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	authMiddleware *middleware.AuthMiddleware
	gatherer       prometheus.Gatherer
	config         *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		authMiddleware: params.AuthMiddleware,
		gatherer:       params.Gatherer,
		config:         params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	if r.config.Metrics != nil && r.config.Metrics.Enabled && r.gatherer != nil {
		e.GET(r.config.Metrics.Path, echo.WrapHandler(metrics.Handler(r.gatherer)))
	}

	// Auth routes, throttled per client IP
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.NewRateLimiter(r.config.HTTP.RateLimit))
	{
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout)
	}

	// Session routes that require a valid access token
	authenticated := r.authMiddleware.Authenticate
	{
		authGroup.POST("/logout-all", r.authHandler.LogoutAll, authenticated)
		authGroup.GET("/sessions", r.authHandler.ListSessions, authenticated)
		authGroup.GET("/me", r.authHandler.Me, authenticated)
	}
}
