// Package router registers the HTTP routes: the public webhook surface
// and the protected admin API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/magokoro/onigiri-reservation/internal/config"
	"github.com/magokoro/onigiri-reservation/internal/handler"
	"github.com/magokoro/onigiri-reservation/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterWebhook registers the messaging-platform callback endpoints.
// The GET probe answers platform verification; the POST endpoint is
// rate limited since it is the public, unauthenticated write path.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(rlCfg, rdb)
	e.GET("/webhook", w.Probe)
	e.POST("/webhook", w.Receive, limiter)
}

// RegisterAuth registers the staff login endpoint and the token probe.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	e.POST("/v1/auth/login", a.Login)

	me := e.Group("/v1")
	me.Use(middleware.JWTAuth(jwtSecret))
	me.Use(middleware.RequireRole("ADMIN"))
	me.GET("/me", a.Me)
}
