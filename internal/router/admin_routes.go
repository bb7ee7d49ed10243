package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/magokoro/onigiri-reservation/internal/config"
	"github.com/magokoro/onigiri-reservation/internal/handler"
	"github.com/magokoro/onigiri-reservation/internal/middleware"
)

// RegisterAdmin registers the staff REST API under /v1/admin. Every
// route requires a valid ADMIN token; read endpoints additionally sit
// behind the Redis response cache.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	cache := middleware.NewRedisCache(cacheCfg, rdb)

	// Reservations.
	g.GET("/reservations", h.ListReservations, cache)
	g.POST("/reservations", h.CreateReservation)
	g.GET("/reservations/stats/summary", h.StatsSummary, cache)
	g.GET("/reservations/stats/menu", h.StatsMenu, cache)
	g.GET("/reservations/stats/time", h.StatsTime, cache)
	g.GET("/reservations/:id", h.GetReservation)
	g.PUT("/reservations/:id", h.UpdateReservation)
	g.PUT("/reservations/:id/cancel", h.CancelReservation)
	g.DELETE("/reservations/:id", h.DeleteReservation)

	// Menu.
	g.GET("/menu", h.ListMenu, cache)
	g.POST("/menu", h.CreateMenuItem)
	g.PUT("/menu/:id", h.UpdateMenuItem)
	g.DELETE("/menu/:id", h.DeleteMenuItem)

	// Business calendar.
	g.GET("/calendar", h.ListCalendar, cache)
	g.PUT("/calendar/:date", h.SetCalendarDay)
	g.DELETE("/calendar/:date", h.DeleteCalendarDay)
}
