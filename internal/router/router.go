// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-booking/internal/handler"
	"github.com/iliyamo/flight-booking/internal/middleware"
)

// RegisterRoutes registers the unauthenticated liveness endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Root)
	e.GET("/api/health", handler.Health)
}

// RegisterAuth registers /api/auth.  Register and login are public; /me
// requires a valid access token.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterFlights registers the public search, status and offer endpoints.
// Each call reaches the upstream API on a cache miss, so they carry mws
// (the rate limiter).
func RegisterFlights(api *echo.Group, f *handler.FlightHandler, mws ...echo.MiddlewareFunc) {
	api.GET("/flights/search", f.Search, mws...)
	api.GET("/flights/status", f.Status, mws...)
	api.GET("/amadeus/offers", f.Offers, mws...)
}

// RegisterBookings registers /api/bookings behind JWT authentication.  The
// extra middlewares run after authentication so they can key on the user.
func RegisterBookings(api *echo.Group, b *handler.BookingHandler, jwtSecret string, mws ...echo.MiddlewareFunc) {
	g := api.Group("/bookings", middleware.JWTAuth(jwtSecret))
	g.Use(mws...)
	g.POST("", b.Create)
	g.GET("/me", b.Mine)
	g.GET("/:id", b.Get)
	g.PATCH("/:id/cancel", b.Cancel)
}
