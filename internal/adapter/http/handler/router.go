package handler

import (
	"court-reservation-engine/internal/adapter/http/middleware"
	"court-reservation-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Reservations   ports.ReservationService
	Bookings       ports.BookingService
	Recurrence     ports.RecurrenceService
	Cancellation   ports.CancellationService
	Queries        ports.QueryService
	TokenVerifier  ports.TokenVerifier
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rules := deps.RateLimitRules
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1", middleware.MemberAuth(deps.TokenVerifier, deps.Logger))

	holdHandler := NewHoldHandler(deps.Reservations)
	holds := v1.Group("/holds", rl("holds"))
	{
		holds.POST("", holdHandler.Reserve)
		holds.POST("/release", holdHandler.Release)
		holds.GET("", holdHandler.Inspect)
	}

	bookingHandler := NewBookingHandler(deps.Bookings, deps.Recurrence, deps.Cancellation, deps.Queries)
	bookings := v1.Group("/bookings", rl("bookings"))
	{
		bookings.POST("", bookingHandler.Create)
		bookings.POST("/pending", bookingHandler.CreatePending)
		bookings.POST("/recurring", bookingHandler.CreateRecurring)
		bookings.POST("/:id/confirm", bookingHandler.Confirm)
		bookings.POST("/:id/cancel", bookingHandler.Cancel)
		bookings.GET("/me", rl("queries"), bookingHandler.ListMine)
	}

	resourceHandler := NewResourceHandler(deps.Queries)
	resources := v1.Group("/resources", rl("queries"))
	{
		resources.GET("/:id/availability", resourceHandler.Availability)
		resources.GET("/:id/calendar", resourceHandler.Calendar)
	}

	walletHandler := NewWalletHandler(deps.Queries)
	v1.GET("/wallet", rl("queries"), walletHandler.Get)
	v1.GET("/wallet/transactions", rl("queries"), walletHandler.Transactions)

	return r
}
