package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/glowbook/booking-service/internal/booking"
)

type RouterConfig struct {
	Service   *booking.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	JWTSecret string
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(NewRateLimiter(20, 40).Middleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Booking endpoints, all behind auth
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/bookings", createBookingHandler(cfg.Service))
		r.Get("/bookings", listBookingsHandler(cfg.Service))
		r.Get("/bookings/{id}", getBookingHandler(cfg.Service))
		r.Post("/bookings/{id}/approve", approveBookingHandler(cfg.Service))
		r.Post("/bookings/{id}/decline", declineBookingHandler(cfg.Service))
		r.Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Service))
		r.Post("/bookings/{id}/complete", completeBookingHandler(cfg.Service))
		r.Post("/bookings/{id}/no-show", noShowBookingHandler(cfg.Service))
		r.Post("/bookings/{id}/review", reviewBookingHandler(cfg.Service))
	})

	return r
}
