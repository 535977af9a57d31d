package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tixmill/event-booking/internal/observability"
	"github.com/tixmill/event-booking/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)
	r.Use(AuthMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyKeyMiddleware)

	r.Post("/v1/users", h.CreateUser)
	r.Post("/v1/events", h.CreateEvent)
	r.Get("/v1/events", h.ListMyEvents)
	r.Post("/v1/events/{id}/bookings", h.SubmitBooking)
	r.Post("/v1/events/{id}/bookings/cancel", h.SubmitCancellation)
	r.Get("/v1/events/{id}/status", h.GetEventStatus)
	r.Get("/v1/notifications", h.ListNotifications)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
