package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/api/handler"
	apimw "github.com/ratehub/rating-notifications/internal/api/middleware"
	"github.com/ratehub/rating-notifications/internal/metrics"
	"github.com/ratehub/rating-notifications/internal/ratelimiter"
	"github.com/ratehub/rating-notifications/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	ratings *service.RatingService,
	notifications *service.NotificationService,
	limiter *ratelimiter.SubjectLimiters,
	m *metrics.Metrics,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RealIP)               // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)        // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	rh := handler.NewRatingHandler(ratings, logger, m.RatingsCreated.Inc)
	nh := handler.NewNotificationHandler(notifications, limiter, logger, func(count int) {
		m.NotificationsPolled.Add(float64(count))
	})
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Producer side — note: /average must be registered before /{id}
		// so chi does not treat the literal string "average" as an ID.
		r.Post("/ratings", rh.Create)
		r.Get("/ratings/average", rh.Average)
		r.Get("/ratings/{id}", rh.GetByID)

		// Poller side — /count must be registered alongside the bare
		// collection route; both take subjectId as a query parameter.
		r.Get("/notifications", nh.Poll)
		r.Get("/notifications/count", nh.Count)
	})

	// At-least-once HTTP ingress, for deployments without the broker.
	// Not part of the public API surface.
	r.Post("/internal/notifications", nh.Ingest)

	return r
}
