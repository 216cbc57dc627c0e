package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ratehub/rating-notifications/internal/broker"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	RatingsCreated      prometheus.Counter
	PublishFailures     prometheus.Counter
	DeliveriesAcked     prometheus.Counter
	DeliveriesRequeued  prometheus.Counter
	DeliveriesDiscarded prometheus.Counter
	NotificationsPolled prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RatingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratings_created_total",
			Help: "Total number of ratings persisted.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_publish_failures_total",
			Help: "Total number of swallowed broker publish failures.",
		}),
		DeliveriesAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broker_deliveries_acked_total",
			Help: "Deliveries stored and acknowledged.",
		}),
		DeliveriesRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broker_deliveries_requeued_total",
			Help: "Deliveries rejected with requeue after a transient store failure.",
		}),
		DeliveriesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broker_deliveries_discarded_total",
			Help: "Poison deliveries rejected without requeue.",
		}),
		NotificationsPolled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_polled_total",
			Help: "Notifications handed out (and removed) by the poll API.",
		}),
	}

	reg.MustRegister(
		m.RatingsCreated,
		m.PublishFailures,
		m.DeliveriesAcked,
		m.DeliveriesRequeued,
		m.DeliveriesDiscarded,
		m.NotificationsPolled,
	)

	return m
}

// ConsumerHooks returns the callbacks expected by broker.Hooks.
// Centralises the prometheus observation calls so the consumer stays
// metrics-agnostic.
func (m *Metrics) ConsumerHooks() broker.Hooks {
	return broker.Hooks{
		OnAcked:     m.DeliveriesAcked.Inc,
		OnRequeued:  m.DeliveriesRequeued.Inc,
		OnDiscarded: m.DeliveriesDiscarded.Inc,
	}
}
