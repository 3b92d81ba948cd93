package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "staybook"

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry              *prometheus.Registry
	messages              *prometheus.HistogramVec
	httpRequests          *prometheus.HistogramVec
	reservationsConfirmed *prometheus.CounterVec
	overbookingPrevented  prometheus.Counter
	transitions           *prometheus.CounterVec
	sideEffectFailures    *prometheus.CounterVec
	pointsAwarded         prometheus.Counter
	outboxPublished       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_message_duration_seconds",
			Help:      "Command and query handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "key", "outcome"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP requests by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		reservationsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_confirmed_total",
			Help:      "Reservations created from payment captures.",
		}, []string{"category"}),
		overbookingPrevented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overbooking_prevented_total",
			Help:      "Captures rejected because the dates were taken.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_transitions_total",
			Help:      "Reservation status changes by target status.",
		}, []string{"to"}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Best-effort side effects that failed.",
		}, []string{"kind"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_points_awarded_total",
			Help:      "Reward points credited to hosts.",
		}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_records_total",
			Help:      "Outbox records by delivery outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages,
		m.httpRequests,
		m.reservationsConfirmed,
		m.overbookingPrevented,
		m.transitions,
		m.sideEffectFailures,
		m.pointsAwarded,
		m.outboxPublished,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveMessage(kind, key string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.messages.WithLabelValues(kind, key, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ReservationConfirmed(category string) {
	if m == nil {
		return
	}
	m.reservationsConfirmed.WithLabelValues(category).Inc()
}

func (m *Metrics) OverbookingPrevented() {
	if m == nil {
		return
	}
	m.overbookingPrevented.Inc()
}

func (m *Metrics) StatusChanged(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) SideEffectFailed(kind string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) PointsAwarded(points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAwarded.Add(float64(points))
}

// OutboxRecord counts outbox deliveries by outcome: published, retry or dead.
func (m *Metrics) OutboxRecord(outcome string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(outcome).Inc()
}
