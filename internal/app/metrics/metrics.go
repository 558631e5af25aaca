// Package metrics exposes the platform's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "campuslink",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuslink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campuslink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	registrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campuslink",
			Subsystem: "users",
			Name:      "registrations_total",
			Help:      "Total number of registered accounts.",
		},
	)

	listingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuslink",
			Subsystem: "listings",
			Name:      "events_total",
			Help:      "Listing lifecycle events by type.",
		},
		[]string{"event"},
	)

	messagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campuslink",
			Subsystem: "messaging",
			Name:      "messages_total",
			Help:      "Total number of direct messages sent.",
		},
	)

	forumPosts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campuslink",
			Subsystem: "forums",
			Name:      "posts_total",
			Help:      "Total number of forum posts created.",
		},
	)

	pointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuslink",
			Subsystem: "points",
			Name:      "awarded_total",
			Help:      "Points awarded, labelled by reason.",
		},
		[]string{"reason"},
	)

	paymentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuslink",
			Subsystem: "payments",
			Name:      "processed_total",
			Help:      "Payments by final status.",
		},
		[]string{"status"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuslink",
			Subsystem: "notifications",
			Name:      "dispatched_total",
			Help:      "Notification dispatch attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		registrations,
		listingEvents,
		messagesSent,
		forumPosts,
		pointsAwarded,
		paymentsProcessed,
		notificationsSent,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordRegistration counts a completed signup.
func RecordRegistration() { registrations.Inc() }

// RecordListingEvent counts a listing lifecycle event (created, closed,
// expired, application).
func RecordListingEvent(event string) { listingEvents.WithLabelValues(event).Inc() }

// RecordMessage counts a sent direct message.
func RecordMessage() { messagesSent.Inc() }

// RecordForumPost counts a created forum post.
func RecordForumPost() { forumPosts.Inc() }

// RecordPoints counts awarded points by reason.
func RecordPoints(reason string, amount int) {
	if amount <= 0 {
		return
	}
	pointsAwarded.WithLabelValues(reason).Add(float64(amount))
}

// RecordPayment counts a payment reaching a final status.
func RecordPayment(status string) { paymentsProcessed.WithLabelValues(status).Inc() }

// RecordNotification counts a dispatch attempt outcome.
func RecordNotification(outcome string) { notificationsSent.WithLabelValues(outcome).Inc() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource IDs so metric labels stay low-cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	// /api/v1/<resource>/<id>/... -> /api/v1/<resource>/:id
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "v1" {
		if len(parts) == 3 {
			return "/api/v1/" + parts[2]
		}
		return "/api/v1/" + parts[2] + "/:id"
	}
	return "/" + parts[0]
}
