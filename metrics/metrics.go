package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "calories",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calories",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calories",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	entriesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calories",
			Subsystem: "entries",
			Name:      "created_total",
			Help:      "Total number of food entries created.",
		},
	)

	caloriesLogged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calories",
			Subsystem: "entries",
			Name:      "calories_logged_total",
			Help:      "Sum of calories across created food entries.",
		},
	)

	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calories",
			Subsystem: "api",
			Name:      "validation_failures_total",
			Help:      "Requests rejected by input validation.",
		},
		[]string{"operation"},
	)

	storageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calories",
			Subsystem: "api",
			Name:      "storage_failures_total",
			Help:      "Operations that failed in the persistence layer.",
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		entriesCreated,
		caloriesLogged,
		validationFailures,
		storageFailures,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight gauge per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordEntryCreated counts a new food entry and its calories.
func RecordEntryCreated(calories int) {
	entriesCreated.Inc()
	caloriesLogged.Add(float64(calories))
}

// RecordValidationFailure counts a rejected request for operation.
func RecordValidationFailure(operation string) {
	validationFailures.WithLabelValues(operation).Inc()
}

// RecordStorageFailure counts a persistence failure for operation.
func RecordStorageFailure(operation string) {
	storageFailures.WithLabelValues(operation).Inc()
}
