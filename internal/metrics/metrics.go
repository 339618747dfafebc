// Package metrics provides Prometheus instrumentation for the FieldServe platform.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldserve",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fieldserve",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TenantResolutionsTotal counts tenant resolutions by outcome:
	// header, domain, subdomain, or miss.
	TenantResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldserve",
			Name:      "tenant_resolutions_total",
			Help:      "Tenant resolutions by outcome (header, domain, subdomain, miss).",
		},
		[]string{"outcome"},
	)

	// SchemaBindsTotal counts schema bind lifecycle events:
	// bound, released, restore_failed.
	SchemaBindsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldserve",
			Name:      "schema_binds_total",
			Help:      "Schema binding lifecycle events (bound, released, restore_failed).",
		},
		[]string{"event"},
	)

	// AdmissionDecisionsTotal counts seat-gate decisions:
	// allowed, inactive_subscription, seat_limit.
	AdmissionDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldserve",
			Name:      "admission_decisions_total",
			Help:      "Seat-gate decisions on user-creating requests.",
		},
		[]string{"decision"},
	)

	// SeatCountDuration observes the latency of per-tenant seat counting,
	// including the nested schema bind and restore.
	SeatCountDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fieldserve",
		Name:      "seat_count_duration_seconds",
		Help:      "Duration of tenant seat-count queries in seconds.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// SubscriptionUpdatesTotal counts subscription changes by billing frequency.
	SubscriptionUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldserve",
			Name:      "subscription_updates_total",
			Help:      "Subscription plan changes by billing frequency.",
		},
		[]string{"frequency"},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldserve", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldserve", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldserve", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldserve", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldserve", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TenantResolutionsTotal,
		SchemaBindsTotal,
		AdmissionDecisionsTotal,
		SeatCountDuration,
		SubscriptionUpdatesTotal,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		GoroutineCount,
	)
}

// Middleware instruments requests with count and duration metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// FullPath gives the route pattern (e.g. /v1/users/:id), keeping
		// label cardinality bounded. Unmatched routes group under "unmatched".
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, statusBucket(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the /metrics endpoint handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups status codes into classes (2xx, 4xx, ...) to keep
// label cardinality low.
func statusBucket(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// StartDBStatsCollector periodically samples sql.DBStats and the goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}
