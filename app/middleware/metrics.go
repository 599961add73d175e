// Package middleware provides HTTP middleware for the API server
package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	commissionsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_commissions_generated_total",
			Help: "Total number of commissions generated from finalized sales",
		},
	)

	divisionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_divisions_created_total",
			Help: "Total number of payment divisions created",
		},
	)

	paymentsTransitioned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_payments_transitioned_total",
			Help: "Total number of ledger records transitioned to paid, cascades included",
		},
	)

	verificationsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_verifications_recorded_total",
			Help: "Total number of verification events ingested, by result",
		},
		[]string{"result"},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics.
// Labels are kept low-cardinality by using the matched route path when available.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		method := c.Method()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path // Use route template to avoid high cardinality
		}

		labels := prometheus.Labels{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// ObserveCommissionGenerated counts one generated commission
func ObserveCommissionGenerated() {
	commissionsGenerated.Inc()
}

// ObserveDivisionCreated counts one created division
func ObserveDivisionCreated() {
	divisionsCreated.Inc()
}

// ObservePaymentsTransitioned counts records transitioned to paid in a bulk
// pay call, cascades included
func ObservePaymentsTransitioned(count int) {
	if count > 0 {
		paymentsTransitioned.Add(float64(count))
	}
}

// ObserveVerificationRecorded counts one ingested verification event
func ObserveVerificationRecorded(result string) {
	verificationsRecorded.WithLabelValues(result).Inc()
}
