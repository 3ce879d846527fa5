// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storyverse"

var (
	// HTTPRequestsTotal counts API requests by route template and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// EntitlementGrantsTotal counts grant attempts. Outcome is one of
	// granted, already_owned or rejected.
	EntitlementGrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "entitlement",
		Name:      "grants_total",
		Help:      "Entitlement grant attempts by path and outcome.",
	}, []string{"path", "outcome"})

	MembershipActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "entitlement",
		Name:      "membership_activations_total",
		Help:      "Membership activation attempts by plan and outcome.",
	}, []string{"plan", "outcome"})

	// VerificationFailuresTotal counts rejected receipts by operation.
	VerificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "verification_failures_total",
		Help:      "Payment receipts that failed verification.",
	}, []string{"operation"})

	PaymentAuthorityRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "authority_requests_total",
		Help:      "Order creation calls to the payment authority by outcome.",
	}, []string{"outcome"})

	PaymentAuthorityDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "authority_request_duration_seconds",
		Help:      "Payment authority order creation latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)
