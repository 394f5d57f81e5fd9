package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propertylease_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propertylease_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propertylease_payments_total",
		Help: "Count of payment submissions by final status",
	}, []string{"status"})

	chargeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propertylease_charge_duration_seconds",
		Help:    "Duration of gateway charge attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	refundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propertylease_refunds_total",
		Help: "Count of refund operations by result",
	}, []string{"result"})

	onboardingTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propertylease_onboarding_total",
		Help: "Count of room-code onboarding attempts by result",
	}, []string{"result"})

	roomCodeRegenerations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propertylease_room_code_regenerations_total",
		Help: "Count of room code regenerations",
	})

	reconcileOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propertylease_reconcile_operations_total",
		Help: "Count of pending-payment reconcile sweeps by source and result",
	}, []string{"source", "result"})

	lateFeesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propertylease_late_fees_applied_total",
		Help: "Count of late fees applied to overdue rent",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObservePayment records the terminal status of a payment submission.
func ObservePayment(status string) {
	paymentsTotal.WithLabelValues(status).Inc()
}

// ObserveCharge records the duration of a gateway charge attempt with a result label.
func ObserveCharge(result string, duration time.Duration) {
	chargeDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveRefund increments the refund counter for the given result.
func ObserveRefund(result string) {
	refundsTotal.WithLabelValues(result).Inc()
}

// ObserveOnboarding increments the onboarding counter for the given result.
func ObserveOnboarding(result string) {
	onboardingTotal.WithLabelValues(result).Inc()
}

// ObserveRoomCodeRegeneration increments the room code regeneration counter.
func ObserveRoomCodeRegeneration() {
	roomCodeRegenerations.Inc()
}

// ObserveReconcile increments the reconcile counter for the given source and result.
func ObserveReconcile(source, result string) {
	reconcileOperations.WithLabelValues(source, result).Inc()
}

// ObserveLateFee increments the late fee counter.
func ObserveLateFee() {
	lateFeesApplied.Inc()
}
