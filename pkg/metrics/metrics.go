package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Aggregate state metrics
	RequestsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostbroker_requests_total",
			Help: "Total number of requests by type and status",
		},
		[]string{"type", "status"},
	)

	MachinesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostbroker_machines_total",
			Help: "Total number of machines by status",
		},
		[]string{"status"},
	)

	// Boundary operation metrics (spec.md §4.7)
	BoundaryOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostbroker_boundary_operations_total",
			Help: "Total number of boundary operations by name and outcome",
		},
		[]string{"operation", "status"},
	)

	BoundaryOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostbroker_boundary_operation_duration_seconds",
			Help:    "Boundary operation duration in seconds by name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RateLimitedRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostbroker_rate_limited_requests_total",
			Help: "Total number of boundary requests rejected by the rate limiter",
		},
	)

	// Request lifecycle metrics (pkg/lifecycle)
	CreateAcquireDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hostbroker_create_acquire_duration_seconds",
			Help:    "Time taken to run the Create-Acquire operation through to Running or Failed",
			Buckets: prometheus.DefBuckets,
		},
	)

	CreateReturnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hostbroker_create_return_duration_seconds",
			Help:    "Time taken to run the Create-Return operation",
			Buckets: prometheus.DefBuckets,
		},
	)

	RequestsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostbroker_requests_failed_total",
			Help: "Total number of requests that reached Failed or CompleteWithError",
		},
		[]string{"reason"},
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostbroker_quota_rejections_total",
			Help: "Total number of Create-Acquire calls rejected by the quota pre-check",
		},
	)

	// Provider handler call metrics (pkg/provider)
	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostbroker_provider_call_duration_seconds",
			Help:    "Provider handler call duration in seconds by strategy and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy", "operation"},
	)

	ProviderCallsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostbroker_provider_calls_failed_total",
			Help: "Total number of provider handler calls that failed after exhausting retries",
		},
		[]string{"strategy", "operation"},
	)

	ProviderCallsRetriedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostbroker_provider_calls_retried_total",
			Help: "Total number of provider handler call attempts that were retried",
		},
		[]string{"strategy", "operation"},
	)

	// Machine Reconciler metrics (pkg/reconcile)
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hostbroker_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostbroker_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)

	HealthChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostbroker_health_checks_total",
			Help: "Total number of Machine health checks run by check type and outcome",
		},
		[]string{"check_type", "healthy"},
	)

	// Storage metrics (pkg/storage)
	StorageOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostbroker_storage_operation_duration_seconds",
			Help:    "Storage strategy operation duration in seconds by collection and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(MachinesTotal)
	prometheus.MustRegister(BoundaryOperationsTotal)
	prometheus.MustRegister(BoundaryOperationDuration)
	prometheus.MustRegister(RateLimitedRequestsTotal)
	prometheus.MustRegister(CreateAcquireDuration)
	prometheus.MustRegister(CreateReturnDuration)
	prometheus.MustRegister(RequestsFailedTotal)
	prometheus.MustRegister(QuotaRejectionsTotal)
	prometheus.MustRegister(ProviderCallDuration)
	prometheus.MustRegister(ProviderCallsFailedTotal)
	prometheus.MustRegister(ProviderCallsRetriedTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(HealthChecksTotal)
	prometheus.MustRegister(StorageOperationDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
