/*
Package metrics provides Prometheus metrics collection and exposition for hostbroker.

The metrics package defines and registers every hostbroker metric using the
Prometheus client library: request and machine population gauges, boundary
operation counters and latencies, provider handler call counters and
latencies, reconciliation cycle counters and latency, and storage operation
latency. Metrics are exposed via an HTTP endpoint for scraping by Prometheus
servers.

# Metrics Catalog

Aggregate State:

hostbroker_requests_total{type, status}:
  - Type: Gauge
  - Description: Current number of Requests by type (Acquire/Return) and status
  - Example: hostbroker_requests_total{type="Acquire",status="Running"} 4

hostbroker_machines_total{status}:
  - Type: Gauge
  - Description: Current number of Machines by status
  - Example: hostbroker_machines_total{status="Running"} 37

Boundary Operations:

hostbroker_boundary_operations_total{operation, status}:
  - Type: Counter
  - Description: Total boundary calls by operation name and outcome
  - Example: hostbroker_boundary_operations_total{operation="requestMachines",status="ok"} 12

hostbroker_boundary_operation_duration_seconds{operation}:
  - Type: Histogram
  - Description: Boundary call duration in seconds by operation name

hostbroker_rate_limited_requests_total:
  - Type: Counter
  - Description: Total boundary calls rejected by the rate limiter

Request Lifecycle:

hostbroker_create_acquire_duration_seconds:
  - Type: Histogram
  - Description: Time for Create-Acquire to reach Running or Failed

hostbroker_create_return_duration_seconds:
  - Type: Histogram
  - Description: Time for Create-Return to complete

hostbroker_requests_failed_total{reason}:
  - Type: Counter
  - Description: Total requests that reached Failed or CompleteWithError, by reason

hostbroker_quota_rejections_total:
  - Type: Counter
  - Description: Total Create-Acquire calls rejected by the quota pre-check

Provider Handler Calls:

hostbroker_provider_call_duration_seconds{strategy, operation}:
  - Type: Histogram
  - Description: Provider handler call duration by strategy and operation

hostbroker_provider_calls_failed_total{strategy, operation}:
  - Type: Counter
  - Description: Provider handler calls that failed after exhausting retries

hostbroker_provider_calls_retried_total{strategy, operation}:
  - Type: Counter
  - Description: Provider handler call attempts that were retried

Machine Reconciler:

hostbroker_reconciliation_duration_seconds:
  - Type: Histogram
  - Description: Reconciliation cycle duration

hostbroker_reconciliation_cycles_total:
  - Type: Counter
  - Description: Total reconciliation cycles completed

hostbroker_health_checks_total{check_type, healthy}:
  - Type: Counter
  - Description: Machine health checks run, by check type and outcome

Storage:

hostbroker_storage_operation_duration_seconds{collection, operation}:
  - Type: Histogram
  - Description: Storage strategy operation duration by collection and operation

# Usage

	import "github.com/cuemby/hostbroker/pkg/metrics"

	metrics.RequestsTotal.WithLabelValues("Acquire", "Running").Set(4)
	metrics.QuotaRejectionsTotal.Inc()

	timer := metrics.NewTimer()
	// ... run Create-Acquire ...
	timer.ObserveDuration(metrics.CreateAcquireDuration)

	timer = metrics.NewTimer()
	// ... call a provider handler ...
	timer.ObserveDurationVec(metrics.ProviderCallDuration, "DirectLaunch", "AcquireHosts")

	http.Handle("/metrics", metrics.Handler())

# Collector

Collector polls storage on an interval and snapshots request/machine counts
into the gauge metrics, mirroring how the rest of the metrics are updated
inline at the call site rather than recomputed on scrape.

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
