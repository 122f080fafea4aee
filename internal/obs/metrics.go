// Copyright 2025 James Ross
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the service exports. A single
// instance is constructed at startup and threaded through admission
// and the dispatcher.
type Metrics struct {
	JobsSubmitted          prometheus.Counter
	JobsAdmissionRejected  *prometheus.CounterVec // label: reason
	JobsDispatched         prometheus.Counter
	JobsDispatchRejected   *prometheus.CounterVec // label: reason
	JobsFinished           prometheus.Counter
	JobsFailed             prometheus.Counter
	ExecutionDuration      prometheus.Histogram
	GPUSlotsInUse          *prometheus.GaugeVec // label: scope (global|tenant)
	TenantRateLimitRejects prometheus.Counter
	QueueDepth             prometheus.Gauge
	SandboxFuelConsumed    prometheus.Counter
}

// NewMetrics registers every collector against the default registry,
// mirroring the reference module's obs.NewMetrics.
func NewMetrics() *Metrics {
	return &Metrics{
		JobsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobs_submitted_total",
			Help: "Jobs accepted by the admission controller.",
		}),
		JobsAdmissionRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_admission_rejected_total",
			Help: "Jobs rejected during admission, by reason.",
		}, []string{"reason"}),
		JobsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobs_dispatched_total",
			Help: "Jobs that passed dispatch re-validation and GPU reservation and were started.",
		}),
		JobsDispatchRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_dispatch_rejected_total",
			Help: "Jobs that failed re-validation at dispatch time, by reason.",
		}, []string{"reason"}),
		JobsFinished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobs_finished_total",
			Help: "Jobs that completed successfully.",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Jobs that completed with a failure.",
		}),
		ExecutionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "job_execution_duration_seconds",
			Help:    "Wall-clock time spent inside the sandbox per job.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		GPUSlotsInUse: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gpu_slots_in_use",
			Help: "GPU slots currently reserved, by scope.",
		}, []string{"scope"}),
		TenantRateLimitRejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tenant_rate_limit_rejections_total",
			Help: "Jobs rejected for exceeding a tenant's sliding-window rate limit.",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current depth of the admission-to-dispatch hand-off queue.",
		}),
		SandboxFuelConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_fuel_consumed_total",
			Help: "Cumulative wasmtime fuel consumed across all executions.",
		}),
	}
}
