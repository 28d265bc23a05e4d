// Package metrics holds the prometheus collectors for the onboarding
// pipeline and the job queue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "onboarding"

type Metrics struct {
	registry *prometheus.Registry

	JobsEnqueued   *prometheus.CounterVec
	JobsCompleted  *prometheus.CounterVec
	JobsRetried    *prometheus.CounterVec
	JobsFailed     *prometheus.CounterVec
	JobsDropped    *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	StoreFallbacks *prometheus.CounterVec

	TenantsCreated     *prometheus.CounterVec
	BackgroundFailures *prometheus.CounterVec
	Events             *prometheus.CounterVec
	RateLimited        prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "enqueued_total",
			Help:      "Jobs accepted by the queue.",
		}, []string{"type"}),
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Jobs that finished successfully.",
		}, []string{"type"}),
		JobsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "retried_total",
			Help:      "Failed attempts that were rescheduled.",
		}, []string{"type"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "failed_total",
			Help:      "Jobs that exhausted their attempts.",
		}, []string{"type"}),
		JobsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "dropped_total",
			Help:      "Jobs dropped because no handler is registered for their type.",
		}, []string{"type"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Handler execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		StoreFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobqueue",
			Name:      "store_fallback_total",
			Help:      "Queue store operations served by the in-memory fallback.",
		}, []string{"op"}),
		TenantsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenants_created_total",
			Help:      "Tenants created.",
		}, []string{"plan"}),
		BackgroundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_task_failures_total",
			Help:      "Detached post-creation tasks that failed.",
		}, []string{"task"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Analytics events tracked.",
		}, []string{"event"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Signup requests rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		m.JobsEnqueued, m.JobsCompleted, m.JobsRetried, m.JobsFailed, m.JobsDropped,
		m.JobDuration, m.StoreFallbacks, m.TenantsCreated, m.BackgroundFailures,
		m.Events, m.RateLimited,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
