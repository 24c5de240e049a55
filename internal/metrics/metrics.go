package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathernotify_provider_calls_total",
			Help: "Total weather provider API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weathernotify_provider_latency_seconds",
			Help:    "Weather provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	JobOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathernotify_job_outcomes_total",
			Help: "Weather notification job executions by outcome",
		},
		[]string{"outcome", "test"},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathernotify_notifications_delivered_total",
			Help: "Notifications handed to the platform",
		},
		[]string{"kind"},
	)

	NotificationsDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weathernotify_notifications_denied_total",
			Help: "Notifications suppressed because the platform lacked permission",
		},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathernotify_registrations_total",
			Help: "Trigger registrations by name and policy",
		},
		[]string{"name", "policy"},
	)

	RetriesScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathernotify_retries_scheduled_total",
			Help: "Backoff re-runs scheduled after a retry outcome or an unmet constraint",
		},
		[]string{"name", "reason"},
	)

	WorkerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weathernotify_worker_pool_queue_depth",
		Help: "Current number of jobs waiting in queue",
	})

	WorkerActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weathernotify_worker_pool_active_workers",
		Help: "Current number of workers processing jobs",
	})

	WorkerDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weathernotify_worker_pool_dropped_jobs_total",
		Help: "Total number of jobs dropped due to full queue",
	})

	WorkerJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weathernotify_worker_pool_job_duration_seconds",
		Help:    "Time taken to execute pool jobs",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})
)
