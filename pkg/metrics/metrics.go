package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all scheduler and dispatch metrics
type Metrics struct {
	TransitionsApplied *prometheus.CounterVec
	TransitionsFailed  prometheus.Counter
	TickDuration       prometheus.Histogram

	NotificationsCreated    prometheus.Counter
	NotificationsDeduped    prometheus.Counter
	RealtimePublishFailures prometheus.Counter

	DueDateRemindersSent prometheus.Counter
	TasksCreated         prometheus.Counter
}

// NewMetrics creates and registers all metrics on the default registry
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TransitionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_applied_total",
			Help:      "Total number of delivery status transitions applied",
		}, []string{"to_status"}),
		TransitionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_failed_total",
			Help:      "Total number of transition attempts that failed",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lifecycle_tick_duration_seconds",
			Help:      "Time spent processing one lifecycle tick",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		NotificationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Total number of notifications persisted",
		}),
		NotificationsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_deduped_total",
			Help:      "Total number of notifications skipped by the dedup window",
		}),
		RealtimePublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_publish_failures_total",
			Help:      "Total number of failed realtime pushes",
		}),
		DueDateRemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "due_date_reminders_sent_total",
			Help:      "Total number of due-date reminder notifications sent",
		}),
		TasksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "follow_up_tasks_created_total",
			Help:      "Total number of follow-up tasks created",
		}),
	}
}

// New creates unregistered metrics, useful in tests
func New(namespace string) *Metrics {
	return &Metrics{
		TransitionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_applied_total",
			Help:      "Total number of delivery status transitions applied",
		}, []string{"to_status"}),
		TransitionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_failed_total",
			Help:      "Total number of transition attempts that failed",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lifecycle_tick_duration_seconds",
			Help:      "Time spent processing one lifecycle tick",
		}),
		NotificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Total number of notifications persisted",
		}),
		NotificationsDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_deduped_total",
			Help:      "Total number of notifications skipped by the dedup window",
		}),
		RealtimePublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_publish_failures_total",
			Help:      "Total number of failed realtime pushes",
		}),
		DueDateRemindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "due_date_reminders_sent_total",
			Help:      "Total number of due-date reminder notifications sent",
		}),
		TasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "follow_up_tasks_created_total",
			Help:      "Total number of follow-up tasks created",
		}),
	}
}
