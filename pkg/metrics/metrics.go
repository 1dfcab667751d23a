package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scheduling metrics
	BookingsTotal      *prometheus.CounterVec
	CancellationsTotal *prometheus.CounterVec
	SchedulingLatency  *prometheus.HistogramVec

	// Queue metrics
	MailJobsEnqueued prometheus.Counter
	MailJobsFailed   prometheus.Counter
	MailJobsSent     prometheus.Counter
	MailSendLatency  prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all application metrics on the default
// registry.
func New(namespace string) *Metrics {
	return NewWith(prometheus.DefaultRegisterer, namespace)
}

// NewWith registers the metrics on reg; tests pass a fresh registry.
func NewWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Total number of booking attempts by outcome",
		}, []string{"outcome"}),
		CancellationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Total number of cancellation attempts by outcome",
		}, []string{"outcome"}),
		SchedulingLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduling_operation_duration_seconds",
			Help:      "Duration of scheduling engine operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		MailJobsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_jobs_enqueued_total",
			Help:      "Total number of cancellation mail jobs enqueued",
		}),
		MailJobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_jobs_failed_total",
			Help:      "Total number of mail jobs that failed a delivery attempt",
		}),
		MailJobsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_jobs_sent_total",
			Help:      "Total number of cancellation emails delivered",
		}),
		MailSendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mail_send_duration_seconds",
			Help:      "Time spent delivering a cancellation email",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
