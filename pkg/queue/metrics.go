package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "nimbu_queue"

// Metrics holds the Prometheus collectors updated by a TaskQueue.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enqueued        *prometheus.CounterVec
	delivered       prometheus.Counter
	dequeued        prometheus.Counter
	retries         prometheus.Counter
	completed       prometheus.Counter
	failedPermanent prometheus.Counter
	dropped         prometheus.Counter
	abandoned       prometheus.Counter
	readyLength     prometheus.Gauge
	delayedLength   prometheus.Gauge
}

// NewMetrics creates the queue collectors and registers them with reg.
// A nil registerer creates unregistered collectors.
// Panics if a collector with the same name is already registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		enqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "enqueued_total",
			Help:      "Total number of tasks accepted by the queue",
		}, []string{"path"}),
		delivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "delayed_delivered_total",
			Help:      "Total number of delayed or retried tasks moved to the ready channel",
		}),
		dequeued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dequeued_total",
			Help:      "Total number of tasks handed to consumers",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "retries_scheduled_total",
			Help:      "Total number of retries scheduled after a retryable failure",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "completed_total",
			Help:      "Total number of tasks that completed successfully",
		}),
		failedPermanent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "failed_permanent_total",
			Help:      "Total number of tasks that failed permanently",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_total",
			Help:      "Total number of malformed outcomes dropped by the scheduler",
		}),
		abandoned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "abandoned_total",
			Help:      "Total number of scheduled tasks abandoned at shutdown",
		}),
		readyLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "ready_length",
			Help:      "Advisory number of tasks waiting in the ready channel",
		}),
		delayedLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "delayed_length",
			Help:      "Number of tasks waiting in the delay structure",
		}),
	}
}

func (m *Metrics) observeEnqueued(path string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(path).Inc()
	if path == pathImmediate {
		m.readyLength.Inc()
	}
}

func (m *Metrics) observeDelivered() {
	if m == nil {
		return
	}
	m.delivered.Inc()
	m.readyLength.Inc()
}

func (m *Metrics) observeDequeued() {
	if m == nil {
		return
	}
	m.dequeued.Inc()
	m.readyLength.Dec()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) observeCompleted() {
	if m == nil {
		return
	}
	m.completed.Inc()
}

func (m *Metrics) observeFailedPermanent() {
	if m == nil {
		return
	}
	m.failedPermanent.Inc()
}

func (m *Metrics) observeDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) observeAbandoned(n int) {
	if m == nil || n == 0 {
		return
	}
	m.abandoned.Add(float64(n))
}

func (m *Metrics) setDelayed(n int) {
	if m == nil {
		return
	}
	m.delayedLength.Set(float64(n))
}
