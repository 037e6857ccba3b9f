package hawk

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hawk_catcher"

// metricsCollector implements prometheus.Collector interface
type metricsCollector struct {
	// Atomic counters for thread-safe metric updates
	sentEvents    *uint64 // Total successfully delivered events
	failedEvents  *uint64 // Total events dropped after delivery failure
	droppedEvents *uint64 // Total events rejected by the full queue
	totalRetries  *uint64 // Total batch retry attempts

	// queueLen reports the current queue depth; set during wiring.
	queueLen func() int

	// Prometheus metric descriptors
	sentEventsDesc    *prometheus.Desc
	failedEventsDesc  *prometheus.Desc
	droppedEventsDesc *prometheus.Desc
	totalRetriesDesc  *prometheus.Desc
	queueLengthDesc   *prometheus.Desc

	// Vector metric for events by type
	eventsByType *prometheus.CounterVec
}

// newMetricsCollector creates a new metrics collector
func newMetricsCollector() *metricsCollector {
	return &metricsCollector{
		sentEvents:    ptrTo(uint64(0)),
		failedEvents:  ptrTo(uint64(0)),
		droppedEvents: ptrTo(uint64(0)),
		totalRetries:  ptrTo(uint64(0)),

		sentEventsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sent_events_total"),
			"Total number of events delivered to the collector",
			nil, nil),

		failedEventsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "failed_events_total"),
			"Total number of events dropped after delivery failure",
			nil, nil),

		droppedEventsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "dropped_events_total"),
			"Total number of events rejected because the queue was full",
			nil, nil),

		totalRetriesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "retries_total"),
			"Total number of batch retry attempts",
			nil, nil),

		queueLengthDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "queue_length"),
			"Current number of events pending delivery",
			nil, nil),

		eventsByType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prometheus.BuildFQName(namespace, "", "events_by_type_total"),
				Help: "Total number of accepted events by event type",
			},
			[]string{"event_type"}),
	}
}

// Public methods for updating metrics (called from business logic)

// AddSentEvents adds to the delivered events counter
func (mc *metricsCollector) AddSentEvents(n int) {
	atomic.AddUint64(mc.sentEvents, uint64(n))
}

// AddFailedEvents adds to the failed events counter
func (mc *metricsCollector) AddFailedEvents(n int) {
	atomic.AddUint64(mc.failedEvents, uint64(n))
}

// IncDroppedEvents increments dropped events counter
func (mc *metricsCollector) IncDroppedEvents() {
	atomic.AddUint64(mc.droppedEvents, 1)
}

// IncRetries increments the retry counter
func (mc *metricsCollector) IncRetries() {
	atomic.AddUint64(mc.totalRetries, 1)
}

// IncEventsByType increments events counter for specific event type
func (mc *metricsCollector) IncEventsByType(eventType string) {
	mc.eventsByType.WithLabelValues(eventType).Inc()
}

// Snapshot returns current counter values for facade diagnostics.
func (mc *metricsCollector) Snapshot() *TransportMetrics {
	m := &TransportMetrics{
		EventsSent:    int64(atomic.LoadUint64(mc.sentEvents)),
		EventsFailed:  int64(atomic.LoadUint64(mc.failedEvents)),
		EventsDropped: int64(atomic.LoadUint64(mc.droppedEvents)),
		TotalRetries:  int64(atomic.LoadUint64(mc.totalRetries)),
	}
	if mc.queueLen != nil {
		m.QueueLength = mc.queueLen()
	}
	return m
}

// Implement prometheus.Collector interface

// Describe sends all metric descriptions to Prometheus
func (mc *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- mc.sentEventsDesc
	ch <- mc.failedEventsDesc
	ch <- mc.droppedEventsDesc
	ch <- mc.totalRetriesDesc
	ch <- mc.queueLengthDesc

	// Vector metric handles its own description
	mc.eventsByType.Describe(ch)
}

// Collect sends current metric values to Prometheus
func (mc *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		mc.sentEventsDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(mc.sentEvents)))

	ch <- prometheus.MustNewConstMetric(
		mc.failedEventsDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(mc.failedEvents)))

	ch <- prometheus.MustNewConstMetric(
		mc.droppedEventsDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(mc.droppedEvents)))

	ch <- prometheus.MustNewConstMetric(
		mc.totalRetriesDesc,
		prometheus.CounterValue,
		float64(atomic.LoadUint64(mc.totalRetries)))

	queueLen := 0
	if mc.queueLen != nil {
		queueLen = mc.queueLen()
	}
	ch <- prometheus.MustNewConstMetric(
		mc.queueLengthDesc,
		prometheus.GaugeValue,
		float64(queueLen))

	// Vector metric collects itself
	mc.eventsByType.Collect(ch)
}

// Helper function for pointer creation
func ptrTo[T any](v T) *T {
	return &v
}
