package hawk

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCollector_Snapshot(t *testing.T) {
	mc := newMetricsCollector()
	mc.queueLen = func() int { return 7 }

	mc.AddSentEvents(3)
	mc.AddFailedEvents(2)
	mc.IncDroppedEvents()
	mc.IncRetries()
	mc.IncRetries()

	m := mc.Snapshot()
	assert.Equal(t, int64(3), m.EventsSent)
	assert.Equal(t, int64(2), m.EventsFailed)
	assert.Equal(t, int64(1), m.EventsDropped)
	assert.Equal(t, int64(2), m.TotalRetries)
	assert.Equal(t, 7, m.QueueLength)
}

func TestMetricsCollector_PrometheusCollect(t *testing.T) {
	mc := newMetricsCollector()

	// Five const metrics; the by-type vector has no series yet.
	assert.Equal(t, 5, testutil.CollectAndCount(mc))

	mc.IncEventsByType(EventTypeManual)
	mc.IncEventsByType(EventTypePanic)
	assert.Equal(t, 7, testutil.CollectAndCount(mc))

	assert.Equal(t, float64(1), testutil.ToFloat64(mc.eventsByType.WithLabelValues(EventTypeManual)))
}
