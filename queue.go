package hawk

import (
	"go.uber.org/zap"
)

// EventQueue is the bounded FIFO buffer between producers (application
// goroutines, the panic bridge, RPC callers) and the single delivery worker.
//
// The buffer is a buffered channel: concurrent pushes are linearized by the
// channel itself and a non-blocking select gives the drop-newest overflow
// policy. Producers never block and never wait on the worker.
//
// The queue deliberately has no "closed" state. Pushes after the worker has
// stopped are still accepted (capacity permitting) but will never be
// delivered — callers treat post-shutdown sends as best-effort.
type EventQueue struct {
	events  chan *QueuedEvent
	logger  *zap.Logger
	metrics *metricsCollector
}

// newEventQueue creates a queue with a fixed capacity.
func newEventQueue(capacity int, logger *zap.Logger, metrics *metricsCollector) *EventQueue {
	return &EventQueue{
		events:  make(chan *QueuedEvent, capacity),
		logger:  logger,
		metrics: metrics,
	}
}

// Push enqueues an event without blocking. When the queue is at capacity the
// incoming event is dropped (drop-newest: already-accepted events keep their
// place) and the dropped counter is incremented. Returns whether the event
// was accepted.
func (q *EventQueue) Push(ev *QueuedEvent) bool {
	select {
	case q.events <- ev:
		return true
	default:
		q.metrics.IncDroppedEvents()
		q.logger.Warn("event queue is full, dropping event",
			zap.String("event_id", ev.ID))
		return false
	}
}

// Drain pops up to max pending events in FIFO order. Returns immediately
// with whatever is available; nil when the queue is empty.
func (q *EventQueue) Drain(max int) []*QueuedEvent {
	if max <= 0 {
		return nil
	}

	var out []*QueuedEvent
	for len(out) < max {
		select {
		case ev := <-q.events:
			out = append(out, ev)
		default:
			return out
		}
	}

	return out
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Cap returns the queue capacity.
func (q *EventQueue) Cap() int {
	return cap(q.events)
}
