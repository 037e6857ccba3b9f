package hawk

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Sender is the transport contract the worker drives. One Send call is one
// delivery attempt for the whole batch.
type Sender interface {
	Send(ctx context.Context, batch []*HawkEvent) error
}

// flushRequest asks the worker to deliver everything pending, then signal.
type flushRequest struct {
	done chan struct{}
}

// Worker is the single consumer of the event queue. It accumulates events
// into batches, delivers them through the transport with retry/backoff, and
// enforces the flush and shutdown discipline.
//
// Lifecycle: Starting -> Running -> Draining -> Stopped. The worker is the
// only goroutine that suspends, and only on timeout-bounded waits — it can
// never hang forever.
type Worker struct {
	queue     *EventQueue
	transport Sender
	retryMgr  *RetryManager
	limiter   *RateLimiter
	logger    *zap.Logger
	metrics   *metricsCollector

	maxBatch        int
	flushInterval   time.Duration
	shutdownTimeout time.Duration

	state    atomic.Int32
	flushCh  chan *flushRequest
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// newWorker wires a worker; Start must be called to launch the loop.
func newWorker(
	queue *EventQueue,
	transport Sender,
	retryMgr *RetryManager,
	limiter *RateLimiter,
	qcfg *QueueConfig,
	shutdownTimeout time.Duration,
	logger *zap.Logger,
	metrics *metricsCollector,
) *Worker {
	w := &Worker{
		queue:           queue,
		transport:       transport,
		retryMgr:        retryMgr,
		limiter:         limiter,
		logger:          logger,
		metrics:         metrics,
		maxBatch:        qcfg.MaxBatch,
		flushInterval:   qcfg.FlushInterval,
		shutdownTimeout: shutdownTimeout,
		flushCh:         make(chan *flushRequest),
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
	w.state.Store(int32(StateStarting))
	return w
}

// Start launches the background loop.
func (w *Worker) Start() {
	go w.run()
}

// State returns the current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Flush asks the worker to deliver everything pending at the time of the
// call and blocks until done or ctx expires. Returns whether the flush
// completed in time.
func (w *Worker) Flush(ctx context.Context) bool {
	req := &flushRequest{done: make(chan struct{})}

	select {
	case w.flushCh <- req:
	case <-w.doneCh:
		return false
	case <-ctx.Done():
		return false
	}

	select {
	case <-req.done:
		return true
	case <-w.doneCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// Stop signals shutdown (one-shot) and waits for the worker to finish its
// final drain, bounded by ctx. The worker always reaches Stopped — a slow
// collector cannot hang the host process.
func (w *Worker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})

	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		w.logger.Warn("worker stop timed out, abandoning drain")
		return ctx.Err()
	}
}

// run is the worker loop. Events are received one by one into a pending
// batch; the batch is delivered when full or when the flush interval
// elapses, whichever first. The wait is a blocking select, near-zero CPU
// when idle.
func (w *Worker) run() {
	defer close(w.doneCh)
	defer w.state.Store(int32(StateStopped))

	w.state.Store(int32(StateRunning))

	pending := make([]*QueuedEvent, 0, w.maxBatch)
	flushTimer := time.NewTimer(w.flushInterval)
	defer flushTimer.Stop()

	for {
		select {
		case <-w.stopCh:
			w.drainAndStop(pending)
			return

		case req := <-w.flushCh:
			pending = w.flushAll(pending)
			close(req.done)
			flushTimer.Reset(w.flushInterval)

		case ev := <-w.queue.events:
			pending = append(pending, ev)
			if len(pending) >= w.maxBatch {
				w.deliver(pending)
				pending = pending[:0]
				flushTimer.Reset(w.flushInterval)
			}

		case <-flushTimer.C:
			if len(pending) > 0 {
				w.deliver(pending)
				pending = pending[:0]
			}
			flushTimer.Reset(w.flushInterval)
		}
	}
}

// flushAll delivers the pending batch plus everything queued at this
// moment. Events pushed before the flush request are guaranteed to be
// attempted. Returns the (reset) pending slice.
func (w *Worker) flushAll(pending []*QueuedEvent) []*QueuedEvent {
	if len(pending) > 0 {
		w.deliver(pending)
		pending = pending[:0]
	}

	for {
		batch := w.queue.Drain(w.maxBatch)
		if len(batch) == 0 {
			return pending
		}
		w.deliver(batch)
	}
}

// drainAndStop performs the best-effort final drain bounded by the
// shutdown grace period. Each remaining batch gets a single delivery
// attempt — there is no retry budget on the way out.
func (w *Worker) drainAndStop(pending []*QueuedEvent) {
	w.state.Store(int32(StateDraining))

	ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()

	for {
		if len(pending) > 0 {
			w.deliverOnce(ctx, pending)
			pending = nil
		}

		batch := w.queue.Drain(w.maxBatch)
		if len(batch) == 0 {
			return
		}

		if ctx.Err() != nil {
			w.logger.Warn("shutdown grace period elapsed, abandoning queued events",
				zap.Int("abandoned", len(batch)+w.queue.Len()))
			w.metrics.AddFailedEvents(len(batch))
			return
		}

		pending = batch
	}
}

// deliver sends one batch with the full retry/backoff cycle. Batches whose
// retry budget or deadline is exhausted are dropped, not re-queued — the
// pipeline prioritizes forward progress over perfect delivery.
func (w *Worker) deliver(batch []*QueuedEvent) {
	events := envelopes(batch)
	cycle := w.retryMgr.NewCycle()

	ctx, cancel := context.WithTimeout(context.Background(), w.retryMgr.Deadline())
	defer cancel()

	for {
		if wait := w.limiter.PauseRemaining(); wait > 0 {
			if !w.sleep(ctx, wait) {
				w.dropBatch(batch, "rate-limit pause outlived the batch deadline")
				return
			}
		}

		err := w.transport.Send(ctx, events)
		w.retryMgr.RecordAttempt(cycle)

		if err == nil {
			w.metrics.AddSentEvents(len(batch))
			return
		}

		if !isRetryable(err) {
			w.dropBatch(batch, "fatal transport error")
			w.logger.Error("batch rejected permanently",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			return
		}

		if !w.retryMgr.ShouldRetry(cycle, err) {
			w.dropBatch(batch, "retry budget exhausted")
			return
		}

		if !w.sleep(ctx, w.retryMgr.CalculateBackoff(cycle.Attempts)) {
			w.dropBatch(batch, "batch deadline elapsed during backoff")
			return
		}
	}
}

// deliverOnce sends one batch with a single attempt, used during the final
// drain.
func (w *Worker) deliverOnce(ctx context.Context, batch []*QueuedEvent) {
	if err := w.transport.Send(ctx, envelopes(batch)); err != nil {
		w.dropBatch(batch, "delivery failed during shutdown drain")
		return
	}
	w.metrics.AddSentEvents(len(batch))
}

// sleep waits for d, aborting early on batch deadline or shutdown.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-w.stopCh:
		return false
	}
}

func (w *Worker) dropBatch(batch []*QueuedEvent, reason string) {
	w.metrics.AddFailedEvents(len(batch))
	w.logger.Warn("dropping batch",
		zap.Int("batch_size", len(batch)),
		zap.String("reason", reason))
}

// envelopes extracts the wire envelopes from queued events.
func envelopes(batch []*QueuedEvent) []*HawkEvent {
	out := make([]*HawkEvent, len(batch))
	for i, ev := range batch {
		out[i] = ev.Event
	}
	return out
}
