package hawk

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
)

// Catcher is the SDK client: it owns the queue, the delivery worker and the
// transport configuration. There is normally one Catcher per process, held
// by the package-level singleton (see Init), but nothing prevents separate
// instances with different tokens.
type Catcher struct {
	token      string
	cfg        *Config
	logger     *zap.Logger
	queue      *EventQueue
	worker     *Worker
	transport  *HTTPTransport
	limiter    *RateLimiter
	metrics    *metricsCollector
	beforeSend func(EventData) *EventData

	closeOnce sync.Once
}

// New creates a catcher and starts its delivery worker.
//
// The token is decoded to derive the default collector endpoint
// (https://{integrationId}.k1.hawk.so/); cfg.Endpoint overrides it.
// When cfg.CatchPanics is set, the process-wide panic handler is installed
// (idempotent across catchers).
func New(token string, cfg Config) (*Catcher, error) {
	const op = errors.Op("hawk_init")

	decoded, err := DecodeToken(token)
	if err != nil {
		return nil, errors.E(op, err)
	}

	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.E(op, err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint(decoded.IntegrationID)
	}

	logger := cfg.Logger
	metrics := newMetricsCollector()
	limiter := NewRateLimiter(logger)

	transport, err := NewHTTPTransport(&cfg.Transport, endpoint, limiter, logger)
	if err != nil {
		return nil, errors.E(op, err)
	}

	queue := newEventQueue(cfg.Queue.Capacity, logger, metrics)
	metrics.queueLen = queue.Len

	retryMgr := NewRetryManager(&cfg.Retry, logger, metrics)
	worker := newWorker(queue, transport, retryMgr, limiter, &cfg.Queue, cfg.ShutdownTimeout, logger, metrics)

	c := &Catcher{
		token:      token,
		cfg:        &cfg,
		logger:     logger,
		queue:      queue,
		worker:     worker,
		transport:  transport,
		limiter:    limiter,
		metrics:    metrics,
		beforeSend: cfg.BeforeSend,
	}

	worker.Start()

	if cfg.CatchPanics {
		InstallPanicHandler(c)
	}

	logger.Info("hawk catcher started",
		zap.String("endpoint", endpoint),
		zap.Int("queue_capacity", cfg.Queue.Capacity),
		zap.Duration("flush_interval", cfg.Queue.FlushInterval),
		zap.Bool("catch_panics", cfg.CatchPanics))

	return c, nil
}

// Send reports a message event. Returns whether the event was accepted
// into the queue — acceptance is the only delivery signal producers get.
func (c *Catcher) Send(message string) bool {
	_, ok := c.enqueue(newManualEvent(message, 1))
	return ok
}

// CaptureError reports an error value as a manual event. Nil errors are
// ignored.
func (c *Catcher) CaptureError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := c.enqueue(newManualEvent(err.Error(), 1))
	return ok
}

// CaptureEvent reports a pre-built payload. Used by the panic bridge and
// by integrations that assemble their own backtrace.
func (c *Catcher) CaptureEvent(data EventData) bool {
	_, ok := c.enqueue(data)
	return ok
}

// enqueue stamps defaults, applies before_send, wraps the payload in the
// wire envelope and pushes it. Returns the local event ID and acceptance.
func (c *Catcher) enqueue(data EventData) (string, bool) {
	if data.CatcherVersion == "" {
		data.CatcherVersion = CatcherVersion
	}

	data, keep := c.applyBeforeSend(data)
	if !keep {
		return "", false
	}

	ev := &QueuedEvent{
		ID: uuid.NewString(),
		Event: &HawkEvent{
			Token:       c.token,
			CatcherType: CatcherType,
			Payload:     data,
		},
	}

	if !c.queue.Push(ev) {
		return ev.ID, false
	}

	c.metrics.IncEventsByType(data.Type)
	return ev.ID, true
}

// applyBeforeSend runs the before_send callback with panic containment:
// a panicking callback must not take down the caller, so the original
// event is sent unchanged instead.
func (c *Catcher) applyBeforeSend(data EventData) (out EventData, keep bool) {
	if c.beforeSend == nil {
		return data, true
	}

	out, keep = data, true
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("before_send panicked, sending original event unchanged",
				zap.Any("panic", r))
			out, keep = data, true
		}
	}()

	modified := c.beforeSend(data)
	if modified == nil {
		return EventData{}, false
	}
	return *modified, true
}

// Flush delivers everything pending at the time of the call, blocking until
// drained or the timeout elapses. Returns whether the flush completed.
func (c *Catcher) Flush(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.worker.Flush(ctx)
}

// Close stops the worker after a best-effort final drain bounded by ctx.
// Events pushed after Close are still accepted by the queue but will never
// be delivered.
func (c *Catcher) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		err = c.worker.Stop(ctx)
		_ = c.transport.Close()
	})
	return err
}

// State returns the delivery worker state for diagnostics.
func (c *Catcher) State() WorkerState {
	return c.worker.State()
}

// Metrics returns a snapshot of the delivery counters.
func (c *Catcher) Metrics() *TransportMetrics {
	return c.metrics.Snapshot()
}

// DroppedEvents returns how many events were rejected by the full queue.
func (c *Catcher) DroppedEvents() int64 {
	return c.metrics.Snapshot().EventsDropped
}

// PrometheusCollector exposes the catcher counters for registration in the
// host's prometheus registry.
func (c *Catcher) PrometheusCollector() prometheus.Collector {
	return c.metrics
}

// ---------------------------------------------------------------------------
// Package-level singleton
// ---------------------------------------------------------------------------

var globalCatcher atomic.Pointer[Catcher]

// Init creates the process-wide catcher. It can only succeed once;
// subsequent calls return an error.
func Init(token string, cfg Config) error {
	const op = errors.Op("hawk_global_init")

	if globalCatcher.Load() != nil {
		return errors.E(op, errors.Str("hawk is already initialized"))
	}

	c, err := New(token, cfg)
	if err != nil {
		return err
	}

	if !globalCatcher.CompareAndSwap(nil, c) {
		// Lost the init race; tear down the extra instance.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Close(ctx)
		return errors.E(op, errors.Str("hawk is already initialized"))
	}

	return nil
}

// Current returns the process-wide catcher, or nil before Init.
func Current() *Catcher {
	return globalCatcher.Load()
}

// Send reports a message through the process-wide catcher.
// Silent no-op (returns false) when the SDK is not initialized.
func Send(message string) bool {
	if c := Current(); c != nil {
		_, ok := c.enqueue(newManualEvent(message, 1))
		return ok
	}
	return false
}

// CaptureError reports an error through the process-wide catcher.
func CaptureError(err error) bool {
	if c := Current(); c != nil && err != nil {
		_, ok := c.enqueue(newManualEvent(err.Error(), 1))
		return ok
	}
	return false
}

// CaptureEvent reports a pre-built payload through the process-wide catcher.
func CaptureEvent(data EventData) bool {
	if c := Current(); c != nil {
		return c.CaptureEvent(data)
	}
	return false
}

// Flush drains the process-wide catcher. Vacuously true when the SDK is not
// initialized — there is nothing to flush.
func Flush(timeout time.Duration) bool {
	if c := Current(); c != nil {
		return c.Flush(timeout)
	}
	return true
}

// Shutdown flushes and stops the process-wide catcher.
func Shutdown(ctx context.Context) error {
	if c := Current(); c != nil {
		return c.Close(ctx)
	}
	return nil
}
