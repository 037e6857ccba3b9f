package hawk

import (
	"time"

	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

// Config holds the full catcher configuration. The zero value plus
// InitDefaults gives a working setup; only the integration token is
// mandatory. The mapstructure tags serve the endure Configurer path in
// plugin.go — programmatic users fill the struct directly.
type Config struct {
	// Enabled toggles the catcher when it runs as a container plugin.
	Enabled bool `mapstructure:"enabled"`

	// Token is the base64-encoded integration token.
	Token string `mapstructure:"token"`

	// Endpoint overrides the collector URL derived from the token.
	Endpoint string `mapstructure:"endpoint"`

	// CatchPanics installs the process-wide panic handler during New.
	CatchPanics bool `mapstructure:"catch_panics"`

	// ShutdownTimeout bounds the final drain during Close.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Transport contains HTTP delivery settings.
	Transport TransportConfig `mapstructure:"transport"`

	// Retry contains retry mechanism settings.
	Retry RetryConfig `mapstructure:"retry"`

	// Queue contains queue and batching settings.
	Queue QueueConfig `mapstructure:"queue"`

	// BeforeSend, when set, runs before each event is enqueued. Return the
	// (possibly modified) event to send it, or nil to drop it. A panicking
	// callback is contained and the original event is sent unchanged.
	BeforeSend func(EventData) *EventData `mapstructure:"-"`

	// Logger receives diagnostic output. Defaults to a no-op logger so the
	// catcher stays silent unless the host opts in.
	Logger *zap.Logger `mapstructure:"-"`
}

// TransportConfig contains HTTP transport settings.
type TransportConfig struct {
	// Request timeout. Kept strictly below ShutdownTimeout so a hung
	// connection cannot block shutdown.
	Timeout time.Duration `mapstructure:"timeout"`
	// Connection timeout
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// Enable gzip compression
	Compression bool `mapstructure:"compression"`
	// SSL verification
	SSLVerify bool `mapstructure:"ssl_verify"`
	// Proxy settings
	Proxy string `mapstructure:"proxy"`
}

// RetryConfig contains retry mechanism settings.
type RetryConfig struct {
	// Maximum delivery attempts per batch
	MaxAttempts int `mapstructure:"max_attempts"`
	// Initial backoff duration
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	// Backoff multiplier
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	// Maximum backoff duration
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
	// Deadline caps the whole retry cycle for one batch so a pathological
	// batch cannot monopolize the worker.
	Deadline time.Duration `mapstructure:"deadline"`
}

// QueueConfig contains queue and batching settings.
type QueueConfig struct {
	// Capacity is the bound of the event queue.
	Capacity int `mapstructure:"capacity"`
	// MaxBatch is the maximum number of events per delivery attempt.
	MaxBatch int `mapstructure:"max_batch"`
	// FlushInterval is the periodic delivery interval for partial batches.
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// InitDefaults initializes default configuration values.
func (cfg *Config) InitDefaults() {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = 5 * time.Second
	}
	if cfg.Transport.ConnectTimeout == 0 {
		cfg.Transport.ConnectTimeout = 3 * time.Second
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialBackoff == 0 {
		cfg.Retry.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.Retry.BackoffMultiplier == 0 {
		cfg.Retry.BackoffMultiplier = 2.0
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = 30 * time.Second
	}
	if cfg.Retry.Deadline == 0 {
		cfg.Retry.Deadline = 60 * time.Second
	}

	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = 100
	}
	if cfg.Queue.MaxBatch == 0 {
		cfg.Queue.MaxBatch = 25
	}
	if cfg.Queue.FlushInterval == 0 {
		cfg.Queue.FlushInterval = 2 * time.Second
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

// Validate validates the configuration and clamps values that would break
// the delivery invariants.
func (cfg *Config) Validate() error {
	const op = errors.Op("hawk_config_validate")

	if cfg.Queue.Capacity < 0 || cfg.Queue.MaxBatch < 0 {
		return errors.E(op, errors.Str("queue capacity and max_batch must be positive"))
	}

	if cfg.Queue.MaxBatch > cfg.Queue.Capacity {
		cfg.Queue.MaxBatch = cfg.Queue.Capacity
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	// A transport attempt must always finish before the shutdown grace
	// period elapses.
	if cfg.Transport.Timeout >= cfg.ShutdownTimeout {
		cfg.Transport.Timeout = cfg.ShutdownTimeout / 2
	}

	return nil
}
