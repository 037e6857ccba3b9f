package hawk

import (
	"context"
	"sync"
	"time"

	"github.com/roadrunner-server/endure/v2/dep"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

// PluginName is the config section the plugin reads from the container.
const PluginName = "hawk"

// Plugin embeds the catcher into an endure-based service container. The
// container owns the lifecycle: Init reads the config section and builds
// the catcher, Serve keeps it running, Stop drains and shuts it down.
type Plugin struct {
	cfg     *Config
	logger  *zap.Logger
	catcher *Catcher

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// Configurer interface for config plugin
type Configurer interface {
	UnmarshalKey(name string, out interface{}) error
	Has(name string) bool
}

// Logger interface for logger plugin
type Logger interface {
	NamedLogger(name string) *zap.Logger
}

// Init initializes the plugin
func (p *Plugin) Init(cfg Configurer, log Logger) error {
	const op = errors.Op("hawk_plugin_init")

	// Check if configuration section exists
	if !cfg.Has(PluginName) {
		return errors.E(op, errors.Disabled)
	}

	config := &Config{}
	if err := cfg.UnmarshalKey(PluginName, config); err != nil {
		return errors.E(op, err)
	}

	config.InitDefaults()
	if err := config.Validate(); err != nil {
		return errors.E(op, err)
	}

	if !config.Enabled {
		return errors.E(op, errors.Disabled)
	}

	p.cfg = config
	p.logger = log.NamedLogger(PluginName)
	p.cfg.Logger = p.logger

	catcher, err := New(config.Token, *config)
	if err != nil {
		return errors.E(op, err)
	}
	p.catcher = catcher

	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	p.logger.Info("hawk plugin initialized",
		zap.Bool("enabled", config.Enabled),
		zap.Int("queue_capacity", config.Queue.Capacity),
		zap.Bool("catch_panics", config.CatchPanics))

	return nil
}

// Serve starts the plugin
func (p *Plugin) Serve() chan error {
	errCh := make(chan error, 1)

	if p.catcher == nil {
		errCh <- errors.E(errors.Op("hawk_plugin_serve"), errors.Str("plugin not initialized"))
		return errCh
	}

	go func() {
		defer close(p.doneCh)

		<-p.stopCh

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ShutdownTimeout+time.Second)
		defer cancel()

		if err := p.catcher.Close(ctx); err != nil {
			p.logger.Error("error stopping catcher", zap.Error(err))
		}

		p.logger.Info("hawk plugin stopped")
	}()

	return errCh
}

// Stop stops the plugin. One-shot: repeated calls just wait for the
// shutdown started by the first one.
func (p *Plugin) Stop(ctx context.Context) error {
	if p.stopCh == nil {
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	// Wait for graceful shutdown with timeout
	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		p.logger.Warn("plugin stop timed out")
		return ctx.Err()
	}
}

// Name returns the plugin name
func (p *Plugin) Name() string {
	return PluginName
}

// RPC returns the RPC interface
func (p *Plugin) RPC() interface{} {
	return NewRPC(p, p.logger)
}

// Provides returns the dependencies this plugin provides
func (p *Plugin) Provides() []*dep.Out {
	return []*dep.Out{
		dep.Bind((*Transporter)(nil), p.Transport),
	}
}

// Transport returns the transporter interface for other plugins
func (p *Plugin) Transport() Transporter {
	return p
}

// SendEvent implements Transporter
func (p *Plugin) SendEvent(data EventData) bool {
	if p.catcher == nil {
		return false
	}
	return p.catcher.CaptureEvent(data)
}

// SendBatch implements Transporter
func (p *Plugin) SendBatch(events []EventData) []bool {
	results := make([]bool, len(events))
	if p.catcher == nil {
		return results
	}
	for i, data := range events {
		results[i] = p.catcher.CaptureEvent(data)
	}
	return results
}

// GetMetrics implements Transporter
func (p *Plugin) GetMetrics() *TransportMetrics {
	if p.catcher == nil {
		return &TransportMetrics{}
	}
	return p.catcher.Metrics()
}

// Transporter is the interface other plugins consume to report events.
type Transporter interface {
	SendEvent(data EventData) bool
	SendBatch(events []EventData) []bool
	GetMetrics() *TransportMetrics
}
