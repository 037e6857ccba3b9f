package hawk

import (
	"go.uber.org/zap"
)

// RPC lets out-of-process producers enqueue events through the container's
// RPC bus. Enqueueing never fails outward: the per-event SendResult carries
// the accepted flag instead.
type RPC struct {
	plugin *Plugin
	logger *zap.Logger
}

// NewRPC creates a new RPC instance
func NewRPC(plugin *Plugin, logger *zap.Logger) *RPC {
	return &RPC{
		plugin: plugin,
		logger: logger,
	}
}

// SendEvent enqueues a single event
func (r *RPC) SendEvent(data EventData, result *SendResult) error {
	if r.plugin.catcher == nil {
		*result = SendResult{Error: "catcher is not initialized"}
		return nil
	}

	id, accepted := r.plugin.catcher.enqueue(data)
	*result = SendResult{
		Accepted: accepted,
		EventID:  id,
	}
	if !accepted {
		result.Error = "event queue is full"
		r.logger.Debug("event rejected via RPC", zap.String("event_id", id))
	}

	return nil
}

// SendBatch enqueues a batch of events
func (r *RPC) SendBatch(events []EventData, result *[]*SendResult) error {
	if len(events) == 0 {
		*result = []*SendResult{}
		return nil
	}

	r.logger.Debug("received batch of events via RPC",
		zap.Int("count", len(events)))

	results := make([]*SendResult, len(events))
	for i, data := range events {
		res := &SendResult{}
		_ = r.SendEvent(data, res)
		results[i] = res
	}

	*result = results
	return nil
}
