package hawk

import (
	"time"
)

const (
	// CatcherType identifies the SDK family in every envelope.
	CatcherType = "errors/go"

	// CatcherVersion is stamped into every event payload so the collector
	// can track SDK compatibility.
	CatcherVersion = "hawk-go/1.0.0"
)

// Event type values carried in EventData.Type.
const (
	EventTypeManual = "manual"
	EventTypePanic  = "panic"
)

// HawkEvent is the envelope POSTed to the collector:
//
//	{ "token": "...", "catcherType": "errors/go", "payload": { ... } }
type HawkEvent struct {
	// Token is the raw base64-encoded integration token, passed through as-is.
	Token string `json:"token"`

	// CatcherType identifies the catcher family. Always "errors/go".
	CatcherType string `json:"catcherType"`

	// Payload carries the actual event data.
	Payload EventData `json:"payload"`
}

// EventData is the event payload conforming to the collector schema.
type EventData struct {
	// Title is the human-readable message, e.g. "connection refused"
	// or "panic: index out of range".
	Title string `json:"title"`

	// Type classifies the event: "manual" or "panic".
	Type string `json:"type,omitempty"`

	// Backtrace holds stack frames from the most recent call to the
	// earliest. Nil when no backtrace is available.
	Backtrace []BacktraceFrame `json:"backtrace,omitempty"`

	// CatcherVersion is the SDK version string, e.g. "hawk-go/1.0.0".
	CatcherVersion string `json:"catcherVersion"`
}

// BacktraceFrame is a single frame in the backtrace.
type BacktraceFrame struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Function string `json:"function,omitempty"`
}

// QueuedEvent is one accepted event together with the local delivery ID
// used in logs and send results.
type QueuedEvent struct {
	ID    string
	Event *HawkEvent
}

// SendResult reports the outcome of an enqueue attempt to RPC callers.
type SendResult struct {
	Accepted bool   `json:"accepted"`
	EventID  string `json:"event_id"`
	Error    string `json:"error,omitempty"`
}

// WorkerState is the delivery worker lifecycle state.
type WorkerState int32

const (
	StateStarting WorkerState = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TransportMetrics is a point-in-time snapshot of delivery counters.
type TransportMetrics struct {
	EventsSent    int64
	EventsFailed  int64
	EventsDropped int64
	TotalRetries  int64
	QueueLength   int
}

// retryCycle is the per-batch retry state threaded through one delivery
// cycle. It is never shared across batches.
type retryCycle struct {
	Attempts    int
	LastAttempt time.Time
}
