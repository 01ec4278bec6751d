// Package notify publishes run progress to interested parties: the log, and
// optionally an external socket.io event hub.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vk/slotflow/internal/ctxlog"
)

// EventType names a run milestone.
type EventType string

const (
	RunStarted   EventType = "run_started"
	NodeStarted  EventType = "node_started"
	NodeFinished EventType = "node_finished"
	RunFinished  EventType = "run_finished"
)

// Event is one run milestone.
type Event struct {
	Type   EventType `json:"type"`
	RunID  uuid.UUID `json:"run_id"`
	NodeID uuid.UUID `json:"node_id,omitempty"`
	Node   string    `json:"node,omitempty"`
	Status string    `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// Sink receives events. Publish must not block for long and must be safe
// for concurrent use; delivery failures are the sink's own business.
type Sink interface {
	Publish(ctx context.Context, e Event)
}

// LogSink writes events to the context logger at debug level.
type LogSink struct{}

// Publish implements Sink.
func (LogSink) Publish(ctx context.Context, e Event) {
	args := []any{"event", e.Type, "runID", e.RunID}
	if e.Node != "" {
		args = append(args, "node", e.Node)
	}
	if e.Status != "" {
		args = append(args, "status", e.Status)
	}
	if e.Error != "" {
		args = append(args, "error", e.Error)
	}
	ctxlog.FromContext(ctx).Debug("Run event.", args...)
}

// Multi fans events out to several sinks in order.
type Multi []Sink

// Publish implements Sink.
func (m Multi) Publish(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, e)
		}
	}
}

// Discard drops every event.
type Discard struct{}

// Publish implements Sink.
func (Discard) Publish(context.Context, Event) {}
