package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEventName is the socket.io event carrying run events.
const DefaultEventName = "slotflow:event"

// SocketIOOptions configures a SocketIOSink.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	EventName          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIOSink emits every event to a socket.io server.
type SocketIOSink struct {
	io    *socket.Socket
	event string
}

// DialSocketIO connects to the hub and waits for the connection to be
// acknowledged.
func DialSocketIO(ctx context.Context, o SocketIOOptions) (*SocketIOSink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", o.URL)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if o.EventName == "" {
		o.EventName = DefaultEventName
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to event hub.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})

	logger.Debug("Connecting to event hub...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIOSink{io: io, event: o.EventName}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(o.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", o.ConnectTimeout)
	}
}

// Publish implements Sink.
func (s *SocketIOSink) Publish(ctx context.Context, e Event) {
	payload := map[string]any{
		"type":   string(e.Type),
		"run_id": e.RunID.String(),
		"time":   e.Time.UTC().Format(time.RFC3339Nano),
	}
	if e.Node != "" {
		payload["node_id"] = e.NodeID.String()
		payload["node"] = e.Node
	}
	if e.Status != "" {
		payload["status"] = e.Status
	}
	if e.Error != "" {
		payload["error"] = e.Error
	}
	ctxlog.FromContext(ctx).Debug("Emitting run event.", "event", s.event, "type", e.Type)
	s.io.Emit(s.event, payload)
}

// Close disconnects from the hub.
func (s *SocketIOSink) Close() error {
	s.io.Disconnect()
	return nil
}
