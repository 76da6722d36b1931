// Package relay forwards upstream change signals from a WebSocket feed
// onto the local signal bus.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"token-registry/internal/observability"
)

// Config configures relay connection behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing control frames.
	WriteTimeout time.Duration
}

// DefaultConfig returns default relay configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Message is one upstream frame.
type Message struct {
	Event string `json:"event"`
	Chain string `json:"chain,omitempty"`
}

// Emitter receives relayed events.
type Emitter interface {
	Emit(event string)
}

// WSRelay subscribes to an upstream feed and re-emits the events it is
// configured for. Everything else is dropped.
type WSRelay struct {
	endpoint string
	config   Config
	emitter  Emitter
	allowed  map[string]bool
	logger   log.Logger
	dialer   websocket.Dialer
}

// NewWSRelay creates a relay for endpoint forwarding events. A nil config
// means DefaultConfig.
func NewWSRelay(endpoint string, emitter Emitter, events []string, config *Config, logger log.Logger) *WSRelay {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[e] = true
	}
	return &WSRelay{
		endpoint: endpoint,
		config:   cfg,
		emitter:  emitter,
		allowed:  allowed,
		logger:   log.With(logger, "component", "ws-relay"),
		dialer:   websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run relays until ctx is done. Failed or dropped connections are retried
// with capped exponential backoff that resets after a successful dial.
func (r *WSRelay) Run(ctx context.Context) error {
	delay := r.config.ReconnectDelay
	for {
		connected, err := r.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			delay = r.config.ReconnectDelay
		}
		level.Warn(r.logger).Log("endpoint", r.endpoint, "err", err, "retry_in", delay)
		observability.RecordRelayReconnect()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > r.config.MaxReconnectDelay {
			delay = r.config.MaxReconnectDelay
		}
	}
}

// session runs one connection. connected reports whether the dial succeeded.
func (r *WSRelay) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := r.dialer.DialContext(ctx, r.endpoint, nil)
	if err != nil {
		return false, errors.Wrap(err, "websocket dial")
	}
	defer conn.Close()

	observability.SetRelayConnected(true)
	defer observability.SetRelayConnected(false)
	level.Info(r.logger).Log("msg", "connected", "endpoint", r.endpoint)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	go r.pingLoop(conn, stop)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(r.config.ReadTimeout))
	})

	for {
		conn.SetReadDeadline(time.Now().Add(r.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, errors.Wrap(err, "websocket read")
		}
		r.handle(data)
	}
}

func (r *WSRelay) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		level.Warn(r.logger).Log("msg", "invalid upstream message", "err", err)
		observability.RecordRelayMessage("", "invalid")
		return
	}
	if !r.allowed[msg.Event] {
		observability.RecordRelayMessage(msg.Event, "ignored")
		return
	}
	level.Debug(r.logger).Log("event", msg.Event, "chain", msg.Chain)
	observability.RecordRelayMessage(msg.Event, "emitted")
	r.emitter.Emit(msg.Event)
}

func (r *WSRelay) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(r.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(r.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
