package postgres

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Emitter receives the events a Listener translates notifications into.
type Emitter interface {
	Emit(event string)
}

// Listener holds a dedicated connection in LISTEN mode and re-emits
// notifications as events. Channels not present in the route table are
// ignored.
type Listener struct {
	pool    *Pool
	emitter Emitter
	routes  map[string]string // pg channel -> event
	logger  log.Logger

	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// NewListener creates a Listener. routes maps notification channels to
// event names.
func NewListener(pool *Pool, emitter Emitter, routes map[string]string, logger log.Logger) *Listener {
	return &Listener{
		pool:          pool,
		emitter:       emitter,
		routes:        routes,
		logger:        log.With(logger, "component", "pg-listener"),
		retryDelay:    time.Second,
		maxRetryDelay: 30 * time.Second,
	}
}

// Run listens until ctx is done. Lost connections are re-established
// with capped exponential backoff.
func (l *Listener) Run(ctx context.Context) error {
	delay := l.retryDelay
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		level.Warn(l.logger).Log("msg", "listen connection lost", "err", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > l.maxRetryDelay {
			delay = l.maxRetryDelay
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire listen connection")
	}
	// The connection carries LISTEN state, so it never goes back to the pool.
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	for channel := range l.routes {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
			return errors.Wrapf(err, "listen %s", channel)
		}
	}
	level.Info(l.logger).Log("msg", "listening", "channels", len(l.routes))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return errors.Wrap(err, "wait for notification")
		}
		event, ok := l.routes[n.Channel]
		if !ok {
			continue
		}
		level.Debug(l.logger).Log("msg", "notification", "channel", n.Channel, "chain", n.Payload, "event", event)
		l.emitter.Emit(event)
	}
}
