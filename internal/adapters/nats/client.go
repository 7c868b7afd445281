// Package nats connects the primary to a NATS server: change events arrive on
// <prefix>.changes and build diagnostics leave on <prefix>.diagnostics.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	changesSuffix     = ".changes"
	diagnosticsSuffix = ".diagnostics"
	connectTimeout    = 5 * time.Second
	drainTimeout      = 2 * time.Second
)

// ChangesSubject returns the subject change events are consumed from.
func ChangesSubject(prefix string) string {
	return prefix + changesSuffix
}

// DiagnosticsSubject returns the subject diagnostics are published to.
func DiagnosticsSubject(prefix string) string {
	return prefix + diagnosticsSuffix
}

// Client is a NATS connection scoped to one subject prefix.
type Client struct {
	conn   *natsgo.Conn
	prefix string
	logger ports.Logger
	sub    *natsgo.Subscription
}

// Connect dials url and keeps reconnecting for the life of the client.
func Connect(url, prefix string, logger ports.Logger) (*Client, error) {
	conn, err := natsgo.Connect(url,
		natsgo.Name("stitch"),
		natsgo.Timeout(connectTimeout),
		natsgo.MaxReconnects(-1),
		natsgo.DrainTimeout(drainTimeout),
	)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrBusConnectFailed.Error()), "url", url)
	}
	return &Client{conn: conn, prefix: prefix, logger: logger}, nil
}

// SubscribeChanges forwards every decodable change event to out until ctx is
// done. Malformed messages are logged and dropped.
func (c *Client) SubscribeChanges(ctx context.Context, out chan<- domain.ChangeEvent) error {
	subject := ChangesSubject(c.prefix)
	sub, err := c.conn.Subscribe(subject, ChangeHandler(ctx, out, c.logger))
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to subscribe"), "subject", subject)
	}
	// The handler blocks while out is full. Unlimited pending buffers keep
	// NATS queueing events meanwhile instead of dropping them as a slow consumer.
	if err := sub.SetPendingLimits(-1, -1); err != nil {
		_ = sub.Unsubscribe()
		return zerr.With(zerr.Wrap(err, "failed to lift pending limits"), "subject", subject)
	}
	c.sub = sub
	return nil
}

// Diagnostics returns a sink publishing to this client's diagnostics subject.
func (c *Client) Diagnostics() *Publisher {
	return NewPublisher(c.conn, DiagnosticsSubject(c.prefix), c.logger)
}

// Close drains the subscription and closes the connection.
func (c *Client) Close() error {
	if c.sub != nil {
		_ = c.sub.Unsubscribe()
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return zerr.Wrap(err, "failed to drain NATS connection")
	}
	return nil
}

// ChangeHandler decodes change messages and sends them to out. It blocks until
// out has room or ctx is done; change events are never dropped for space.
func ChangeHandler(ctx context.Context, out chan<- domain.ChangeEvent, logger ports.Logger) natsgo.MsgHandler {
	return func(msg *natsgo.Msg) {
		ev, err := DecodeChange(msg.Data)
		if err != nil {
			if logger != nil {
				logger.Warn(fmt.Sprintf("dropping change event on %s: %v", msg.Subject, err))
			}
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}
}

// DecodeChange parses a {"event": kind, "path": "/abs/file"} message.
func DecodeChange(data []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return domain.ChangeEvent{}, zerr.Wrap(err, domain.ErrInvalidChangeEvent.Error())
	}
	if !ev.Kind.Known() {
		return domain.ChangeEvent{}, zerr.With(domain.ErrInvalidChangeEvent, "event", string(ev.Kind))
	}
	if !filepath.IsAbs(ev.Path) {
		return domain.ChangeEvent{}, zerr.With(domain.ErrInvalidChangeEvent, "path", ev.Path)
	}
	ev.Path = filepath.Clean(ev.Path)
	return ev, nil
}
