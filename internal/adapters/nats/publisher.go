package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
)

var _ ports.Diagnostics = (*Publisher)(nil)

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Message is the wire form of a diagnostic.
type Message struct {
	BuildID     string    `json:"build_id"`
	Context     string    `json:"context"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
	Destination string    `json:"destination"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

// Publisher is a diagnostics sink that publishes every report on a subject.
// Publish failures are logged and never surface to the reporting build.
type Publisher struct {
	conn    Conn
	subject string
	logger  ports.Logger
	now     func() time.Time
}

// NewPublisher creates a Publisher for subject.
func NewPublisher(conn Conn, subject string, logger ports.Logger) *Publisher {
	return &Publisher{conn: conn, subject: subject, logger: logger, now: time.Now}
}

// Report publishes d.
func (p *Publisher) Report(d domain.Diagnostic) {
	msg := Message{
		BuildID:     d.BuildID,
		Context:     d.Context,
		Severity:    string(d.Severity),
		Message:     d.Message,
		Destination: d.Destination,
		Time:        p.now().UTC(),
	}
	if d.Err != nil {
		msg.Error = d.Err.Error()
	}

	data, err := json.Marshal(msg)
	if err == nil {
		err = p.conn.Publish(p.subject, data)
	}
	if err != nil && p.logger != nil {
		p.logger.Warn(fmt.Sprintf("failed to publish diagnostic for %s: %v", d.Destination, err))
	}
}
