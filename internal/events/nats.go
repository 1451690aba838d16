// Package events publishes movie aggregate events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/review"
)

// SubjectPrefix is prepended to the event kind to build the NATS subject.
const SubjectPrefix = "moviereviewer."

const (
	maxReconnects = 10
	reconnectWait = 2 * time.Second
)

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Publisher sends review events as JSON messages.
type Publisher struct {
	conn   *nats.Conn
	out    msgPublisher
	logger *zap.Logger
}

var _ review.Publisher = (*Publisher)(nil)

// Connect dials NATS and returns a ready Publisher.
func Connect(url string, timeout time.Duration, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("events")

	opts := []nats.Option{
		nats.Name("movie-reviewer publisher"),
		nats.Timeout(timeout),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))

	return &Publisher{conn: conn, out: conn, logger: logger}, nil
}

// Subject returns the subject an event of kind is published on.
func Subject(kind review.EventKind) string {
	return SubjectPrefix + string(kind)
}

// Publish marshals event and sends it. The context is not used by the NATS
// client; publishing is asynchronous and buffered.
func (p *Publisher) Publish(_ context.Context, event review.Event) error {
	subject := Subject(event.Kind)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for subject %s: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set("Event-Kind", string(event.Kind))

	if err := p.out.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", subject), zap.String("movie_id", event.MovieID))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.conn == nil || p.conn.IsClosed() {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Error("failed to drain nats connection", zap.Error(err))
		p.conn.Close()
	}
}
