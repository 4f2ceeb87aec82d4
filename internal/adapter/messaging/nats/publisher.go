package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
)

// Publisher sends domain events as JSON on plain NATS subjects.
type Publisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

func NewPublisher(url string, log *logger.Logger) (*Publisher, error) {
	log = log.Named("nats")
	conn, err := nats.Connect(url,
		nats.Name("places-service"),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Info("Successfully connected to NATS", "url", conn.ConnectedUrl())
	return &Publisher{conn: conn, logger: log}, nil
}

func (p *Publisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish NATS message for %s: %w", subject, err)
	}
	p.logger.Debug("Published NATS message", "subject", subject)
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("NATS drain failed, closing", "error", err)
		p.conn.Close()
	}
}
