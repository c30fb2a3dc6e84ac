package broker

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher sends a payload on a subject
type Publisher interface {
	Publish(subject string, data []byte) error
	Close()
}

// natsConn is the subset of *nats.Conn the producer relies on
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
	IsConnected() bool
}

type NATSProducer struct {
	conn   natsConn
	logger *zap.Logger
}

// InitProducer connects to the NATS server at url
func InitProducer(url string, logger *zap.Logger) (*NATSProducer, error) {
	conn, err := nats.Connect(url,
		nats.Name("taskmanager-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("nats producer initialized", zap.String("url", url))
	return newProducer(conn, logger), nil
}

func newProducer(conn natsConn, logger *zap.Logger) *NATSProducer {
	return &NATSProducer{conn: conn, logger: logger}
}

func (p *NATSProducer) Publish(subject string, data []byte) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	p.logger.Debug("published message", zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSProducer) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", zap.Error(err))
	}
}
