package messaging

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
)

// NATSSink publishes notifications on NATS core subjects
// "<prefix>.<new stage>"
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// DialNATS connects to url with reconnects enabled
func DialNATS(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NewNATSSink creates a sink over an established connection
func NewNATSSink(conn *nats.Conn, prefix string, logger *zap.Logger) *NATSSink {
	return &NATSSink{conn: conn, prefix: prefix, logger: logger}
}

// Notify publishes n as JSON
func (s *NATSSink) Notify(ctx context.Context, n port.Notification) error {
	data, err := encode(n)
	if err != nil {
		return err
	}

	subject := subjectFor(s.prefix, n)
	if err := s.conn.Publish(subject, data); err != nil {
		s.logger.Warn("Failed to publish notification",
			zap.String("subject", subject),
			zap.Int64("mission_id", n.MissionID),
			zap.Error(err))
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

var _ port.NotificationSink = (*NATSSink)(nil)
