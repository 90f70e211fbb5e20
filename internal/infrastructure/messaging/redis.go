package messaging

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
)

// RedisSink publishes notifications on Redis pub/sub channels
// "<prefix>.<new stage>"
type RedisSink struct {
	client *backend.Client
	prefix string
	logger *zap.Logger
}

// NewRedisSink creates a Redis pub/sub sink
func NewRedisSink(client *backend.Client, prefix string, logger *zap.Logger) *RedisSink {
	return &RedisSink{client: client, prefix: prefix, logger: logger}
}

// Notify publishes n as JSON
func (s *RedisSink) Notify(ctx context.Context, n port.Notification) error {
	data, err := encode(n)
	if err != nil {
		return err
	}

	channel := subjectFor(s.prefix, n)
	if err := s.client.Publish(ctx, channel, data).Err(); err != nil {
		s.logger.Warn("Failed to publish notification",
			zap.String("channel", channel),
			zap.Int64("mission_id", n.MissionID),
			zap.Error(err))
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

var _ port.NotificationSink = (*RedisSink)(nil)
