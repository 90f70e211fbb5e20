// Package messaging delivers workflow notifications to external
// collaborators after a transition commits.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
)

// DefaultSubjectPrefix prefixes NATS subjects and Redis channels
const DefaultSubjectPrefix = "notifications.viaticos"

// subjectFor builds "<prefix>.<new stage in lower case>"
func subjectFor(prefix string, n port.Notification) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + strings.ToLower(n.NewStage)
}

func encode(n port.Notification) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return data, nil
}

// LogSink writes notifications to the log. Used when no broker is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-only sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify logs the notification
func (s *LogSink) Notify(ctx context.Context, n port.Notification) error {
	s.logger.Info("Mission notification",
		zap.Int64("mission_id", n.MissionID),
		zap.String("previous_stage", n.PreviousStage),
		zap.String("new_stage", n.NewStage),
		zap.String("action", n.Action),
		zap.String("actor", n.ActorName),
		zap.String("summary", n.Summary))
	return nil
}

// FanoutSink delivers to every sink and joins their errors
type FanoutSink struct {
	sinks []port.NotificationSink
}

// NewFanoutSink creates a sink delivering to all of sinks
func NewFanoutSink(sinks ...port.NotificationSink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

// Notify delivers n to each sink. One failing sink does not stop the rest.
func (s *FanoutSink) Notify(ctx context.Context, n port.Notification) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ port.NotificationSink = (*LogSink)(nil)
	_ port.NotificationSink = (*FanoutSink)(nil)
)
