package service

import (
	"context"
	"fmt"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/dispatcher"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HandlerName is the dispatcher registration name of the relay
const HandlerName = "notification-relay"

// NotificationService relays committed transitions to the notification sink
type NotificationService interface {
	// HandleTransition converts a transition event into a notification
	HandleTransition(ctx context.Context, evt *event.Event) error

	// Register subscribes the relay on the dispatcher
	Register(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	sink   port.NotificationSink
	logger Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(sink port.NotificationSink, logger Logger) NotificationService {
	return &notificationServiceImpl{
		sink:   sink,
		logger: logger,
	}
}

// Register subscribes the relay for committed transitions
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeTransitionCommitted, HandlerName, s.HandleTransition)
}

// HandleTransition sends a notification for one committed transition. Errors
// are logged and returned to the dispatcher, which never propagates them to
// the engine caller.
func (s *notificationServiceImpl) HandleTransition(ctx context.Context, evt *event.Event) error {
	if evt.Type != event.TypeTransitionCommitted {
		return nil
	}

	n := port.Notification{
		MissionID:     evt.MissionID,
		PreviousStage: evt.GetPayloadString(event.KeyPreviousStage),
		NewStage:      evt.GetPayloadString(event.KeyNewStage),
		Action:        evt.GetPayloadString(event.KeyAction),
		ActorID:       evt.GetPayloadString(event.KeyActorID),
		ActorName:     evt.GetPayloadString(event.KeyActorName),
		Summary:       evt.GetPayloadString(event.KeySummary),
		OccurredAt:    evt.Timestamp,
	}

	if err := s.sink.Notify(ctx, n); err != nil {
		s.logger.Error("Failed to send notification",
			"error", err,
			"mission_id", evt.MissionID,
			"event_id", evt.ID,
			"new_stage", n.NewStage,
		)
		return fmt.Errorf("notify: %w", err)
	}

	s.logger.Info("Notification sent",
		"mission_id", evt.MissionID,
		"previous_stage", n.PreviousStage,
		"new_stage", n.NewStage,
	)
	return nil
}
