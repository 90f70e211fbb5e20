package dispatcher

import (
	"context"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for listing and logs
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
