package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// AuditInput describes one executed transition
type AuditInput struct {
	MissionID        int64
	Actor            entity.Actor
	AsLineSupervisor bool
	From             *entity.Stage
	To               *entity.Stage
	Action           domainwf.Action
	Comment          string
	ExtraData        map[string]interface{}
	ActorIP          string
}

// AuditWriter appends history entries inside the caller's transaction
type AuditWriter struct {
	history port.HistoryRepository
	clock   func() time.Time
}

// NewAuditWriter creates an audit writer
func NewAuditWriter(history port.HistoryRepository, clock func() time.Time) *AuditWriter {
	if clock == nil {
		clock = time.Now
	}
	return &AuditWriter{history: history, clock: clock}
}

// Record appends exactly one history entry
func (w *AuditWriter) Record(ctx context.Context, in AuditInput) (*entity.HistoryEntry, error) {
	entry := &entity.HistoryEntry{
		MissionID:       in.MissionID,
		ActorID:         in.Actor.AttributionID(in.AsLineSupervisor),
		ActorKind:       in.Actor.Kind(),
		PreviousStageID: in.From.ID,
		NewStageID:      in.To.ID,
		Action:          in.Action.String(),
		Comment:         in.Comment,
		ExtraData:       in.ExtraData,
		ActorIP:         in.ActorIP,
		Timestamp:       w.clock(),
	}

	if err := w.history.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return entry, nil
}
