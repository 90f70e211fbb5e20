package workflow

import (
	"context"
	"time"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// Engine executes workflow actions on missions
type Engine interface {
	// Execute runs one action as a single atomic unit
	Execute(ctx context.Context, cmd Command) (*Outcome, error)

	// History returns the mission's audit trail, oldest first
	History(ctx context.Context, missionID int64) ([]*entity.HistoryEntry, error)

	// AvailableActions lists the actions the actor may take on the mission now
	AvailableActions(ctx context.Context, missionID int64, actor entity.Actor) ([]domainwf.Action, error)

	// Inbox lists missions sitting in stages where the actor can act
	Inbox(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Mission, error)
}

// Command is one workflow action issued by an actor
type Command struct {
	MissionID int64
	Actor     entity.Actor
	Action    domainwf.Action
	Comment   string
	Payload   map[string]interface{}
	ClientIP  string
}

// Outcome reports a committed transition
type Outcome struct {
	MissionID      int64          `json:"mission_id"`
	Action         string         `json:"action"`
	PreviousStage  domainwf.Stage `json:"previous_stage"`
	NewStage       domainwf.Stage `json:"new_stage"`
	AllocatedTotal *entity.Money  `json:"allocated_total,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	ActorName      string         `json:"actor_name"`
	Summary        string         `json:"summary"`
	HistoryID      int64          `json:"history_id"`
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics records engine activity
type Metrics interface {
	// ObserveAction records one Execute call with its result class
	ObserveAction(action, class string, elapsed time.Duration)
	// ObserveTransition records a committed stage change
	ObserveTransition(from, to string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAction(string, string, time.Duration) {}
func (nopMetrics) ObserveTransition(string, string)            {}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
