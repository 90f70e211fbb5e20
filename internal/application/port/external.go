package port

import (
	"context"
	"time"
)

// Approver is one link in a department's approval chain
type Approver struct {
	PersonID string
	Name     string
	Rank     int
}

// Directory answers organizational-hierarchy questions
type Directory interface {
	// DepartmentOf returns the department of a person. Unknown persons
	// return workflow.ErrNotFound.
	DepartmentOf(ctx context.Context, personID string) (int64, error)

	// ApproverChain returns a department's approvers ordered by rank;
	// rank 1 is the line supervisor
	ApproverChain(ctx context.Context, departmentID int64) ([]Approver, error)
}

// BudgetCatalog validates budget codes
type BudgetCatalog interface {
	// ValidCodes reports, for each code, whether it is a known budget line
	ValidCodes(ctx context.Context, codes []string) (map[string]bool, error)
}

// ConfigStore provides typed tunables. A missing key or a value that does
// not parse as the requested type returns workflow.ErrConfiguration.
type ConfigStore interface {
	Decimal(ctx context.Context, key string) (int64, error)
	Int(ctx context.Context, key string) (int64, error)
	Bool(ctx context.Context, key string) (bool, error)
	String(ctx context.Context, key string) (string, error)
}

// Notification is the payload handed to a NotificationSink after commit
type Notification struct {
	MissionID     int64     `json:"mission_id"`
	PreviousStage string    `json:"previous_stage"`
	NewStage      string    `json:"new_stage"`
	Action        string    `json:"action"`
	ActorID       string    `json:"actor_id,omitempty"`
	ActorName     string    `json:"actor_name"`
	Summary       string    `json:"summary"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NotificationSink delivers notifications to an external collaborator
type NotificationSink interface {
	Notify(ctx context.Context, n Notification) error
}

// MissionLocker serializes work on one mission across processes
type MissionLocker interface {
	// Lock acquires the mission lock and returns its release function
	Lock(ctx context.Context, missionID int64) (unlock func(), err error)
}
