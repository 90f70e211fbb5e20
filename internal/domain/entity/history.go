package entity

import "time"

// HistoryEntry is an append-only audit record of one executed transition.
// ActorID is empty when the acting party is not accounted inside the system.
type HistoryEntry struct {
	ID              int64                  `json:"id"`
	MissionID       int64                  `json:"mission_id"`
	ActorID         string                 `json:"actor_id,omitempty"`
	ActorKind       ActorKind              `json:"actor_kind"`
	PreviousStageID int                    `json:"previous_stage_id"`
	NewStageID      int                    `json:"new_stage_id"`
	Action          string                 `json:"action"`
	Comment         string                 `json:"comment,omitempty"`
	ExtraData       map[string]interface{} `json:"extra_data,omitempty"`
	ActorIP         string                 `json:"actor_ip,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// ApprovalRecord keeps every forward approval per stage, so a department's
// earlier approver survives a return and re-approval by someone else.
type ApprovalRecord struct {
	ID         int64        `json:"id"`
	MissionID  int64        `json:"mission_id"`
	StageID    int          `json:"stage_id"`
	Slot       ApproverSlot `json:"slot"`
	ApproverID string       `json:"approver_id"`
	Action     string       `json:"action"`
	CreatedAt  time.Time    `json:"created_at"`
}

// BudgetAllocation is a code-tagged portion of the mission total
type BudgetAllocation struct {
	ID          int64  `json:"id"`
	MissionID   int64  `json:"mission_id"`
	Code        string `json:"code"`
	Amount      Money  `json:"amount"`
	Description string `json:"description,omitempty"`
}

// SystemConfig represents a typed tunable stored as text
type SystemConfig struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}
