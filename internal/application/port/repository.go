package port

import (
	"context"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
)

// MissionRepository defines persistence operations for Mission
type MissionRepository interface {
	Create(ctx context.Context, mission *entity.Mission) error
	GetByID(ctx context.Context, id int64) (*entity.Mission, error)

	// Update persists stage, slots, payment and flag columns. When
	// expectedStageID is non-zero the write only applies if the stored stage
	// still matches; a mismatch returns workflow.ErrInvalidTransition.
	Update(ctx context.Context, mission *entity.Mission, expectedStageID int) error

	// ListByStages returns missions whose current stage is one of stageIDs,
	// oldest first
	ListByStages(ctx context.Context, stageIDs []int, limit, offset int) ([]*entity.Mission, error)
}

// HistoryRepository defines append-only persistence for HistoryEntry
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.HistoryEntry) error
	ListByMission(ctx context.Context, missionID int64) ([]*entity.HistoryEntry, error)
}

// AllocationRepository defines persistence operations for BudgetAllocation
type AllocationRepository interface {
	// ReplaceForMission deletes the existing rows and inserts allocations
	ReplaceForMission(ctx context.Context, missionID int64, allocations []*entity.BudgetAllocation) error
	ListByMission(ctx context.Context, missionID int64) ([]*entity.BudgetAllocation, error)
}

// ApprovalRepository defines append-only persistence for ApprovalRecord
type ApprovalRepository interface {
	Append(ctx context.Context, record *entity.ApprovalRecord) error
	ListByMission(ctx context.Context, missionID int64) ([]*entity.ApprovalRecord, error)
}

// TransactionManager runs fn inside one database transaction. The
// transaction travels in ctx; fn returning an error rolls back.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
