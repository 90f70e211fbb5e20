package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
)

// AllocationRepository implements port.AllocationRepository
type AllocationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAllocationRepository creates a new budget allocation repository
func NewAllocationRepository(db *sql.DB, logger *zap.Logger) port.AllocationRepository {
	return &AllocationRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceForMission swaps the allocation set of a mission. Callers run it
// inside a transaction so the delete and inserts land together.
func (r *AllocationRepository) ReplaceForMission(ctx context.Context, missionID int64, allocations []*entity.BudgetAllocation) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM budget_allocations WHERE mission_id = ?`, missionID); err != nil {
		r.logger.Error("Failed to clear allocations", zap.Int64("mission_id", missionID), zap.Error(err))
		return fmt.Errorf("failed to clear allocations: %w", err)
	}

	query := `
		INSERT INTO budget_allocations (mission_id, code, amount_cents, description)
		VALUES (?, ?, ?, ?)
	`
	for _, alloc := range allocations {
		result, err := exec.ExecContext(ctx, query, missionID, alloc.Code, alloc.Amount.Cents(), alloc.Description)
		if err != nil {
			r.logger.Error("Failed to insert allocation",
				zap.Int64("mission_id", missionID),
				zap.String("code", alloc.Code),
				zap.Error(err))
			return fmt.Errorf("failed to insert allocation: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		alloc.ID = id
		alloc.MissionID = missionID
	}

	return nil
}

// ListByMission returns the allocations of a mission
func (r *AllocationRepository) ListByMission(ctx context.Context, missionID int64) ([]*entity.BudgetAllocation, error) {
	query := `
		SELECT id, mission_id, code, amount_cents, description
		FROM budget_allocations
		WHERE mission_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to list allocations", zap.Int64("mission_id", missionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	allocations := []*entity.BudgetAllocation{}
	for rows.Next() {
		var alloc entity.BudgetAllocation
		var cents int64
		if err := rows.Scan(&alloc.ID, &alloc.MissionID, &alloc.Code, &cents, &alloc.Description); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		alloc.Amount = entity.Money(cents)
		allocations = append(allocations, &alloc)
	}

	return allocations, rows.Err()
}
