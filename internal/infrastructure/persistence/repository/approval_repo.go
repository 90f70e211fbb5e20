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

// ApprovalRepository implements port.ApprovalRepository
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval record repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one approval record
func (r *ApprovalRepository) Append(ctx context.Context, record *entity.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (mission_id, stage_id, slot, approver_id, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = nowUTC()
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		record.MissionID,
		record.StageID,
		string(record.Slot),
		record.ApproverID,
		record.Action,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append approval record",
			zap.Int64("mission_id", record.MissionID),
			zap.Error(err))
		return fmt.Errorf("failed to append approval record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// ListByMission returns every approval of a mission in insertion order
func (r *ApprovalRepository) ListByMission(ctx context.Context, missionID int64) ([]*entity.ApprovalRecord, error) {
	query := `
		SELECT id, mission_id, stage_id, slot, approver_id, action, created_at
		FROM approval_records
		WHERE mission_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to list approval records", zap.Int64("mission_id", missionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approval records: %w", err)
	}
	defer rows.Close()

	records := []*entity.ApprovalRecord{}
	for rows.Next() {
		var record entity.ApprovalRecord
		var slot string
		if err := rows.Scan(
			&record.ID,
			&record.MissionID,
			&record.StageID,
			&slot,
			&record.ApproverID,
			&record.Action,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		record.Slot = entity.ApproverSlot(slot)
		records = append(records, &record)
	}

	return records, rows.Err()
}
