package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository. Rows are never
// updated or deleted; the schema enforces it with triggers.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one history record
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	query := `
		INSERT INTO mission_history (
			mission_id, actor_id, actor_kind, previous_stage_id, new_stage_id,
			action, comment, extra_data, actor_ip, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var extra sql.NullString
	if len(entry.ExtraData) > 0 {
		data, err := json.Marshal(entry.ExtraData)
		if err != nil {
			return fmt.Errorf("failed to encode extra data: %w", err)
		}
		extra = sql.NullString{String: string(data), Valid: true}
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = nowUTC()
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		entry.MissionID,
		nullString(entry.ActorID),
		string(entry.ActorKind),
		entry.PreviousStageID,
		entry.NewStageID,
		entry.Action,
		entry.Comment,
		extra,
		nullString(entry.ActorIP),
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append history record",
			zap.Int64("mission_id", entry.MissionID),
			zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ListByMission returns the trail of a mission in insertion order
func (r *HistoryRepository) ListByMission(ctx context.Context, missionID int64) ([]*entity.HistoryEntry, error) {
	query := `
		SELECT id, mission_id, actor_id, actor_kind, previous_stage_id, new_stage_id,
			action, comment, extra_data, actor_ip, created_at
		FROM mission_history
		WHERE mission_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to list history", zap.Int64("mission_id", missionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []*entity.HistoryEntry{}
	for rows.Next() {
		var entry entity.HistoryEntry
		var actorID, extra, actorIP sql.NullString
		var kind string

		if err := rows.Scan(
			&entry.ID,
			&entry.MissionID,
			&actorID,
			&kind,
			&entry.PreviousStageID,
			&entry.NewStageID,
			&entry.Action,
			&entry.Comment,
			&extra,
			&actorIP,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}

		entry.ActorID = actorID.String
		entry.ActorKind = entity.ActorKind(kind)
		entry.ActorIP = actorIP.String
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &entry.ExtraData); err != nil {
				return nil, fmt.Errorf("failed to decode extra data of history %d: %w", entry.ID, err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}
