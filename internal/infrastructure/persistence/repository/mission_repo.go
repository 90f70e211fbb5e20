package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
)

const missionColumns = `
	id, kind, beneficiary_id, objective, total_cents, approved_cents, stage_id,
	requires_countersignature, supervisor_approver, treasury_approver,
	budget_approver, accounting_approver, finance_approver, comptroller_approver,
	payment_method, payment_reference, payment_bank, accounting_voucher,
	countersign_number, paid_at, version, created_at, updated_at`

// MissionRepository implements port.MissionRepository
type MissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMissionRepository creates a new mission repository
func NewMissionRepository(db *sql.DB, logger *zap.Logger) port.MissionRepository {
	return &MissionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new mission
func (r *MissionRepository) Create(ctx context.Context, mission *entity.Mission) error {
	query := `
		INSERT INTO missions (
			kind, beneficiary_id, objective, total_cents, approved_cents, stage_id,
			requires_countersignature, supervisor_approver, treasury_approver,
			budget_approver, accounting_approver, finance_approver, comptroller_approver,
			payment_method, payment_reference, payment_bank, accounting_voucher,
			countersign_number, paid_at, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`

	if mission.CreatedAt.IsZero() {
		mission.CreatedAt = nowUTC()
	}
	if mission.UpdatedAt.IsZero() {
		mission.UpdatedAt = mission.CreatedAt
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(mission.Kind),
		mission.BeneficiaryID,
		mission.Objective,
		mission.Total.Cents(),
		nullMoney(mission.ApprovedAmount),
		mission.StageID,
		mission.RequiresCountersignature,
		mission.Approvers.Supervisor,
		mission.Approvers.Treasury,
		mission.Approvers.Budget,
		mission.Approvers.Accounting,
		mission.Approvers.Finance,
		mission.Approvers.Comptroller,
		mission.PaymentMethod,
		mission.PaymentReference,
		mission.PaymentBank,
		mission.AccountingVoucher,
		mission.CountersignNumber,
		nullTime(mission.PaidAt),
		mission.CreatedAt,
		mission.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create mission", zap.Error(err))
		return fmt.Errorf("failed to create mission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	mission.ID = id
	mission.Version = 1
	return nil
}

// GetByID retrieves a mission by ID
func (r *MissionRepository) GetByID(ctx context.Context, id int64) (*entity.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE id = ?`

	mission, err := scanMission(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mission %d", workflow.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get mission by ID", zap.Int64("mission_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}

	return mission, nil
}

// Update persists the mutable columns and bumps the version
func (r *MissionRepository) Update(ctx context.Context, mission *entity.Mission, expectedStageID int) error {
	query := `
		UPDATE missions SET
			approved_cents = ?, stage_id = ?, requires_countersignature = ?,
			supervisor_approver = ?, treasury_approver = ?, budget_approver = ?,
			accounting_approver = ?, finance_approver = ?, comptroller_approver = ?,
			payment_method = ?, payment_reference = ?, payment_bank = ?,
			accounting_voucher = ?, countersign_number = ?, paid_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND (? = 0 OR stage_id = ?)
		RETURNING version
	`

	if mission.UpdatedAt.IsZero() {
		mission.UpdatedAt = nowUTC()
	}

	var version int64
	err := r.getExecutor(ctx).QueryRowContext(ctx, query,
		nullMoney(mission.ApprovedAmount),
		mission.StageID,
		mission.RequiresCountersignature,
		mission.Approvers.Supervisor,
		mission.Approvers.Treasury,
		mission.Approvers.Budget,
		mission.Approvers.Accounting,
		mission.Approvers.Finance,
		mission.Approvers.Comptroller,
		mission.PaymentMethod,
		mission.PaymentReference,
		mission.PaymentBank,
		mission.AccountingVoucher,
		mission.CountersignNumber,
		nullTime(mission.PaidAt),
		mission.UpdatedAt,
		mission.ID,
		expectedStageID,
		expectedStageID,
	).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, mission.ID); getErr != nil {
			return getErr
		}
		r.logger.Warn("Mission stage changed concurrently",
			zap.Int64("mission_id", mission.ID),
			zap.Int("expected_stage_id", expectedStageID))
		return fmt.Errorf("%w: mission %d changed stage concurrently", workflow.ErrInvalidTransition, mission.ID)
	}
	if err != nil {
		r.logger.Error("Failed to update mission", zap.Int64("mission_id", mission.ID), zap.Error(err))
		return fmt.Errorf("failed to update mission: %w", err)
	}

	mission.Version = version
	return nil
}

// ListByStages returns missions currently in any of stageIDs, oldest first.
// A non-positive limit returns every match.
func (r *MissionRepository) ListByStages(ctx context.Context, stageIDs []int, limit, offset int) ([]*entity.Mission, error) {
	if len(stageIDs) == 0 {
		return []*entity.Mission{}, nil
	}
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(stageIDs)), ",")
	query := `SELECT ` + missionColumns + ` FROM missions WHERE stage_id IN (` + placeholders + `) ORDER BY id ASC LIMIT ? OFFSET ?`

	args := make([]interface{}, 0, len(stageIDs)+2)
	for _, id := range stageIDs {
		args = append(args, id)
	}
	args = append(args, limit, offset)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list missions by stage", zap.Ints("stage_ids", stageIDs), zap.Error(err))
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	missions := []*entity.Mission{}
	for rows.Next() {
		mission, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, mission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating missions: %w", err)
	}

	return missions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMission(row rowScanner) (*entity.Mission, error) {
	var mission entity.Mission
	var kind string
	var total int64
	var approved sql.NullInt64
	var paidAt sql.NullTime

	err := row.Scan(
		&mission.ID,
		&kind,
		&mission.BeneficiaryID,
		&mission.Objective,
		&total,
		&approved,
		&mission.StageID,
		&mission.RequiresCountersignature,
		&mission.Approvers.Supervisor,
		&mission.Approvers.Treasury,
		&mission.Approvers.Budget,
		&mission.Approvers.Accounting,
		&mission.Approvers.Finance,
		&mission.Approvers.Comptroller,
		&mission.PaymentMethod,
		&mission.PaymentReference,
		&mission.PaymentBank,
		&mission.AccountingVoucher,
		&mission.CountersignNumber,
		&paidAt,
		&mission.Version,
		&mission.CreatedAt,
		&mission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	mission.Kind = workflow.RequestKind(kind)
	mission.Total = entity.Money(total)
	if approved.Valid {
		amount := entity.Money(approved.Int64)
		mission.ApprovedAmount = &amount
	}
	if paidAt.Valid {
		mission.PaidAt = &paidAt.Time
	}

	return &mission, nil
}

// getExecutor returns the transaction from context or the database
func (r *MissionRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}
