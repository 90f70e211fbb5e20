package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
)

// Directory implements port.Directory and port.BudgetCatalog over the local
// people, department_approvers and budget_codes tables
type Directory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDirectory creates a new SQLite-backed directory
func NewDirectory(db *sql.DB, logger *zap.Logger) *Directory {
	return &Directory{
		db:     db,
		logger: logger,
	}
}

// DepartmentOf returns the department of personID
func (d *Directory) DepartmentOf(ctx context.Context, personID string) (int64, error) {
	var deptID int64
	err := sqlite.ExecutorFrom(ctx, d.db).QueryRowContext(ctx,
		`SELECT department_id FROM people WHERE person_id = ?`, personID,
	).Scan(&deptID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: person %s", workflow.ErrNotFound, personID)
	}
	if err != nil {
		d.logger.Error("Failed to look up department", zap.String("person_id", personID), zap.Error(err))
		return 0, fmt.Errorf("failed to look up department: %w", err)
	}
	return deptID, nil
}

// ApproverChain returns the approvers of departmentID ordered by rank
func (d *Directory) ApproverChain(ctx context.Context, departmentID int64) ([]port.Approver, error) {
	rows, err := sqlite.ExecutorFrom(ctx, d.db).QueryContext(ctx, `
		SELECT person_id, name, rank
		FROM department_approvers
		WHERE department_id = ?
		ORDER BY rank ASC
	`, departmentID)
	if err != nil {
		d.logger.Error("Failed to load approver chain", zap.Int64("department_id", departmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to load approver chain: %w", err)
	}
	defer rows.Close()

	chain := []port.Approver{}
	for rows.Next() {
		var a port.Approver
		if err := rows.Scan(&a.PersonID, &a.Name, &a.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan approver: %w", err)
		}
		chain = append(chain, a)
	}

	return chain, rows.Err()
}

// ValidCodes reports which of codes are active budget lines
func (d *Directory) ValidCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	result := make(map[string]bool, len(codes))
	if len(codes) == 0 {
		return result, nil
	}

	args := make([]interface{}, 0, len(codes))
	for _, code := range codes {
		result[code] = false
		args = append(args, code)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(codes)), ",")
	rows, err := sqlite.ExecutorFrom(ctx, d.db).QueryContext(ctx,
		`SELECT code FROM budget_codes WHERE active = 1 AND code IN (`+placeholders+`)`, args...)
	if err != nil {
		d.logger.Error("Failed to validate budget codes", zap.Strings("codes", codes), zap.Error(err))
		return nil, fmt.Errorf("failed to validate budget codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan budget code: %w", err)
		}
		result[code] = true
	}

	return result, rows.Err()
}

var (
	_ port.Directory     = (*Directory)(nil)
	_ port.BudgetCatalog = (*Directory)(nil)
)
