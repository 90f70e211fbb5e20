// Package hrdb reads the organizational directory and the budget-code
// catalog from the PostgreSQL human-resources database.
package hrdb

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

//go:embed schema.sql
var schemaSQL string

// Config holds connection settings for the HR database
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration

	// CreateSchema creates the directory tables when absent. Used by tests
	// and local setups; production HR databases own their schema.
	CreateSchema bool
}

func (c *Config) defaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 5
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
}

// Store implements port.Directory and port.BudgetCatalog over pgx
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var (
	_ port.Directory     = (*Store)(nil)
	_ port.BudgetCatalog = (*Store)(nil)
)

// New connects to the HR database
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to HR database: %w", err)
	}

	s := &Store{pool: pool, logger: logger}

	if cfg.CreateSchema {
		if _, err := pool.Exec(ctx, schemaSQL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating HR schema: %w", err)
		}
	}

	logger.Info("HR database connection established")
	return s, nil
}

// DepartmentOf returns the department of personID
func (s *Store) DepartmentOf(ctx context.Context, personID string) (int64, error) {
	var deptID int64
	err := s.pool.QueryRow(ctx,
		`SELECT id_departamento FROM nompersonal WHERE cedula = $1`, personID,
	).Scan(&deptID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: person %s", workflow.ErrNotFound, personID)
	}
	if err != nil {
		s.logger.Error("Failed to look up department", zap.String("person_id", personID), zap.Error(err))
		return 0, fmt.Errorf("querying department: %w", err)
	}
	return deptID, nil
}

// ApproverChain returns the approvers of departmentID ordered by rank
func (s *Store) ApproverChain(ctx context.Context, departmentID int64) ([]port.Approver, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.cedula_aprobador, COALESCE(p.apenom, ''), a.orden
		FROM departamento_aprobadores a
		LEFT JOIN nompersonal p ON p.cedula = a.cedula_aprobador
		WHERE a.id_departamento = $1
		ORDER BY a.orden ASC
	`, departmentID)
	if err != nil {
		s.logger.Error("Failed to load approver chain", zap.Int64("department_id", departmentID), zap.Error(err))
		return nil, fmt.Errorf("querying approver chain: %w", err)
	}
	defer rows.Close()

	chain := []port.Approver{}
	for rows.Next() {
		var a port.Approver
		if err := rows.Scan(&a.PersonID, &a.Name, &a.Rank); err != nil {
			return nil, fmt.Errorf("scanning approver: %w", err)
		}
		chain = append(chain, a)
	}

	return chain, rows.Err()
}

// ValidCodes reports which of codes exist in the budget catalog
func (s *Store) ValidCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	result := make(map[string]bool, len(codes))
	if len(codes) == 0 {
		return result, nil
	}
	for _, code := range codes {
		result[code] = false
	}

	rows, err := s.pool.Query(ctx, `SELECT codcue FROM cwprecue WHERE codcue = ANY($1)`, codes)
	if err != nil {
		s.logger.Error("Failed to validate budget codes", zap.Strings("codes", codes), zap.Error(err))
		return nil, fmt.Errorf("querying budget codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning budget code: %w", err)
		}
		result[code] = true
	}

	return result, rows.Err()
}

// Ping verifies the pool can reach the database
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}
