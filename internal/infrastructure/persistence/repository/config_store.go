package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
)

// ConfigStore implements port.ConfigStore over configuraciones_sistema.
// Every lookup hits the table so edits apply to the next action.
type ConfigStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewConfigStore creates a new config store
func NewConfigStore(db *sql.DB, logger *zap.Logger) *ConfigStore {
	return &ConfigStore{
		db:     db,
		logger: logger,
	}
}

// Get returns the raw entry for key
func (s *ConfigStore) Get(ctx context.Context, key string) (*entity.SystemConfig, error) {
	query := `
		SELECT clave, valor, tipo_dato, descripcion, updated_at
		FROM configuraciones_sistema
		WHERE clave = ?
	`

	var cfg entity.SystemConfig
	err := sqlite.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, key).Scan(
		&cfg.Key,
		&cfg.Value,
		&cfg.Type,
		&cfg.Description,
		&cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %w: %s", workflow.ErrConfiguration, port.ErrConfigMissing, key)
	}
	if err != nil {
		s.logger.Error("Failed to read config", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to read config %s: %w", key, err)
	}

	return &cfg, nil
}

// Set upserts a tunable
func (s *ConfigStore) Set(ctx context.Context, cfg entity.SystemConfig) error {
	query := `
		INSERT INTO configuraciones_sistema (clave, valor, tipo_dato, descripcion, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(clave) DO UPDATE SET
			valor = excluded.valor,
			tipo_dato = excluded.tipo_dato,
			descripcion = excluded.descripcion,
			updated_at = excluded.updated_at
	`

	if _, err := sqlite.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		cfg.Key, cfg.Value, cfg.Type, cfg.Description, nowUTC(),
	); err != nil {
		s.logger.Error("Failed to write config", zap.String("key", cfg.Key), zap.Error(err))
		return fmt.Errorf("failed to write config %s: %w", cfg.Key, err)
	}
	return nil
}

// Decimal returns the value of key in cents
func (s *ConfigStore) Decimal(ctx context.Context, key string) (int64, error) {
	cfg, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	v, err := cfg.DecimalValue()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", workflow.ErrConfiguration, key, err)
	}
	return v.Cents(), nil
}

// Int returns the value of key as an integer
func (s *ConfigStore) Int(ctx context.Context, key string) (int64, error) {
	cfg, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	v, err := cfg.IntValue()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", workflow.ErrConfiguration, key, err)
	}
	return v, nil
}

// Bool returns the value of key as a boolean
func (s *ConfigStore) Bool(ctx context.Context, key string) (bool, error) {
	cfg, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	v, err := cfg.BoolValue()
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", workflow.ErrConfiguration, key, err)
	}
	return v, nil
}

// String returns the raw value of key
func (s *ConfigStore) String(ctx context.Context, key string) (string, error) {
	cfg, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return cfg.Value, nil
}

var _ port.ConfigStore = (*ConfigStore)(nil)
