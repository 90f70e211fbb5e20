// Package tunables provides a ConfigStore backed by the application's
// configuration file, for deployments without a configuraciones_sistema table.
package tunables

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

// StaticStore implements port.ConfigStore over a fixed key/value map.
// Keys are upper-cased since viper folds map keys to lower case.
type StaticStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStaticStore creates a store from values
func NewStaticStore(values map[string]string) *StaticStore {
	s := &StaticStore{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[strings.ToUpper(k)] = v
	}
	return s
}

// FromViper reads the string map under key, e.g. "workflow.tunables"
func FromViper(v *viper.Viper, key string) *StaticStore {
	return NewStaticStore(v.GetStringMapString(key))
}

// Set replaces one value
func (s *StaticStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[strings.ToUpper(key)] = value
}

func (s *StaticStore) lookup(key string) (entity.SystemConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[strings.ToUpper(key)]
	if !ok {
		return entity.SystemConfig{}, fmt.Errorf("%w: %w: %s", workflow.ErrConfiguration, port.ErrConfigMissing, key)
	}
	return entity.SystemConfig{Key: key, Value: v}, nil
}

// Decimal returns the value of key in cents
func (s *StaticStore) Decimal(ctx context.Context, key string) (int64, error) {
	cfg, err := s.lookup(key)
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
func (s *StaticStore) Int(ctx context.Context, key string) (int64, error) {
	cfg, err := s.lookup(key)
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
func (s *StaticStore) Bool(ctx context.Context, key string) (bool, error) {
	cfg, err := s.lookup(key)
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
func (s *StaticStore) String(ctx context.Context, key string) (string, error) {
	cfg, err := s.lookup(key)
	if err != nil {
		return "", err
	}
	return cfg.Value, nil
}

var _ port.ConfigStore = (*StaticStore)(nil)
