package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

func TestConfigStore_SeededValues(t *testing.T) {
	db, _ := setupTestDB(t)
	store := NewConfigStore(db, zap.NewNop())
	ctx := context.Background()

	threshold, err := store.Decimal(ctx, entity.ConfigCountersignThreshold)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), threshold)

	review, err := store.Bool(ctx, entity.ConfigAccountingReview)
	require.NoError(t, err)
	assert.False(t, review)

	days, err := store.Int(ctx, entity.ConfigSubmissionDays)
	require.NoError(t, err)
	assert.Equal(t, int64(10), days)

	ceiling, err := store.Decimal(ctx, entity.ConfigCashCeiling)
	require.NoError(t, err)
	assert.Zero(t, ceiling)
}

func TestConfigStore_SetAppliesToNextRead(t *testing.T) {
	db, _ := setupTestDB(t)
	store := NewConfigStore(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, entity.SystemConfig{
		Key:   entity.ConfigCountersignThreshold,
		Value: "1000.00",
		Type:  entity.ConfigTypeDecimal,
	}))

	threshold, err := store.Decimal(ctx, entity.ConfigCountersignThreshold)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), threshold)

	require.NoError(t, store.Set(ctx, entity.SystemConfig{
		Key:   entity.ConfigAccountingReview,
		Value: "yes",
		Type:  entity.ConfigTypeBoolean,
	}))
	review, err := store.Bool(ctx, entity.ConfigAccountingReview)
	require.NoError(t, err)
	assert.True(t, review)
}

func TestConfigStore_Errors(t *testing.T) {
	db, _ := setupTestDB(t)
	store := NewConfigStore(db, zap.NewNop())
	ctx := context.Background()

	_, err := store.Decimal(ctx, "NO_EXISTE")
	assert.ErrorIs(t, err, workflow.ErrConfiguration)
	assert.ErrorIs(t, err, port.ErrConfigMissing)

	require.NoError(t, store.Set(ctx, entity.SystemConfig{Key: "ROTO", Value: "abc", Type: entity.ConfigTypeDecimal}))
	_, err = store.Decimal(ctx, "ROTO")
	assert.ErrorIs(t, err, workflow.ErrConfiguration)
	assert.NotErrorIs(t, err, port.ErrConfigMissing)

	v, err := port.BoolWithDefault(ctx, store, "NO_EXISTE", true)
	require.NoError(t, err)
	assert.True(t, v)

	s, err := store.String(ctx, "ROTO")
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}
