package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
	"github.com/ghxstloner/gest-viaticos-panama-backend/pkg/database"
)

func setupTestDB(t *testing.T) (*sql.DB, *sqlite.DB) {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).RunMigrations(sqlite.Migrations, sqlite.MigrationsDir)
	require.NoError(t, err)

	return db.DB, sqlite.NewDB(db.DB, logger)
}

func newTestMission(t *testing.T, db *sql.DB, stageID int) *entity.Mission {
	t.Helper()

	mission := &entity.Mission{
		Kind:          workflow.KindFullExpense,
		BeneficiaryID: "8-100-1",
		Objective:     "Gira de inspección a Chiriquí",
		Total:         entity.Money(125050),
		StageID:       stageID,
		CreatedAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewMissionRepository(db, zap.NewNop()).Create(context.Background(), mission))
	return mission
}
