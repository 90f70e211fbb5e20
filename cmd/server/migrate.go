package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
	"github.com/ghxstloner/gest-viaticos-panama-backend/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		db, err := database.New(database.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		migrator := database.NewMigrator(db, logger)

		if status, _ := cmd.Flags().GetBool("status"); status {
			return printMigrationStatus(cmd, migrator)
		}

		applied, err := migrator.RunMigrations(sqlite.Migrations, sqlite.MigrationsDir)
		if err != nil {
			return err
		}
		logger.Info("Migrations applied", zap.Int("count", applied), zap.String("path", cfg.Database.Path))
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
		return nil
	},
}

func printMigrationStatus(cmd *cobra.Command, migrator *database.Migrator) error {
	migrations, err := database.LoadMigrations(sqlite.Migrations, sqlite.MigrationsDir)
	if err != nil {
		return err
	}
	applied, err := migrator.AppliedVersions()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		state := "pending"
		if applied[m.Version] {
			state = "applied"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%03d %-32s %s\n", m.Version, m.Name, state)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "List migrations and whether they are applied")
}
