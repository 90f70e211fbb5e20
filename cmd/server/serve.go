package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/container"
	httpapi "github.com/ghxstloner/gest-viaticos-panama-backend/internal/interfaces/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Starts the workflow engine and exposes the action, history and inbox endpoints over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
		if err != nil {
			return err
		}
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		defer func() {
			if err := c.Close(); err != nil {
				logger.Error("Shutdown completed with errors", zap.Error(err))
			}
		}()

		logger.Info("Starting travel allowance workflow service",
			zap.String("version", "1.0.0"),
			zap.Int("port", cfg.Server.Port))

		auth := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, c.Registry())
		server := httpapi.NewServer(httpapi.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			Mode:            cfg.Server.Mode,
			MetricsEnabled:  cfg.Metrics.Enabled,
			MetricsPath:     cfg.Metrics.Path,
		}, c.WorkflowEngine(), c.Registry(), c, auth, c.NamedLogger("http"))

		return server.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Override server.port")
}
