package config

import (
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		Workflow: container.WorkflowConfig{
			AllocationPolicy:     c.Workflow.AllocationPolicy,
			OptimisticStageCheck: c.Workflow.OptimisticStageCheck,
			CatalogPath:          c.Workflow.CatalogPath,
			TunablesSource:       c.Workflow.TunablesSource,
			Tunables:             c.Workflow.Tunables,
			HandlerTimeout:       c.Workflow.HandlerTimeout,
		},
		Directory: container.DirectoryConfig{
			Driver:       c.Directory.Driver,
			DSN:          c.Directory.DSN,
			MaxConns:     c.Directory.MaxConns,
			CreateSchema: c.Directory.CreateSchema,
		},
		Notify: container.NotifyConfig{
			Sinks:         c.Notify.Sinks,
			SubjectPrefix: c.Notify.SubjectPrefix,
			NATSURL:       c.Notify.NATSURL,
		},
		Redis: container.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		},
		Lock: container.LockConfig{
			Enabled: c.Lock.Enabled,
			TTL:     c.Lock.TTL,
			Wait:    c.Lock.Wait,
		},
		Tracing: container.TracingConfig{
			Enabled:     c.Tracing.Enabled,
			Endpoint:    c.Tracing.Endpoint,
			ServiceName: c.Tracing.ServiceName,
			SampleRatio: c.Tracing.SampleRatio,
		},
		Metrics: container.MetricsConfig{
			Enabled: c.Metrics.Enabled,
		},
	}
}
