// Package container provides dependency injection and lifecycle management
// for the mission approval backend.
package container

import (
	"fmt"
	"time"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/workflow"
)

// Directory drivers
const (
	DirectorySQLite   = "sqlite"
	DirectoryPostgres = "postgres"
)

// Notification sink names
const (
	SinkLog   = "log"
	SinkNATS  = "nats"
	SinkRedis = "redis"
)

// Tunable sources
const (
	TunablesDatabase = "database"
	TunablesStatic   = "static"
)

// Config holds all configuration for the Container.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Workflow engine configuration
	Workflow WorkflowConfig

	// Directory and budget catalog source
	Directory DirectoryConfig

	// Notification delivery
	Notify NotifyConfig

	// Redis connection, shared by the lock and the Redis sink
	Redis RedisConfig

	// Per-mission distributed lock
	Lock LockConfig

	// Tracing configuration
	Tracing TracingConfig

	// Metrics configuration
	Metrics MetricsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// AutoMigrate applies the embedded migrations on start
	AutoMigrate bool
}

// WorkflowConfig tunes the workflow engine.
type WorkflowConfig struct {
	// AllocationPolicy is "allow_divergence" or "require_match"
	AllocationPolicy string

	// OptimisticStageCheck rejects writes when the stage moved underneath
	OptimisticStageCheck bool

	// CatalogPath overrides the embedded stage/role catalog
	CatalogPath string

	// TunablesSource is "database" or "static"
	TunablesSource string

	// Tunables holds static values when TunablesSource is "static"
	Tunables map[string]string

	// HandlerTimeout bounds each asynchronous event handler
	HandlerTimeout time.Duration
}

// DirectoryConfig selects where the org hierarchy and budget codes live.
type DirectoryConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string

	// DSN of the HR PostgreSQL database
	DSN string

	// MaxConns caps the pgx pool
	MaxConns int32

	// CreateSchema creates the HR tables when absent
	CreateSchema bool
}

// NotifyConfig holds notification sink settings.
type NotifyConfig struct {
	// Sinks lists the enabled sinks: log, nats, redis
	Sinks []string

	// SubjectPrefix prefixes NATS subjects and Redis channels
	SubjectPrefix string

	// NATSURL is the NATS server URL
	NATSURL string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig holds the per-mission lock settings.
type LockConfig struct {
	Enabled bool
	TTL     time.Duration
	Wait    time.Duration
}

// TracingConfig holds OTLP tracing settings.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/viaticos.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Workflow: WorkflowConfig{
			AllocationPolicy: string(workflow.AllowDivergence),
			TunablesSource:   TunablesDatabase,
			HandlerTimeout:   30 * time.Second,
		},
		Directory: DirectoryConfig{
			Driver:   DirectorySQLite,
			MaxConns: 5,
		},
		Notify: NotifyConfig{
			Sinks:         []string{SinkLog},
			SubjectPrefix: "notifications.viaticos",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Lock: LockConfig{
			TTL:  30 * time.Second,
			Wait: 5 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName: "gest-viaticos",
			SampleRatio: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if _, err := workflow.ParseAllocationPolicy(c.Workflow.AllocationPolicy); err != nil {
		return fmt.Errorf("workflow.allocation_policy: %w", err)
	}

	switch c.Workflow.TunablesSource {
	case TunablesDatabase, TunablesStatic:
	default:
		return fmt.Errorf("workflow.tunables_source must be %q or %q", TunablesDatabase, TunablesStatic)
	}

	switch c.Directory.Driver {
	case DirectorySQLite:
	case DirectoryPostgres:
		if c.Directory.DSN == "" {
			return fmt.Errorf("directory.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("directory.driver must be %q or %q", DirectorySQLite, DirectoryPostgres)
	}

	needsRedis := c.Lock.Enabled
	for _, sink := range c.Notify.Sinks {
		switch sink {
		case SinkLog:
		case SinkNATS:
			if c.Notify.NATSURL == "" {
				return fmt.Errorf("notify.nats_url is required for the nats sink")
			}
		case SinkRedis:
			needsRedis = true
		default:
			return fmt.Errorf("unknown notification sink %q", sink)
		}
	}

	if needsRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when the lock or the redis sink is enabled")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}

	return nil
}
