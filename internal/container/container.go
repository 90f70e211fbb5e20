package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	backend "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/dispatcher"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/registry"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/workflow"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/external/hrdb"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/observability"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/repository"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle
	tunables     port.ConfigStore

	// Infrastructure - External
	directory   *DirectoryBundle
	hr          *hrdb.Store
	redisClient *backend.Client
	natsConn    *nats.Conn
	sink        port.NotificationSink
	locker      port.MissionLocker

	// Application
	registry   *registry.Registry
	dispatcher dispatcher.Dispatcher
	workflow   workflow.Engine

	shutdownTracing func(context.Context) error

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Missions    port.MissionRepository
	History     port.HistoryRepository
	Allocations port.AllocationRepository
	Approvals   port.ApprovalRepository
	Config      *repository.ConfigStore
	Directory   *repository.Directory
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Tracing
// 2. Database, repositories and tunables
// 3. Registry
// 4. Directory, Redis, lock and notification sinks
// 5. Event dispatcher and workflow engine
//
// A failed start releases whatever was already opened.
func (c *Container) Start(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	defer func() {
		if err != nil {
			c.release()
		}
	}()

	// Step 1: Tracing
	c.shutdownTracing, err = observability.SetupTracing(ctx, observability.TracingConfig{
		Enabled:     c.config.Tracing.Enabled,
		Endpoint:    c.config.Tracing.Endpoint,
		ServiceName: c.config.Tracing.ServiceName,
		SampleRatio: c.config.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Step 2: Database, repositories and tunables
	if err = c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 3: Registry
	c.registry, err = ProvideRegistry(&c.config.Workflow)
	if err != nil {
		return fmt.Errorf("failed to load stage registry: %w", err)
	}
	c.logger.Info("Stage registry loaded", zap.Int("stages", len(c.registry.Stages())))

	// Step 4: External collaborators
	if err = c.initExternal(ctx); err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized")

	// Step 5: Dispatcher and workflow engine
	if err = c.initDispatcherAndWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher and workflow: %w", err)
	}
	c.logger.Info("Dispatcher and workflow engine initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.release()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// release closes every opened component, newest first
func (c *Container) release() []error {
	var errs []error

	// dispatcher drains in-flight notifications before brokers go away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.natsConn != nil {
		if err := c.natsConn.Drain(); err != nil {
			c.logger.Error("Failed to drain NATS connection", zap.Error(err))
			errs = append(errs, fmt.Errorf("drain nats: %w", err))
		}
		c.natsConn = nil
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.redisClient = nil
	}

	if c.hr != nil {
		c.hr.Close()
		c.hr = nil
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.sqlDB = nil
	}

	if c.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.shutdownTracing(ctx); err != nil {
			c.logger.Error("Failed to flush traces", zap.Error(err))
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		cancel()
		c.shutdownTracing = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	check := func(name string, initialized bool, ping func() error) {
		if !initialized {
			status.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
			status.Overall = false
			return
		}
		if ping != nil {
			if err := ping(); err != nil {
				status.Components[name] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
				status.Overall = false
				return
			}
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	check("database", c.sqlDB != nil, func() error { return c.sqlDB.PingContext(ctx) })
	check("workflow", c.workflow != nil, nil)
	check("dispatcher", c.dispatcher != nil, nil)

	if c.hr != nil {
		check("hr_database", true, func() error { return c.hr.Ping(ctx) })
	}
	if c.redisClient != nil {
		check("redis", true, func() error { return c.redisClient.Ping(ctx).Err() })
	}
	if c.natsConn != nil {
		check("nats", true, func() error {
			if !c.natsConn.IsConnected() {
				return fmt.Errorf("status %s", c.natsConn.Status())
			}
			return nil
		})
	}

	return status
}

// initDatabase opens the database and builds repositories and the tunable store.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos

	c.tunables, err = ProvideConfigStore(&c.config.Workflow, repos)
	return err
}

// initExternal connects the directory, Redis, the lock and notification sinks.
func (c *Container) initExternal(ctx context.Context) error {
	dir, err := ProvideDirectory(ctx, &c.config.Directory, c.repositories, c.logger)
	if err != nil {
		return err
	}
	c.directory = dir
	c.hr = dir.HR

	if c.needsRedis() {
		c.redisClient, err = ProvideRedis(ctx, &c.config.Redis)
		if err != nil {
			return err
		}
	}

	if c.config.Lock.Enabled {
		c.locker = ProvideLocker(&c.config.Lock, c.redisClient, c.logger)
	}

	sinks, err := ProvideNotificationSink(&c.config.Notify, c.redisClient, c.logger)
	if err != nil {
		return err
	}
	c.sink = sinks.Sink
	c.natsConn = sinks.NATS

	return nil
}

func (c *Container) needsRedis() bool {
	if c.config.Lock.Enabled {
		return true
	}
	for _, s := range c.config.Notify.Sinks {
		if s == SinkRedis {
			return true
		}
	}
	return false
}

// initDispatcherAndWorkflow creates the dispatcher and the workflow engine.
func (c *Container) initDispatcherAndWorkflow() error {
	disp, err := ProvideDispatcher(&c.config.Workflow, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Config:     &c.config.Workflow,
		Registry:   c.registry,
		Repos:      c.repositories,
		TxManager:  c.db,
		Directory:  c.directory,
		Tunables:   c.tunables,
		Dispatcher: c.dispatcher,
		Sink:       c.sink,
		Locker:     c.locker,
		Metrics:    c.config.Metrics.Enabled,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workflow = engine

	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Tunables returns the active tunable store.
func (c *Container) Tunables() port.ConfigStore {
	return c.tunables
}

// Registry returns the stage/role registry.
func (c *Container) Registry() *registry.Registry {
	return c.registry
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.Engine {
	return c.workflow
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the application Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

// LoggerAdapter is the key-value logger shape shared by application and interface packages
type LoggerAdapter interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NamedLogger returns a key-value logger for adapters wired outside the container
func (c *Container) NamedLogger(name string) LoggerAdapter {
	return &zapLoggerAdapter{logger: c.logger.Named(name)}
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
