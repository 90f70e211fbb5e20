package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nats-io/nats.go"
	backend "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/dispatcher"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/registry"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/service"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/workflow"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/external/hrdb"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/lock"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/messaging"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/observability"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/repository"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/persistence/sqlite"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/infrastructure/tunables"
	"github.com/ghxstloner/gest-viaticos-panama-backend/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Raw            *database.DB
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// DirectoryBundle holds the directory and budget catalog, plus the HR pool
// when PostgreSQL backs them.
type DirectoryBundle struct {
	Directory port.Directory
	Budget    port.BudgetCatalog
	HR        *hrdb.Store
}

// SinkBundle holds the notification sink and the broker connections it owns.
type SinkBundle struct {
	Sink port.NotificationSink
	NATS *nats.Conn
}

// ProvideDatabase opens the SQLite database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if _, err := database.NewMigrator(db, logger).RunMigrations(sqlite.Migrations, sqlite.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		Raw:            db,
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Missions:    repository.NewMissionRepository(sqlDB, logger),
		History:     repository.NewHistoryRepository(sqlDB, logger),
		Allocations: repository.NewAllocationRepository(sqlDB, logger),
		Approvals:   repository.NewApprovalRepository(sqlDB, logger),
		Config:      repository.NewConfigStore(sqlDB, logger),
		Directory:   repository.NewDirectory(sqlDB, logger),
	}, nil
}

// ProvideConfigStore selects the tunable source.
func ProvideConfigStore(cfg *WorkflowConfig, repos *RepositoryBundle) (port.ConfigStore, error) {
	switch cfg.TunablesSource {
	case TunablesStatic:
		return tunables.NewStaticStore(cfg.Tunables), nil
	case TunablesDatabase, "":
		if repos == nil {
			return nil, fmt.Errorf("repositories are required for database tunables")
		}
		return repos.Config, nil
	default:
		return nil, fmt.Errorf("unknown tunables source %q", cfg.TunablesSource)
	}
}

// ProvideDirectory connects the directory and budget catalog.
func ProvideDirectory(ctx context.Context, cfg *DirectoryConfig, repos *RepositoryBundle, logger *zap.Logger) (*DirectoryBundle, error) {
	switch cfg.Driver {
	case DirectoryPostgres:
		store, err := hrdb.New(ctx, hrdb.Config{
			DSN:          cfg.DSN,
			MaxConns:     cfg.MaxConns,
			CreateSchema: cfg.CreateSchema,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &DirectoryBundle{Directory: store, Budget: store, HR: store}, nil
	case DirectorySQLite, "":
		if repos == nil {
			return nil, fmt.Errorf("repositories are required for the sqlite directory")
		}
		return &DirectoryBundle{Directory: repos.Directory, Budget: repos.Directory}, nil
	default:
		return nil, fmt.Errorf("unknown directory driver %q", cfg.Driver)
	}
}

// ProvideRedis creates the Redis client and verifies connectivity.
func ProvideRedis(ctx context.Context, cfg *RedisConfig) (*backend.Client, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// ProvideNotificationSink builds the configured sinks behind one fan-out.
// A single sink is returned unwrapped.
func ProvideNotificationSink(cfg *NotifyConfig, redisClient *backend.Client, logger *zap.Logger) (*SinkBundle, error) {
	var (
		sinks []port.NotificationSink
		conn  *nats.Conn
	)

	fail := func(err error) (*SinkBundle, error) {
		if conn != nil {
			conn.Close()
		}
		return nil, err
	}

	for _, name := range cfg.Sinks {
		switch name {
		case SinkLog:
			sinks = append(sinks, messaging.NewLogSink(logger))
		case SinkNATS:
			var err error
			conn, err = messaging.DialNATS(cfg.NATSURL, "gest-viaticos", logger)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, messaging.NewNATSSink(conn, cfg.SubjectPrefix, logger))
		case SinkRedis:
			if redisClient == nil {
				return fail(fmt.Errorf("redis client is required for the redis sink"))
			}
			sinks = append(sinks, messaging.NewRedisSink(redisClient, cfg.SubjectPrefix, logger))
		default:
			return fail(fmt.Errorf("unknown notification sink %q", name))
		}
	}

	bundle := &SinkBundle{NATS: conn}
	switch len(sinks) {
	case 0:
		bundle.Sink = messaging.NewLogSink(logger)
	case 1:
		bundle.Sink = sinks[0]
	default:
		bundle.Sink = messaging.NewFanoutSink(sinks...)
	}

	return bundle, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *WorkflowConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	}
	if cfg != nil && cfg.HandlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.HandlerTimeout))
	}

	return dispatcher.NewDispatcher(opts...), nil
}

// ProvideRegistry loads the stage/role catalog, from CatalogPath when set.
func ProvideRegistry(cfg *WorkflowConfig) (*registry.Registry, error) {
	catalog := registry.DefaultCatalog()
	if cfg.CatalogPath != "" {
		loaded, err := registry.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}

	return registry.New(catalog, domainwf.MissionFlow())
}

// WorkflowDeps holds dependencies for ProvideWorkflowEngine.
type WorkflowDeps struct {
	Config     *WorkflowConfig
	Registry   *registry.Registry
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Directory  *DirectoryBundle
	Tunables   port.ConfigStore
	Dispatcher dispatcher.Dispatcher
	Sink       port.NotificationSink
	Locker     port.MissionLocker
	Metrics    bool
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the engine and registers the notification relay.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow deps are required")
	}
	if deps.Repos == nil || deps.Directory == nil || deps.Registry == nil {
		return nil, fmt.Errorf("repositories, directory and registry are required")
	}

	policy, err := workflow.ParseAllocationPolicy(deps.Config.AllocationPolicy)
	if err != nil {
		return nil, err
	}

	opts := []workflow.EngineOption{
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger.Named("workflow")}),
		workflow.WithAllocationPolicy(policy),
		workflow.WithOptimisticStageCheck(deps.Config.OptimisticStageCheck),
	}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Locker != nil {
		opts = append(opts, workflow.WithLocker(deps.Locker))
	}
	if deps.Metrics {
		opts = append(opts, workflow.WithMetrics(observability.NewWorkflowMetrics()))
	}

	engine := workflow.NewEngine(workflow.Deps{
		Registry:    deps.Registry,
		Missions:    deps.Repos.Missions,
		History:     deps.Repos.History,
		Allocations: deps.Repos.Allocations,
		Approvals:   deps.Repos.Approvals,
		TxManager:   deps.TxManager,
		Directory:   deps.Directory.Directory,
		Budget:      deps.Directory.Budget,
		Config:      deps.Tunables,
	}, opts...)

	if deps.Dispatcher != nil && deps.Sink != nil {
		relay := service.NewNotificationService(deps.Sink, &zapLoggerAdapter{logger: deps.Logger.Named("notify")})
		relay.Register(deps.Dispatcher)
	}

	return engine, nil
}

// ProvideLocker creates the Redis mission locker.
func ProvideLocker(cfg *LockConfig, client *backend.Client, logger *zap.Logger) port.MissionLocker {
	return lock.NewRedisLocker(client, lock.Config{TTL: cfg.TTL, Wait: cfg.Wait}, logger)
}
