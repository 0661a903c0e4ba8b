package comgr

import (
	"context"
	"database/sql"
	"os"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/comgr/internal/config"
	"github.com/petrijr/comgr/internal/engine"
	"github.com/petrijr/comgr/internal/logging"
	"github.com/petrijr/comgr/internal/persistence"
	"github.com/petrijr/comgr/internal/toolchain"
	"github.com/petrijr/comgr/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Manager      = api.Manager
	Data         = api.Data
	DataSet      = api.DataSet
	ActionInfo   = api.ActionInfo
	MetadataNode = api.MetadataNode
	Symbol       = api.Symbol

	DataKind     = api.DataKind
	Language     = api.Language
	ActionKind   = api.ActionKind
	MetadataKind = api.MetadataKind
	SymbolType   = api.SymbolType
	SymbolInfo   = api.SymbolInfo
	Status       = api.Status

	ActionRun   = api.ActionRun
	ActionEvent = api.ActionEvent

	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Stage processors. A custom Processor replaces the LLVM tools.

type (
	Processor     = toolchain.Processor
	ProcessorFunc = toolchain.ProcessorFunc
	StageRequest  = toolchain.Request
	StageResult   = toolchain.Result
	StageObject   = toolchain.Object
)

// Stack is a manager opened from configuration; Close releases its stores.
type Stack = config.Stack

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	StatusOf             = api.StatusOf
	StatusString         = api.StatusString
	Version              = api.Version
	Compatible           = api.Compatible

	ErrError           = api.ErrError
	ErrInvalidArgument = api.ErrInvalidArgument
	ErrOutOfResources  = api.ErrOutOfResources
)

// Re-export status values for convenience.

const (
	StatusSuccess              = api.StatusSuccess
	StatusError                = api.StatusError
	StatusErrorInvalidArgument = api.StatusErrorInvalidArgument
	StatusErrorOutOfResources  = api.StatusErrorOutOfResources
)

// Manager constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewManager returns a Manager that runs the LLVM tools found in
// toolchainDir, or on PATH when toolchainDir is empty.
func NewManager(toolchainDir string) Manager {
	return NewManagerWithObserver(toolchainDir, nil)
}

// NewManagerWithObserver returns an exec-backed Manager with the given Observer.
func NewManagerWithObserver(toolchainDir string, obs Observer) Manager {
	return engine.NewManagerWithConfig(engine.Config{
		Processor: execProcessor(toolchainDir),
		Observer:  obs,
	})
}

// NewManagerWithProcessor returns a Manager whose stages all run through p.
func NewManagerWithProcessor(p Processor, obs Observer) Manager {
	return engine.NewManagerWithConfig(engine.Config{Processor: p, Observer: obs})
}

// NewSQLiteCachedManager returns an exec-backed Manager that caches stage
// results in a SQLite database.
func NewSQLiteCachedManager(toolchainDir string, db *sql.DB) (Manager, error) {
	cache, err := persistence.NewSQLiteCache(db)
	if err != nil {
		return nil, err
	}
	return cachedManager(toolchainDir, cache), nil
}

// NewPostgresCachedManager returns an exec-backed Manager that caches stage
// results in PostgreSQL.
func NewPostgresCachedManager(toolchainDir string, db *sql.DB) (Manager, error) {
	cache, err := persistence.NewPostgresCache(db)
	if err != nil {
		return nil, err
	}
	return cachedManager(toolchainDir, cache), nil
}

// NewRedisCachedManager returns an exec-backed Manager that caches stage
// results in Redis.
func NewRedisCachedManager(toolchainDir string, client *redis.Client) Manager {
	return cachedManager(toolchainDir, persistence.NewRedisCache(client, "comgr:", 0))
}

// NewMongoCachedManager returns an exec-backed Manager that caches stage
// results in MongoDB.
func NewMongoCachedManager(toolchainDir string, client *mongo.Client) Manager {
	return cachedManager(toolchainDir, persistence.NewMongoCache(client, "", ""))
}

// Open builds a Manager from COMGR_* environment variables and an optional
// .env file in the working directory.
//
//	stack, err := comgr.Open(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stack.Close()
func Open(ctx context.Context) (*Stack, error) {
	cfg, err := config.Load(config.FromOS(), ".env")
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	return config.Open(ctx, cfg, logger)
}

func execProcessor(toolchainDir string) Processor {
	return toolchain.NewExecProcessor(toolchain.ExecConfig{ToolchainDir: toolchainDir})
}

func cachedManager(toolchainDir string, cache persistence.Cache) Manager {
	return engine.NewManagerWithConfig(engine.Config{
		Processor:   execProcessor(toolchainDir),
		Persistence: persistence.Persistence{Cache: cache},
	})
}
