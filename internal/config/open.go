package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"

	"github.com/petrijr/comgr/internal/engine"
	"github.com/petrijr/comgr/internal/isa"
	"github.com/petrijr/comgr/internal/persistence"
	"github.com/petrijr/comgr/internal/toolchain"
	"github.com/petrijr/comgr/pkg/api"
)

// Stack is a manager together with the resources opened for it.
type Stack struct {
	Manager api.Manager
	// Journal is nil when the journal is disabled.
	Journal persistence.EventStore
	Metrics *api.BasicMetrics

	closers []func() error
}

// Close releases the stores and log files opened by Open.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Open builds a manager from cfg: exec processor, ISA table, device
// libraries, stage cache, journal and log redirection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (_ *Stack, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Stack{Metrics: &api.BasicMetrics{}}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	ecfg := engine.Config{
		Processor: toolchain.NewExecProcessor(toolchain.ExecConfig{
			ToolchainDir: cfg.ToolchainDir,
			TempDir:      cfg.TempDir,
			SaveTemps:    cfg.SaveTemps,
			Verbose:      cfg.EmitVerboseLogs,
			Logger:       logger,
		}),
		Observer:   api.NewCompositeObserver(api.NewLoggingObserver(logger), s.Metrics),
		Logger:     logger,
		MaxHandles: cfg.MaxHandles,
	}

	if cfg.ISATable != "" {
		if ecfg.ISAs, err = isa.Load(cfg.ISATable); err != nil {
			return nil, err
		}
	}
	if cfg.DeviceLibPath != "" {
		ecfg.DeviceLibs = os.DirFS(cfg.DeviceLibPath)
	}

	if ecfg.Persistence.Cache, err = s.openCache(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache, err)
	}
	if ecfg.Persistence.Events, err = s.openJournal(cfg); err != nil {
		return nil, fmt.Errorf("open %s journal: %w", cfg.Journal, err)
	}
	s.Journal = ecfg.Persistence.Events

	if ecfg.LogSink, err = s.openLogSink(cfg.RedirectLogs); err != nil {
		return nil, err
	}

	s.Manager = engine.NewManagerWithConfig(ecfg)
	logger.DebugContext(ctx, "manager_opened",
		slog.String("cache", cfg.Cache),
		slog.String("journal", cfg.Journal),
		slog.Int("max_handles", cfg.MaxHandles),
	)
	return s, nil
}

func (s *Stack) openSQL(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, db.Close)
	return db, nil
}

func (s *Stack) openCache(ctx context.Context, cfg Config) (persistence.Cache, error) {
	switch cfg.Cache {
	case CacheMemory:
		return persistence.NewInMemoryCache(), nil
	case CacheSQLite:
		db, err := s.openSQL("sqlite", cfg.CacheDSN)
		if err != nil {
			return nil, err
		}
		return persistence.NewSQLiteCache(db)
	case CachePostgres:
		db, err := s.openSQL("pgx", cfg.CacheDSN)
		if err != nil {
			return nil, err
		}
		return persistence.NewPostgresCache(db)
	case CacheRedis:
		opts, err := redis.ParseURL(cfg.CacheDSN)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		s.closers = append(s.closers, client.Close)
		return persistence.NewRedisCache(client, "comgr:", 0), nil
	case CacheMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.CacheDSN))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return client.Disconnect(context.Background()) })
		return persistence.NewMongoCache(client, "", ""), nil
	default:
		return nil, nil
	}
}

func (s *Stack) openJournal(cfg Config) (persistence.EventStore, error) {
	switch cfg.Journal {
	case JournalMemory:
		return persistence.NewInMemoryEventStore(), nil
	case JournalSQLite:
		db, err := s.openSQL("sqlite", cfg.JournalDSN)
		if err != nil {
			return nil, err
		}
		return persistence.NewSQLiteEventStore(db)
	default:
		return nil, nil
	}
}

func (s *Stack) openLogSink(target string) (io.Writer, error) {
	switch target {
	case "":
		return nil, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	s.closers = append(s.closers, f.Close)
	return f, nil
}
