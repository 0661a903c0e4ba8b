package comgr

import (
	"context"
	"database/sql"

	"github.com/petrijr/comgr/internal/engine"
	"github.com/petrijr/comgr/internal/persistence"
)

// Bundle wires together a Manager, a durable stage cache and an action
// journal sharing one database.
//
// For now, we only provide a SQLite-backed bundle.
type Bundle struct {
	Manager Manager
	Metrics *BasicMetrics

	journal persistence.EventStore
}

// NewSQLiteBundle constructs an exec-backed Manager whose stage cache and
// action journal both live in the provided *sql.DB.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:comgr.db?_journal=WAL")
//	bundle, err := comgr.NewSQLiteBundle(db, "/opt/rocm/llvm/bin")
//	// run actions on bundle.Manager
//	events, _ := bundle.Journal(ctx, runID)
func NewSQLiteBundle(db *sql.DB, toolchainDir string) (*Bundle, error) {
	return newSQLiteBundle(db, execProcessor(toolchainDir))
}

func newSQLiteBundle(db *sql.DB, p Processor) (*Bundle, error) {
	cache, err := persistence.NewSQLiteCache(db)
	if err != nil {
		return nil, err
	}
	events, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, err
	}

	metrics := &BasicMetrics{}
	m := engine.NewManagerWithConfig(engine.Config{
		Processor:   p,
		Observer:    metrics,
		Persistence: persistence.Persistence{Cache: cache, Events: events},
	})
	return &Bundle{Manager: m, Metrics: metrics, journal: events}, nil
}

// Journal returns the events of one action run in append order.
func (b *Bundle) Journal(ctx context.Context, runID string) ([]ActionEvent, error) {
	return b.journal.ListEvents(ctx, runID)
}

// RecentEvents returns up to limit most recent journal events.
func (b *Bundle) RecentEvents(ctx context.Context, limit int) ([]ActionEvent, error) {
	return b.journal.ListRecent(ctx, limit)
}
