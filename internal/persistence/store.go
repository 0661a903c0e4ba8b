package persistence

import (
	"context"
	"errors"

	"github.com/petrijr/comgr/pkg/api"
)

var (
	// ErrCacheMiss is returned when a cache has no entry for a key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrRunNotFound is returned when the journal has no events for a run.
	ErrRunNotFound = errors.New("run not found")
)

// Cache is a content-addressed store of stage results. Keys are hex
// digests; values are opaque encoded results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// EventStore is an append-only history of action runs.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.ActionEvent) error
	// ListEvents returns the events of one run in append order.
	ListEvents(ctx context.Context, runID string) ([]api.ActionEvent, error)
	// ListRecent returns up to limit most recent events, newest last.
	ListRecent(ctx context.Context, limit int) ([]api.ActionEvent, error)
}

// Persistence bundles the stores the engine depends on. Nil fields disable
// the concern.
type Persistence struct {
	Cache  Cache
	Events EventStore
}

// NoopCache never hits and discards writes.
type NoopCache struct{}

var _ Cache = NoopCache{}

func (NoopCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, ErrCacheMiss }
func (NoopCache) Put(ctx context.Context, key string, value []byte) error {
	return nil
}
