package persistence

import (
	"context"
	"sync"

	"github.com/petrijr/comgr/pkg/api"
)

// InMemoryCache is a goroutine-safe Cache backed by a map.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ Cache = (*InMemoryCache)(nil)

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{entries: make(map[string][]byte)}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

func (c *InMemoryCache) Put(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = append([]byte(nil), value...)
	return nil
}

// Len returns the number of cached entries.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// InMemoryEventStore keeps the journal in a slice.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []api.ActionEvent
}

var _ EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, ev api.ActionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, runID string) ([]api.ActionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.ActionEvent
	for _, ev := range s.events {
		if ev.RunID == runID {
			out = append(out, ev)
		}
	}
	if len(out) == 0 {
		return nil, ErrRunNotFound
	}
	return out, nil
}

func (s *InMemoryEventStore) ListRecent(ctx context.Context, limit int) ([]api.ActionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	return append([]api.ActionEvent(nil), s.events[start:]...), nil
}
