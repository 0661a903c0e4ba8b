package persistence

import (
	"context"

	"github.com/petrijr/comgr/pkg/api"
)

// NoopEventStore discards all events.
type NoopEventStore struct{}

var _ EventStore = NoopEventStore{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.ActionEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, runID string) ([]api.ActionEvent, error) {
	return nil, ErrRunNotFound
}
func (NoopEventStore) ListRecent(ctx context.Context, limit int) ([]api.ActionEvent, error) {
	return nil, nil
}
