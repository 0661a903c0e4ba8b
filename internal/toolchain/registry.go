package toolchain

import (
	"context"
	"fmt"
	"sync"

	"github.com/petrijr/comgr/pkg/api"
)

// Registry routes each action to a Processor. Actions without a registered
// processor go to the fallback.
type Registry struct {
	mu       sync.RWMutex
	byAction map[api.ActionKind]Processor
	fallback Processor
}

var _ Processor = (*Registry)(nil)

// NewRegistry creates a Registry. fallback may be nil.
func NewRegistry(fallback Processor) *Registry {
	return &Registry{
		byAction: make(map[api.ActionKind]Processor),
		fallback: fallback,
	}
}

// Register installs p for kind. Each action can be registered once.
func (r *Registry) Register(kind api.ActionKind, p Processor) error {
	if !kind.Valid() {
		return fmt.Errorf("register processor: invalid action %d", int(kind))
	}
	if p == nil {
		return fmt.Errorf("register processor for %s: nil processor", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAction[kind]; exists {
		return fmt.Errorf("processor for %s already registered", kind)
	}
	r.byAction[kind] = p
	return nil
}

// Get returns the processor serving kind.
func (r *Registry) Get(kind api.ActionKind) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.byAction[kind]; ok {
		return p, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoProcessor, kind)
}

func (r *Registry) Process(ctx context.Context, req Request) (*Result, error) {
	p, err := r.Get(req.Action)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, req)
}
