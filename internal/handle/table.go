// Package handle implements reference-counted handle tables.
//
// A Table maps opaque uint64 handles to objects. Handles encode a slot index
// in the low 32 bits and the slot generation in the high 32 bits, so a handle
// to a freed slot stays invalid after the slot is reused.
package handle

import (
	"errors"
	"sync"
)

var (
	// ErrInvalidHandle is returned for zero, unknown or stale handles.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrTableFull is returned when the table reached its capacity limit.
	ErrTableFull = errors.New("handle table full")
)

type slot[T any] struct {
	obj      T
	gen      uint32
	refs     int64
	live     bool
	pinned   bool
	nextFree uint32
}

// Table is a goroutine-safe, reference-counted handle registry.
type Table[T any] struct {
	mu       sync.Mutex
	slots    []slot[T] // slots[0] is never used
	freeHead uint32    // 0 means empty free list
	live     int
	limit    int
	onFree   func(T)
}

// Option configures a Table.
type Option[T any] func(*Table[T])

// WithLimit caps the number of live handles; 0 means unlimited.
func WithLimit[T any](n int) Option[T] {
	return func(t *Table[T]) { t.limit = n }
}

// WithFinalizer registers fn to run when an object's refcount drops to zero.
// fn runs after the table lock is released.
func WithFinalizer[T any](fn func(T)) Option[T] {
	return func(t *Table[T]) { t.onFree = fn }
}

// New returns an empty table.
func New[T any](opts ...Option[T]) *Table[T] {
	t := &Table[T]{slots: make([]slot[T], 1, 64)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func encode(index, gen uint32) uint64 {
	return uint64(gen)<<32 | uint64(index)
}

func decode(h uint64) (index, gen uint32) {
	return uint32(h), uint32(h >> 32)
}

// Allocate stores obj with refcount 1 and returns its handle.
func (t *Table[T]) Allocate(obj T) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limit > 0 && t.live >= t.limit {
		return 0, ErrTableFull
	}

	var index uint32
	if t.freeHead != 0 {
		index = t.freeHead
		t.freeHead = t.slots[index].nextFree
	} else {
		if uint64(len(t.slots)) >= 1<<32-1 {
			return 0, ErrTableFull
		}
		t.slots = append(t.slots, slot[T]{})
		index = uint32(len(t.slots) - 1)
	}

	s := &t.slots[index]
	s.gen++
	if s.gen == 0 {
		// generation 0 is reserved so no handle ever encodes to a bare index
		s.gen = 1
	}
	s.obj = obj
	s.refs = 1
	s.live = true
	s.pinned = false
	s.nextFree = 0
	t.live++

	return encode(index, s.gen), nil
}

// lookup returns the live slot for h. Callers hold t.mu.
func (t *Table[T]) lookup(h uint64) (*slot[T], error) {
	index, gen := decode(h)
	if index == 0 || int(index) >= len(t.slots) {
		return nil, ErrInvalidHandle
	}
	s := &t.slots[index]
	if !s.live || s.gen != gen {
		return nil, ErrInvalidHandle
	}
	return s, nil
}

// Resolve returns the object named by h.
func (t *Table[T]) Resolve(h uint64) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.obj, nil
}

// Retain increments the refcount of h.
func (t *Table[T]) Retain(h uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	if !s.pinned {
		s.refs++
	}
	return nil
}

// Release decrements the refcount of h and frees the slot when it reaches
// zero. Pinned handles are never freed. freed reports whether the object
// was destroyed by this call.
func (t *Table[T]) Release(h uint64) (freed bool, err error) {
	t.mu.Lock()

	s, err := t.lookup(h)
	if err != nil {
		t.mu.Unlock()
		return false, err
	}
	if s.pinned {
		t.mu.Unlock()
		return false, nil
	}

	s.refs--
	if s.refs > 0 {
		t.mu.Unlock()
		return false, nil
	}

	obj := s.obj
	var zero T
	s.obj = zero
	s.live = false
	index, _ := decode(h)
	s.nextFree = t.freeHead
	t.freeHead = index
	t.live--
	onFree := t.onFree
	t.mu.Unlock()

	if onFree != nil {
		onFree(obj)
	}
	return true, nil
}

// Pin makes h immortal: Retain and Release become no-ops for it.
func (t *Table[T]) Pin(h uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	s.pinned = true
	return nil
}

// Refs returns the current refcount of h.
func (t *Table[T]) Refs(h uint64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	return s.refs, nil
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}
