package engine

import (
	"slices"
	"sync"

	"github.com/petrijr/comgr/pkg/api"
)

// dataSet is an ordered, duplicate-free list of data handles. Each member
// holds one reference.
type dataSet struct {
	mu      sync.Mutex
	members []uint64
}

func (m *manager) finalizeSet(s *dataSet) {
	s.mu.Lock()
	members := s.members
	s.members = nil
	s.mu.Unlock()
	m.releaseAll(members)
}

func (m *manager) releaseAll(handles []uint64) {
	for _, h := range handles {
		if _, err := m.data.Release(h); err != nil {
			m.logger.Warn("release set member", "handle", h, "error", err)
		}
	}
}

func (m *manager) resolveSet(h api.DataSet) (*dataSet, error) {
	s, err := m.sets.Resolve(h.Handle)
	if err != nil {
		return nil, tableError("data set", err)
	}
	return s, nil
}

func (m *manager) CreateDataSet() (api.DataSet, error) {
	h, err := m.sets.Allocate(&dataSet{})
	if err != nil {
		return api.DataSet{}, tableError("create data set", err)
	}
	return api.DataSet{Handle: h}, nil
}

func (m *manager) DestroyDataSet(h api.DataSet) error {
	if _, err := m.sets.Release(h.Handle); err != nil {
		return tableError("destroy data set", err)
	}
	return nil
}

func (m *manager) DataSetAdd(sh api.DataSet, dh api.Data) error {
	s, err := m.resolveSet(sh)
	if err != nil {
		return err
	}
	d, err := m.resolveData(dh)
	if err != nil {
		return err
	}
	if d.kind == api.DataKindInclude {
		d.mu.Lock()
		name := d.name
		d.mu.Unlock()
		if name == "" {
			return api.Invalidf("include objects must be named")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.members, dh.Handle) {
		return nil
	}
	if err := m.data.Retain(dh.Handle); err != nil {
		return tableError("add to data set", err)
	}
	s.members = append(s.members, dh.Handle)
	return nil
}

func (m *manager) DataSetRemove(sh api.DataSet, kind api.DataKind) error {
	if !kind.Valid() {
		return api.Invalidf("remove data kind %s", kind)
	}
	s, err := m.resolveSet(sh)
	if err != nil {
		return err
	}
	m.releaseAll(m.removeKinds(s, kind))
	return nil
}

// removeKinds drops the members whose kind is one of kinds and returns
// their handles. DataKindUndef matches every member.
func (m *manager) removeKinds(s *dataSet, kinds ...api.DataKind) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []uint64
	kept := s.members[:0]
	for _, h := range s.members {
		d, err := m.data.Resolve(h)
		if err == nil && !matchesKind(d.kind, kinds) {
			kept = append(kept, h)
			continue
		}
		removed = append(removed, h)
	}
	clear(s.members[len(kept):])
	s.members = kept
	return removed
}

func matchesKind(k api.DataKind, kinds []api.DataKind) bool {
	for _, want := range kinds {
		if want == api.DataKindUndef || want == k {
			return true
		}
	}
	return false
}

// membersOfKind returns the members of kind in insertion order.
func (m *manager) membersOfKind(s *dataSet, kind api.DataKind) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []uint64
	for _, h := range s.members {
		d, err := m.data.Resolve(h)
		if err == nil && d.kind == kind {
			out = append(out, h)
		}
	}
	return out
}

func (m *manager) ActionDataCount(sh api.DataSet, kind api.DataKind) (int, error) {
	if !kind.Concrete() {
		return 0, api.Invalidf("count data kind %s", kind)
	}
	s, err := m.resolveSet(sh)
	if err != nil {
		return 0, err
	}
	return len(m.membersOfKind(s, kind)), nil
}

func (m *manager) ActionDataGetData(sh api.DataSet, kind api.DataKind, index int) (api.Data, error) {
	if !kind.Concrete() {
		return api.Data{}, api.Invalidf("get data kind %s", kind)
	}
	s, err := m.resolveSet(sh)
	if err != nil {
		return api.Data{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.members {
		d, err := m.data.Resolve(h)
		if err != nil || d.kind != kind {
			continue
		}
		if n == index {
			if err := m.data.Retain(h); err != nil {
				return api.Data{}, tableError("get set member", err)
			}
			return api.Data{Handle: h}, nil
		}
		n++
	}
	return api.Data{}, api.Invalidf("index %d out of range for %d %s objects", index, n, kind)
}

// appendData adds a freshly created object to s, transferring the
// creator's reference to the set.
func (m *manager) appendData(s *dataSet, h uint64) {
	s.mu.Lock()
	s.members = append(s.members, h)
	s.mu.Unlock()
}
