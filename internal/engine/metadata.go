package engine

import (
	"errors"
	"fmt"

	"github.com/petrijr/comgr/internal/metadata"
	"github.com/petrijr/comgr/pkg/api"
)

// metadataRef is the value behind an api.MetadataNode handle. Nodes taken
// from a data object stay valid while the object lives and keeps the
// payload generation they were read from. ISA metadata has no owner.
type metadataRef struct {
	node  *metadata.Node
	owner *dataObject
	gen   uint64
}

func (r *metadataRef) child(node *metadata.Node) *metadataRef {
	return &metadataRef{node: node, owner: r.owner, gen: r.gen}
}

func (m *manager) newMetadataHandle(ref *metadataRef) (api.MetadataNode, error) {
	h, err := m.metadata.Allocate(ref)
	if err != nil {
		return api.MetadataNode{}, tableError("create metadata node", err)
	}
	return api.MetadataNode{Handle: h}, nil
}

func (m *manager) resolveMetadata(h api.MetadataNode) (*metadataRef, error) {
	ref, err := m.metadata.Resolve(h.Handle)
	if err != nil {
		return nil, tableError("metadata node", err)
	}
	if o := ref.owner; o != nil {
		o.mu.Lock()
		stale := o.freed || o.gen != ref.gen
		o.mu.Unlock()
		if stale {
			return nil, api.Invalidf("metadata node of a replaced or released data object")
		}
	}
	return ref, nil
}

func (m *manager) GetMetadataKind(h api.MetadataNode) (api.MetadataKind, error) {
	ref, err := m.resolveMetadata(h)
	if err != nil {
		return api.MetadataKindNull, err
	}
	return ref.node.Kind(), nil
}

func (m *manager) GetMetadataString(h api.MetadataNode) (string, error) {
	ref, err := m.resolveMetadata(h)
	if err != nil {
		return "", err
	}
	s, ok := ref.node.Str()
	if !ok {
		return "", api.Invalidf("metadata node is a %s, not a string", ref.node.Kind())
	}
	return s, nil
}

func (m *manager) mapNode(h api.MetadataNode) (*metadataRef, error) {
	ref, err := m.resolveMetadata(h)
	if err != nil {
		return nil, err
	}
	if ref.node.Kind() != api.MetadataKindMap {
		return nil, api.Invalidf("metadata node is a %s, not a map", ref.node.Kind())
	}
	return ref, nil
}

func (m *manager) listNode(h api.MetadataNode) (*metadataRef, error) {
	ref, err := m.resolveMetadata(h)
	if err != nil {
		return nil, err
	}
	if ref.node.Kind() != api.MetadataKindList {
		return nil, api.Invalidf("metadata node is a %s, not a list", ref.node.Kind())
	}
	return ref, nil
}

func (m *manager) GetMetadataMapSize(h api.MetadataNode) (int, error) {
	ref, err := m.mapNode(h)
	if err != nil {
		return 0, err
	}
	return ref.node.Len(), nil
}

func (m *manager) IterateMapMetadata(h api.MetadataNode, fn func(key, value api.MetadataNode) error) error {
	if fn == nil {
		return api.Invalidf("nil metadata visitor")
	}
	ref, err := m.mapNode(h)
	if err != nil {
		return err
	}

	for i, e := range ref.node.Entries() {
		key, err := m.newMetadataHandle(ref.child(e.Key))
		if err != nil {
			return err
		}
		value, err := m.newMetadataHandle(ref.child(e.Value))
		if err != nil {
			m.metadata.Release(key.Handle)
			return err
		}

		err = fn(key, value)
		m.metadata.Release(key.Handle)
		m.metadata.Release(value.Handle)
		if err != nil {
			return fmt.Errorf("%w: metadata visitor stopped at entry %d: %w", api.ErrError, i, err)
		}
	}
	return nil
}

func (m *manager) MetadataLookup(h api.MetadataNode, key string) (api.MetadataNode, error) {
	ref, err := m.mapNode(h)
	if err != nil {
		return api.MetadataNode{}, err
	}
	node, err := ref.node.Lookup(key)
	if errors.Is(err, metadata.ErrNotFound) {
		return api.MetadataNode{}, fmt.Errorf("%w: %w", api.ErrError, err)
	}
	if err != nil {
		return api.MetadataNode{}, api.Invalidf("%v", err)
	}
	return m.newMetadataHandle(ref.child(node))
}

func (m *manager) GetMetadataListSize(h api.MetadataNode) (int, error) {
	ref, err := m.listNode(h)
	if err != nil {
		return 0, err
	}
	return ref.node.Len(), nil
}

func (m *manager) IndexListMetadata(h api.MetadataNode, index int) (api.MetadataNode, error) {
	ref, err := m.listNode(h)
	if err != nil {
		return api.MetadataNode{}, err
	}
	node, ok := ref.node.Index(index)
	if !ok {
		return api.MetadataNode{}, api.Invalidf("list index %d out of range [0, %d)", index, ref.node.Len())
	}
	return m.newMetadataHandle(ref.child(node))
}

func (m *manager) DestroyMetadata(h api.MetadataNode) error {
	if _, err := m.metadata.Release(h.Handle); err != nil {
		return tableError("destroy metadata node", err)
	}
	return nil
}
