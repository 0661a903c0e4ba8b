package engine

import (
	"sync"

	"github.com/petrijr/comgr/internal/metadata"
	"github.com/petrijr/comgr/pkg/api"
)

// dataObject is the value behind an api.Data handle.
type dataObject struct {
	// kind is fixed at creation and read without locking.
	kind api.DataKind

	mu   sync.Mutex
	name string
	data []byte
	isa  string

	// gen is bumped on every payload replacement. Metadata and symbol
	// handles remember the gen they were created for.
	gen  uint64
	meta *metadata.Node
	// syms are the symbol handles of the payload at symGen.
	syms   []uint64
	symGen uint64

	freed  bool
	pinned bool
}

// dropSymbolsLocked forgets the cached symbol handles and returns them for
// release. Callers hold d.mu.
func (d *dataObject) dropSymbolsLocked() []uint64 {
	syms := d.syms
	d.syms = nil
	return syms
}

func (m *manager) finalizeData(d *dataObject) {
	d.mu.Lock()
	d.freed = true
	d.data = nil
	d.meta = nil
	syms := d.dropSymbolsLocked()
	d.mu.Unlock()
	m.releaseSymbols(syms)
}

func (m *manager) resolveData(h api.Data) (*dataObject, error) {
	d, err := m.data.Resolve(h.Handle)
	if err != nil {
		return nil, tableError("data object", err)
	}
	return d, nil
}

func (m *manager) newData(d *dataObject) (api.Data, error) {
	h, err := m.data.Allocate(d)
	if err != nil {
		return api.Data{}, tableError("create data object", err)
	}
	return api.Data{Handle: h}, nil
}

func (m *manager) CreateData(kind api.DataKind) (api.Data, error) {
	if !kind.Concrete() {
		return api.Data{}, api.Invalidf("create data object of kind %s", kind)
	}
	return m.newData(&dataObject{kind: kind, data: []byte{}})
}

func (m *manager) RetainData(h api.Data) error {
	if err := m.data.Retain(h.Handle); err != nil {
		return tableError("retain data object", err)
	}
	return nil
}

func (m *manager) ReleaseData(h api.Data) error {
	if _, err := m.data.Release(h.Handle); err != nil {
		return tableError("release data object", err)
	}
	return nil
}

func (m *manager) GetDataKind(h api.Data) (api.DataKind, error) {
	d, err := m.resolveData(h)
	if err != nil {
		return api.DataKindUndef, err
	}
	return d.kind, nil
}

func (m *manager) SetData(h api.Data, payload []byte) error {
	d, err := m.resolveData(h)
	if err != nil {
		return err
	}
	data := append([]byte{}, payload...)
	isaName := m.deriveISA(d.kind, data)

	d.mu.Lock()
	if d.pinned {
		d.mu.Unlock()
		return api.Invalidf("default device library %q is immutable", d.name)
	}
	syms := d.setPayloadLocked(data, isaName)
	d.mu.Unlock()

	m.releaseSymbols(syms)
	return nil
}

// setPayloadLocked replaces the payload and invalidates derived state.
// Callers hold d.mu and release the returned symbol handles.
func (d *dataObject) setPayloadLocked(data []byte, isaName string) []uint64 {
	d.data = data
	d.isa = isaName
	d.gen++
	d.meta = nil
	return d.dropSymbolsLocked()
}

func (m *manager) GetData(h api.Data) ([]byte, error) {
	d, err := m.resolveData(h)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte{}, d.data...), nil
}

func (m *manager) SetDataName(h api.Data, name string) error {
	d, err := m.resolveData(h)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pinned {
		return api.Invalidf("default device library %q is immutable", d.name)
	}
	d.name = name
	return nil
}

func (m *manager) GetDataName(h api.Data) (string, error) {
	d, err := m.resolveData(h)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name, nil
}

func (m *manager) GetDataISAName(h api.Data) (string, error) {
	d, err := m.resolveData(h)
	if err != nil {
		return "", err
	}
	if !d.kind.ISASpecific() {
		return "", api.Invalidf("data kind %s has no isa", d.kind)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isa, nil
}

func (m *manager) GetDataMetadata(h api.Data) (api.MetadataNode, error) {
	d, err := m.resolveData(h)
	if err != nil {
		return api.MetadataNode{}, err
	}

	d.mu.Lock()
	if d.meta == nil {
		d.meta = m.dataMetadata(d.kind, d.data)
	}
	ref := &metadataRef{node: d.meta, owner: d, gen: d.gen}
	d.mu.Unlock()

	return m.newMetadataHandle(ref)
}

// snapshot is a consistent copy of a data object taken by DoAction.
type snapshot struct {
	name string
	kind api.DataKind
	isa  string
	data []byte
}

func (d *dataObject) snapshot() snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return snapshot{
		name: d.name,
		kind: d.kind,
		isa:  d.isa,
		data: append([]byte{}, d.data...),
	}
}
