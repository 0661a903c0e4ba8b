package engine

import (
	"fmt"

	"github.com/petrijr/comgr/internal/isa"
	"github.com/petrijr/comgr/pkg/api"
)

// libraryKey identifies a shared default device library object.
type libraryKey struct {
	isa  string
	kind api.DataKind
	name string
}

func (m *manager) AddDefaultDeviceLibraries(isaName string, kind api.DataKind, lang api.Language, sh api.DataSet) error {
	t, ok := m.isas.Lookup(isaName)
	if !ok {
		return api.Invalidf("unsupported isa %q", isaName)
	}
	if !kind.Concrete() {
		return api.Invalidf("device libraries of kind %s", kind)
	}
	if !lang.Valid() {
		return api.Invalidf("unknown language %s", lang)
	}
	if _, err := m.resolveSet(sh); err != nil {
		return err
	}

	m.libMu.Lock()
	defer m.libMu.Unlock()

	var handles []uint64
	cached := true
	for _, name := range m.isas.Libraries(t, kind, lang) {
		h, ok := m.libs[libraryKey{isaName, kind, name}]
		if !ok {
			cached = false
			break
		}
		handles = append(handles, h)
	}

	if !cached {
		libs, err := m.isas.ReadLibraries(m.libFS, t, kind, lang)
		if err != nil {
			return fmt.Errorf("%w: %w", api.ErrError, err)
		}
		handles = handles[:0]
		for _, lib := range libs {
			h, err := m.libraryObject(isaName, kind, lib)
			if err != nil {
				return err
			}
			handles = append(handles, h)
		}
	}

	for _, h := range handles {
		if err := m.DataSetAdd(sh, api.Data{Handle: h}); err != nil {
			return err
		}
	}
	m.logger.Debug("device_libraries_added",
		"isa", isaName, "kind", kind.String(), "language", lang.String(), "count", len(handles))
	return nil
}

// libraryObject returns the pinned object for lib, creating it once.
// Callers hold m.libMu.
func (m *manager) libraryObject(isaName string, kind api.DataKind, lib isa.Library) (uint64, error) {
	key := libraryKey{isaName, kind, lib.Name}
	if h, ok := m.libs[key]; ok {
		return h, nil
	}

	d := &dataObject{kind: kind, name: lib.Name, data: lib.Data, pinned: true}
	if kind.ISASpecific() {
		d.isa = isaName
	}
	h, err := m.data.Allocate(d)
	if err != nil {
		return 0, tableError("create device library", err)
	}
	if err := m.data.Pin(h); err != nil {
		return 0, tableError("pin device library", err)
	}
	m.libs[key] = h
	return h, nil
}
