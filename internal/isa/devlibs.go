package isa

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/petrijr/comgr/pkg/api"
)

// ErrLibraryNotFound is returned when a default device library file is
// missing from the library directory.
var ErrLibraryNotFound = errors.New("device library not found")

// Library is the contents of a device library file.
type Library struct {
	Name string
	Data []byte
}

// ReadLibraries reads the default device libraries of kind for t and lang
// from fsys, in the order returned by Libraries.
func (c *Catalog) ReadLibraries(fsys fs.FS, t Target, kind api.DataKind, lang api.Language) ([]Library, error) {
	names := c.Libraries(t, kind, lang)
	if len(names) == 0 {
		return nil, nil
	}
	if fsys == nil {
		return nil, fmt.Errorf("%w: no device library path configured", ErrLibraryNotFound)
	}

	out := make([]Library, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
		}
		if err != nil {
			return nil, fmt.Errorf("read device library %s: %w", name, err)
		}
		out = append(out, Library{Name: name, Data: data})
	}
	return out, nil
}
