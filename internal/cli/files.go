package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petrijr/comgr/pkg/api"
)

// kindByExt maps file extensions to the data kind of their contents.
var kindByExt = map[string]api.DataKind{
	".cl":    api.DataKindSource,
	".c":     api.DataKindSource,
	".cpp":   api.DataKindSource,
	".hip":   api.DataKindSource,
	".i":     api.DataKindSource,
	".s":     api.DataKindSource,
	".h":     api.DataKindInclude,
	".hpp":   api.DataKindInclude,
	".pch":   api.DataKindPrecompiledHeader,
	".bc":    api.DataKindBC,
	".ll":    api.DataKindBC,
	".o":     api.DataKindRelocatable,
	".so":    api.DataKindExecutable,
	".co":    api.DataKindExecutable,
	".hsaco": api.DataKindExecutable,
	".bin":   api.DataKindBytes,
}

// kindOf returns override when set, else the kind implied by the extension
// of path.
func kindOf(path, override string) (api.DataKind, error) {
	if override != "" {
		return api.ParseDataKind(override)
	}
	kind, ok := kindByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return api.DataKindUndef, fmt.Errorf("cannot infer the data kind of %q; use --kind", path)
	}
	return kind, nil
}

// loadFile creates a data object named after the base name of path. The
// caller owns the returned reference.
func loadFile(m api.Manager, path string, kind api.DataKind) (api.Data, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return api.Data{}, err
	}
	d, err := m.CreateData(kind)
	if err != nil {
		return api.Data{}, err
	}
	err = m.SetDataName(d, filepath.Base(path))
	if err == nil {
		err = m.SetData(d, payload)
	}
	if err != nil {
		_ = m.ReleaseData(d)
		return api.Data{}, err
	}
	return d, nil
}

// addFile loads path into set and drops the caller reference.
func addFile(m api.Manager, set api.DataSet, path string, kind api.DataKind) error {
	d, err := loadFile(m, path, kind)
	if err != nil {
		return err
	}
	defer m.ReleaseData(d)
	return m.DataSetAdd(set, d)
}

// outputKinds are written to disk by "comgr action".
var outputKinds = []api.DataKind{
	api.DataKindSource,
	api.DataKindBC,
	api.DataKindRelocatable,
	api.DataKindExecutable,
	api.DataKindBytes,
}

// setMember returns the name and payload of the nth member of kind.
func setMember(m api.Manager, set api.DataSet, kind api.DataKind, n int) (string, []byte, error) {
	d, err := m.ActionDataGetData(set, kind, n)
	if err != nil {
		return "", nil, err
	}
	defer m.ReleaseData(d)

	name, err := m.GetDataName(d)
	if err != nil {
		return "", nil, err
	}
	data, err := m.GetData(d)
	return name, data, err
}
