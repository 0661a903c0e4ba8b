package engine

import (
	"debug/elf"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/comgr/internal/testutil"
	"github.com/petrijr/comgr/pkg/api"
)

var testSymbols = []testutil.ELFSymbol{
	{Name: "vadd", Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Value: 0x100, Size: 64},
	{Name: "vadd.kd", Type: elf.STT_OBJECT, Bind: elf.STB_GLOBAL, Value: 0x40, Size: 64},
	{Name: "printf", Type: elf.STT_NOTYPE, Bind: elf.STB_GLOBAL, Undefined: true},
	{Name: "a.cl", Type: elf.STT_FILE, Bind: elf.STB_LOCAL},
}

func symbolAttrs(t *testing.T, m *manager, sym api.Symbol) map[api.SymbolInfo]any {
	t.Helper()
	out := make(map[api.SymbolInfo]any)
	for attr := api.SymbolInfoNameLength; attr <= api.SymbolInfoLast; attr++ {
		v, err := m.SymbolGetInfo(sym, attr)
		require.NoError(t, err)
		out[attr] = v
	}
	return out
}

func TestSymbols_LookupMatchesIteration(t *testing.T) {
	for _, tc := range []struct {
		name string
		kind api.DataKind
		typ  elf.Type
	}{
		{"relocatable", api.DataKindRelocatable, elf.ET_REL},
		{"executable", api.DataKindExecutable, elf.ET_DYN},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t, Config{})
			d := newData(t, m, tc.kind, "k", testutil.BuildELF(testutil.ELFObject{
				Type:    tc.typ,
				Mach:    testutil.MachGFX803,
				Symbols: testSymbols,
			}))

			var visited []map[api.SymbolInfo]any
			require.NoError(t, m.IterateSymbols(d, func(sym api.Symbol) error {
				attrs := symbolAttrs(t, m, sym)
				visited = append(visited, attrs)

				found, err := m.SymbolLookup(d, attrs[api.SymbolInfoName].(string))
				require.NoError(t, err)
				assert.Equal(t, attrs, symbolAttrs(t, m, found))
				return nil
			}))
			require.Len(t, visited, len(testSymbols))

			vadd := visited[0]
			assert.Equal(t, "vadd", vadd[api.SymbolInfoName])
			assert.Equal(t, uint64(4), vadd[api.SymbolInfoNameLength])
			assert.Equal(t, api.SymbolTypeFunc, vadd[api.SymbolInfoType])
			assert.Equal(t, uint64(64), vadd[api.SymbolInfoSize])
			assert.Equal(t, uint64(0x100), vadd[api.SymbolInfoValue])
			assert.Equal(t, false, vadd[api.SymbolInfoIsUndefined])

			assert.Equal(t, api.SymbolTypeObject, visited[1][api.SymbolInfoType])
			assert.Equal(t, true, visited[2][api.SymbolInfoIsUndefined])
			assert.Equal(t, api.SymbolTypeFile, visited[3][api.SymbolInfoType])
		})
	}
}

func TestSymbols_HandlesAreReused(t *testing.T) {
	m := newTestManager(t, Config{})
	d := newData(t, m, api.DataKindRelocatable, "k.o", testutil.BuildELF(testutil.ELFObject{
		Type: elf.ET_REL, Symbols: testSymbols,
	}))

	a, err := m.SymbolLookup(d, "vadd")
	require.NoError(t, err)
	b, err := m.SymbolLookup(d, "vadd")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, len(testSymbols), m.symbols.Len())

	require.NoError(t, m.ReleaseData(d))
	assert.Zero(t, m.symbols.Len(), "symbols die with their object")
	_, err = m.SymbolGetInfo(a, api.SymbolInfoName)
	requireStatus(t, api.StatusErrorInvalidArgument, err)
}

func TestSymbolLookup_PrefersGlobalOverLocals(t *testing.T) {
	m := newTestManager(t, Config{})
	d := newData(t, m, api.DataKindRelocatable, "merged.o", testutil.BuildELF(testutil.ELFObject{
		Type: elf.ET_REL,
		Symbols: []testutil.ELFSymbol{
			{Name: "helper", Type: elf.STT_FUNC, Local: true, Value: 0x10, Size: 4},
			{Name: "helper", Type: elf.STT_FUNC, Local: true, Value: 0x20, Size: 4},
			{Name: "only_local", Type: elf.STT_FUNC, Local: true, Value: 0x30, Size: 4},
			{Name: "helper", Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Value: 0x40, Size: 4},
		},
	}))

	sym, err := m.SymbolLookup(d, "helper")
	require.NoError(t, err)
	v, err := m.SymbolGetInfo(sym, api.SymbolInfoValue)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x40), v)

	sym, err = m.SymbolLookup(d, "only_local")
	require.NoError(t, err)
	v, err = m.SymbolGetInfo(sym, api.SymbolInfoValue)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x30), v)
}

func TestSymbols_InvalidatedBySetData(t *testing.T) {
	m := newTestManager(t, Config{})
	d := newData(t, m, api.DataKindRelocatable, "k.o", testutil.BuildELF(testutil.ELFObject{
		Type: elf.ET_REL, Symbols: testSymbols,
	}))
	old, err := m.SymbolLookup(d, "vadd")
	require.NoError(t, err)

	require.NoError(t, m.SetData(d, testutil.BuildELF(testutil.ELFObject{
		Type:    elf.ET_REL,
		Symbols: []testutil.ELFSymbol{{Name: "other", Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL}},
	})))

	_, err = m.SymbolGetInfo(old, api.SymbolInfoName)
	requireStatus(t, api.StatusErrorInvalidArgument, err)
	_, err = m.SymbolLookup(d, "vadd")
	requireStatus(t, api.StatusError, err)

	sym, err := m.SymbolLookup(d, "other")
	require.NoError(t, err)
	name, err := m.SymbolGetInfo(sym, api.SymbolInfoName)
	require.NoError(t, err)
	assert.Equal(t, "other", name)
}

func TestSymbols_Errors(t *testing.T) {
	m := newTestManager(t, Config{})
	visit := func(api.Symbol) error { return nil }

	src := newData(t, m, api.DataKindSource, "a.cl", []byte("kernel"))
	requireStatus(t, api.StatusErrorInvalidArgument, m.IterateSymbols(src, visit))
	_, err := m.SymbolLookup(src, "x")
	requireStatus(t, api.StatusErrorInvalidArgument, err)

	garbage := newData(t, m, api.DataKindRelocatable, "bad.o", []byte("not an elf"))
	requireStatus(t, api.StatusError, m.IterateSymbols(garbage, visit))

	// An executable without .dynsym has no symbols.
	exe := newData(t, m, api.DataKindExecutable, "a.so", testutil.BuildELF(testutil.ELFObject{Type: elf.ET_DYN}))
	calls := 0
	require.NoError(t, m.IterateSymbols(exe, func(api.Symbol) error { calls++; return nil }))
	assert.Zero(t, calls)
	_, err = m.SymbolLookup(exe, "main")
	requireStatus(t, api.StatusError, err)

	obj := newData(t, m, api.DataKindRelocatable, "k.o", testutil.BuildELF(testutil.ELFObject{
		Type: elf.ET_REL, Symbols: testSymbols,
	}))
	requireStatus(t, api.StatusErrorInvalidArgument, m.IterateSymbols(obj, nil))

	stop := errors.New("stop")
	err = m.IterateSymbols(obj, func(api.Symbol) error { return stop })
	requireStatus(t, api.StatusError, err)
	assert.ErrorIs(t, err, stop)

	sym, err := m.SymbolLookup(obj, "vadd")
	require.NoError(t, err)
	_, err = m.SymbolGetInfo(sym, api.SymbolInfoLast+1)
	requireStatus(t, api.StatusErrorInvalidArgument, err)
}
