package isa

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/comgr/pkg/api"
)

func TestDefault_Catalog(t *testing.T) {
	c := Default()
	require.Same(t, c, Default())
	require.Greater(t, c.Len(), 0)

	first, ok := c.At(0)
	require.True(t, ok)
	require.Equal(t, "amdgcn-amd-amdhsa--gfx700", first.Name)
	_, ok = c.At(c.Len())
	require.False(t, ok)

	gfx803, ok := c.Lookup("amdgcn-amd-amdhsa--gfx803")
	require.True(t, ok)
	require.Equal(t, uint32(0x2a), gfx803.Mach)
	require.Equal(t, "amdgcn-amd-amdhsa", gfx803.Triple())
	require.Equal(t, "gfx803", gfx803.Processor())

	byMach, ok := c.ByMach(0x2a)
	require.True(t, ok)
	require.Equal(t, gfx803.Name, byMach.Name)

	_, ok = c.Lookup("amdgcn-amd-amdhsa--gfx9999")
	require.False(t, ok)
	require.Len(t, c.Names(), c.Len())
}

func TestDefault_MetadataMergesBase(t *testing.T) {
	gfx701, ok := Default().Lookup("amdgcn-amd-amdhsa--gfx701")
	require.True(t, ok)
	require.Equal(t, api.MetadataKindMap, gfx701.Metadata.Kind())

	proc, err := gfx701.Metadata.Lookup("Processor")
	require.NoError(t, err)
	s, _ := proc.Str()
	require.Equal(t, "gfx701", s)

	arch, err := gfx701.Metadata.Lookup("Architecture")
	require.NoError(t, err)
	s, _ = arch.Str()
	require.Equal(t, "amdgcn", s)
}

func TestLibraries(t *testing.T) {
	c := Default()
	gfx803, _ := c.Lookup("amdgcn-amd-amdhsa--gfx803")

	base := c.Libraries(gfx803, api.DataKindBC, api.LanguageNone)
	require.Equal(t, []string{
		"ocml.amdgcn.bc",
		"ockl.amdgcn.bc",
		"irif.amdgcn.bc",
		"oclc_isa_version_803.amdgcn.bc",
	}, base)

	ocl := c.Libraries(gfx803, api.DataKindBC, api.LanguageOpenCL12)
	require.Equal(t, append(append([]string{}, base...), "opencl.amdgcn.bc"), ocl)

	require.Empty(t, c.Libraries(gfx803, api.DataKindRelocatable, api.LanguageOpenCL12))
}

func TestReadLibraries(t *testing.T) {
	c := Default()
	gfx900, _ := c.Lookup("amdgcn-amd-amdhsa--gfx900")

	fsys := fstest.MapFS{
		"ocml.amdgcn.bc":                 {Data: []byte("ocml")},
		"ockl.amdgcn.bc":                 {Data: []byte("ockl")},
		"irif.amdgcn.bc":                 {Data: []byte("irif")},
		"oclc_isa_version_900.amdgcn.bc": {Data: []byte("isa900")},
	}

	libs, err := c.ReadLibraries(fsys, gfx900, api.DataKindBC, api.LanguageNone)
	require.NoError(t, err)
	require.Len(t, libs, 4)
	require.Equal(t, "isa900", string(libs[3].Data))

	_, err = c.ReadLibraries(fsys, gfx900, api.DataKindBC, api.LanguageHC)
	require.ErrorIs(t, err, ErrLibraryNotFound)

	_, err = c.ReadLibraries(nil, gfx900, api.DataKindBC, api.LanguageNone)
	require.ErrorIs(t, err, ErrLibraryNotFound)

	libs, err = c.ReadLibraries(nil, gfx900, api.DataKindExecutable, api.LanguageNone)
	require.NoError(t, err)
	require.Empty(t, libs)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte("isas:\n  - name: a\n  - name: a\n"))
	require.Error(t, err)

	_, err = Parse([]byte("libraries:\n  source:\n    base: [x]\n"))
	require.Error(t, err)

	_, err = Parse([]byte("libraries:\n  bc:\n    cobol: [x]\n"))
	require.Error(t, err)

	c, err := Parse([]byte("isas:\n  - name: custom--gfx1\n"))
	require.NoError(t, err)
	tgt, ok := c.Lookup("custom--gfx1")
	require.True(t, ok)
	require.Equal(t, api.MetadataKindNull, tgt.Metadata.Kind())
}
