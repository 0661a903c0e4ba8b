package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/comgr/pkg/api"
)

func TestActionInfo_Defaults(t *testing.T) {
	m := newTestManager(t, Config{})
	ai, err := m.CreateActionInfo()
	require.NoError(t, err)

	isaName, err := m.ActionInfoGetISAName(ai)
	require.NoError(t, err)
	assert.Empty(t, isaName)

	lang, err := m.ActionInfoGetLanguage(ai)
	require.NoError(t, err)
	assert.Equal(t, api.LanguageNone, lang)

	opts, err := m.ActionInfoGetOptions(ai)
	require.NoError(t, err)
	assert.Empty(t, opts)

	dir, err := m.ActionInfoGetWorkingDirectoryPath(ai)
	require.NoError(t, err)
	assert.Empty(t, dir)

	logging, err := m.ActionInfoGetLogging(ai)
	require.NoError(t, err)
	assert.False(t, logging)
}

func TestActionInfo_SetAndClear(t *testing.T) {
	m := newTestManager(t, Config{})
	ai, err := m.CreateActionInfo()
	require.NoError(t, err)

	require.NoError(t, m.ActionInfoSetISAName(ai, gfx803))
	require.NoError(t, m.ActionInfoSetLanguage(ai, api.LanguageOpenCL20))
	require.NoError(t, m.ActionInfoSetOptions(ai, "-O3 -g"))
	require.NoError(t, m.ActionInfoSetWorkingDirectoryPath(ai, "/src"))
	require.NoError(t, m.ActionInfoSetLogging(ai, true))

	isaName, _ := m.ActionInfoGetISAName(ai)
	lang, _ := m.ActionInfoGetLanguage(ai)
	opts, _ := m.ActionInfoGetOptions(ai)
	dir, _ := m.ActionInfoGetWorkingDirectoryPath(ai)
	logging, _ := m.ActionInfoGetLogging(ai)
	assert.Equal(t, gfx803, isaName)
	assert.Equal(t, api.LanguageOpenCL20, lang)
	assert.Equal(t, "-O3 -g", opts)
	assert.Equal(t, "/src", dir)
	assert.True(t, logging)

	require.NoError(t, m.ActionInfoSetISAName(ai, ""))
	require.NoError(t, m.ActionInfoSetLanguage(ai, api.LanguageNone))
	require.NoError(t, m.ActionInfoSetOptions(ai, ""))
	isaName, _ = m.ActionInfoGetISAName(ai)
	lang, _ = m.ActionInfoGetLanguage(ai)
	opts, _ = m.ActionInfoGetOptions(ai)
	assert.Empty(t, isaName)
	assert.Equal(t, api.LanguageNone, lang)
	assert.Empty(t, opts)
}

func TestActionInfo_Validation(t *testing.T) {
	m := newTestManager(t, Config{})
	ai, err := m.CreateActionInfo()
	require.NoError(t, err)
	require.NoError(t, m.ActionInfoSetISAName(ai, gfx803))

	requireStatus(t, api.StatusErrorInvalidArgument, m.ActionInfoSetISAName(ai, "amdgcn-amd-amdhsa--gfx1234"))
	requireStatus(t, api.StatusErrorInvalidArgument, m.ActionInfoSetLanguage(ai, api.LanguageLast+1))

	isaName, err := m.ActionInfoGetISAName(ai)
	require.NoError(t, err)
	assert.Equal(t, gfx803, isaName, "a rejected value leaves the field unchanged")

	require.NoError(t, m.DestroyActionInfo(ai))
	requireStatus(t, api.StatusErrorInvalidArgument, m.ActionInfoSetLogging(ai, true))
}

func TestActionInfo_OptionList(t *testing.T) {
	cfg := infoConfig{options: "  -O3\t-mllvm  -amdgpu-early-inline-all \n"}
	assert.Equal(t, []string{"-O3", "-mllvm", "-amdgpu-early-inline-all"}, cfg.optionList())
	assert.Empty(t, infoConfig{}.optionList())
}

func TestISAEnumeration(t *testing.T) {
	m := newTestManager(t, Config{})
	require.Positive(t, m.ISACount())

	names := make(map[string]bool)
	for i := 0; i < m.ISACount(); i++ {
		name, err := m.ISAName(i)
		require.NoError(t, err)
		names[name] = true
	}
	assert.True(t, names[gfx803])
	assert.Len(t, names, m.ISACount())

	_, err := m.ISAName(m.ISACount())
	requireStatus(t, api.StatusErrorInvalidArgument, err)
	_, err = m.ISAName(-1)
	requireStatus(t, api.StatusErrorInvalidArgument, err)
}
