package cli

import (
	"bytes"
	"context"
	"debug/elf"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/comgr/internal/logging"
	"github.com/petrijr/comgr/internal/testutil"
	"github.com/petrijr/comgr/internal/toolchain"
)

const gfx803 = "amdgcn-amd-amdhsa--gfx803"

// isolateEnv clears the COMGR_* variables the CLI reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"COMGR_CONFIG", "COMGR_CACHE", "COMGR_CACHE_DSN", "COMGR_JOURNAL", "COMGR_JOURNAL_DSN",
		"COMGR_TOOLCHAIN_DIR", "COMGR_DEVICE_LIB_PATH", "COMGR_REDIRECT_LOGS", "COMGR_ISA_TABLE",
		"COMGR_MAX_HANDLES", "COMGR_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("COMGR_TEMP_DIR", t.TempDir())
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts := &Options{EnvFile: filepath.Join(t.TempDir(), "absent.env"), LogLevel: logging.LevelInfo}
	cmd := newRootCommand(opts, logging.Discard())
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	isolateEnv(t)
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "comgr 1.0\n", out)
}

func TestISACommands(t *testing.T) {
	isolateEnv(t)

	out, _, err := runCLI(t, "isa", "list")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(out, "\n"), gfx803)

	out, _, err = runCLI(t, "isa", "metadata", gfx803)
	require.NoError(t, err)
	assert.Contains(t, out, "Processor: gfx803")

	_, _, err = runCLI(t, "isa", "metadata", "amdgcn-amd-amdhsa--gfx1")
	assert.Error(t, err)
}

func TestActionCommand_Pipeline(t *testing.T) {
	isolateEnv(t)
	tools := testutil.FakeToolchain(t, toolchain.Tools...)
	dir := t.TempDir()
	src := writeInput(t, dir, "a.cl", "kernel void a() {}\n")
	hdr := writeInput(t, dir, "defs.h", "#define N 1\n")
	outDir := filepath.Join(dir, "out")

	stdout, stderr, err := runCLI(t, "action", "compile-source-to-bc", src,
		"--toolchain-dir", tools,
		"--isa", gfx803, "--language", "opencl-1.2",
		"-I", hdr,
		"--then", "codegen-bc-to-relocatable",
		"--log", "-o", outDir)
	require.NoError(t, err)

	obj, err := os.ReadFile(filepath.Join(outDir, "a.o"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(obj), "llc\nclang\n"), string(obj))
	assert.Contains(t, stdout, filepath.Join(outDir, "a.o"))
	assert.Contains(t, stdout, "relocatable")
	assert.Contains(t, stderr, "command: "+filepath.Join(tools, "llc"), "the log of the last step")

	calls := testutil.ToolCalls(t, tools)
	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[0], "clang "))
}

func TestActionCommand_Failure(t *testing.T) {
	isolateEnv(t)
	tools := testutil.FakeToolchain(t, toolchain.Tools...)
	testutil.FailingTool(t, tools, toolchain.ToolClang, "a.cl:1:1: error: bad kernel")
	src := writeInput(t, t.TempDir(), "a.cl", "kernel\n")

	_, stderr, err := runCLI(t, "action", "compile-source-to-bc", src,
		"--toolchain-dir", tools, "--isa", gfx803, "--language", "opencl-2.0")
	require.Error(t, err)
	assert.Contains(t, stderr, "error: bad kernel", "diagnostics are printed")
}

func TestActionCommand_Errors(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	src := writeInput(t, dir, "a.cl", "kernel\n")

	_, _, err := runCLI(t, "action", "compile-everything", src)
	assert.ErrorContains(t, err, "unknown action")

	_, _, err = runCLI(t, "action", "compile-source-to-bc", src, "--device-libs")
	assert.ErrorContains(t, err, "--device-libs")

	_, _, err = runCLI(t, "action", "compile-source-to-bc", writeInput(t, dir, "a.txt", "x"), "--isa", gfx803)
	assert.ErrorContains(t, err, "--kind")

	_, _, err = runCLI(t, "action", "compile-source-to-bc", src, "--language", "fortran")
	assert.ErrorContains(t, err, "unknown language")
}

func TestSymbolsAndMetadataCommands(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	so := filepath.Join(dir, "k.so")
	require.NoError(t, os.WriteFile(so, testutil.BuildELF(testutil.ELFObject{
		Type: elf.ET_DYN,
		Mach: testutil.MachGFX803,
		Symbols: []testutil.ELFSymbol{
			{Name: "vadd", Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Value: 0x100, Size: 64},
			{Name: "printf", Type: elf.STT_NOTYPE, Bind: elf.STB_GLOBAL, Undefined: true},
		},
		Metadata: "Version: [ 1, 0 ]\nKernels:\n  - Name: vadd\n    SymbolName: vadd.kd\n",
	}), 0o644))

	out, _, err := runCLI(t, "symbols", so)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "0000000000000100")
	assert.Contains(t, lines[0], "vadd")
	assert.True(t, strings.HasSuffix(lines[1], "printf U"), lines[1])

	out, _, err = runCLI(t, "metadata", so)
	require.NoError(t, err)
	assert.Contains(t, out, "Kernels:")
	assert.Contains(t, out, "SymbolName: vadd.kd")
	assert.Less(t, strings.Index(out, "Version"), strings.Index(out, "Kernels"), "map order is kept")

	_, _, err = runCLI(t, "symbols", so, "--kind", "source")
	assert.Error(t, err)
}

func TestJournalCommand(t *testing.T) {
	isolateEnv(t)

	_, _, err := runCLI(t, "journal")
	assert.ErrorIs(t, err, errJournalDisabled)

	dir := t.TempDir()
	t.Setenv("COMGR_JOURNAL", "sqlite")
	t.Setenv("COMGR_JOURNAL_DSN", "file:"+filepath.Join(dir, "journal.db"))
	tools := testutil.FakeToolchain(t, toolchain.Tools...)
	src := writeInput(t, dir, "a.cl", "kernel\n")

	_, _, err = runCLI(t, "action", "compile-source-to-bc", src,
		"--toolchain-dir", tools, "--isa", gfx803, "--language", "opencl-1.2", "-o", dir)
	require.NoError(t, err)

	out, _, err := runCLI(t, "journal", "-n", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "action.started")
	assert.Contains(t, out, "action.completed")
	assert.Contains(t, out, "compile-source-to-bc")

	runID := strings.Fields(strings.Split(out, "\n")[0])[1]
	out, _, err = runCLI(t, "journal", runID)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, runID), out)

	_, _, err = runCLI(t, "journal", "no-such-run")
	assert.Error(t, err)
}
