package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeTool records its command line in calls.log, then writes its own name
// followed by the contents of every existing file argument to the -o file,
// or to stdout when there is no -o.
const fakeTool = `#!/bin/sh
tool=$(basename "$0")
echo "$tool $*" >> "$(dirname "$0")/calls.log"
out=""
files=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2; continue ;;
  esac
  if [ -f "$1" ]; then files="$files $1"; fi
  shift
done
%STDERR%
if [ -n "$out" ]; then
  { echo "$tool"; cat $files; } > "$out"
else
  echo "$tool"
  cat $files
fi
`

// FakeToolchain writes stand-ins for the LLVM tools into a temp directory
// and returns it. Tests using it are skipped on Windows.
func FakeToolchain(t *testing.T, tools ...string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain needs a POSIX shell")
	}
	dir := t.TempDir()
	for _, tool := range tools {
		writeTool(t, dir, tool, strings.Replace(fakeTool, "%STDERR%", "", 1))
	}
	return dir
}

// WarningTool replaces tool with a variant that prints msg to stderr and
// still succeeds.
func WarningTool(t *testing.T, dir, tool, msg string) {
	t.Helper()
	writeTool(t, dir, tool, strings.Replace(fakeTool, "%STDERR%", "echo '"+msg+"' >&2", 1))
}

// FailingTool replaces tool with a variant that prints msg to stderr and
// exits with status 1.
func FailingTool(t *testing.T, dir, tool, msg string) {
	t.Helper()
	script := "#!/bin/sh\n" +
		"echo \"$(basename \"$0\") $*\" >> \"$(dirname \"$0\")/calls.log\"\n" +
		"echo '" + msg + "' >&2\n" +
		"exit 1\n"
	writeTool(t, dir, tool, script)
}

// ToolCalls returns the command lines recorded by the fake tools in dir.
func ToolCalls(t *testing.T, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "calls.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read calls.log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func writeTool(t *testing.T, dir, tool, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, tool), []byte(script), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", tool, err)
	}
}
