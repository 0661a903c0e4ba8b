package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/petrijr/comgr/internal/logging"
	"github.com/petrijr/comgr/pkg/api"
)

// ExecConfig configures an ExecProcessor.
type ExecConfig struct {
	// ToolchainDir holds the LLVM tools. Empty means PATH lookup.
	ToolchainDir string
	// TempDir is the parent of the per-invocation workspaces. Empty means
	// os.TempDir().
	TempDir string
	// SaveTemps keeps the workspace of every invocation.
	SaveTemps bool
	// Verbose adds tool stdout to the log of each invocation.
	Verbose bool
	// Env is appended to the process environment of every tool.
	Env []string

	Logger *slog.Logger
}

// ExecProcessor runs LLVM tools as child processes.
type ExecProcessor struct {
	cfg    ExecConfig
	logger *slog.Logger
}

var _ Processor = (*ExecProcessor)(nil)

func NewExecProcessor(cfg ExecConfig) *ExecProcessor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecProcessor{cfg: cfg, logger: logger}
}

func (p *ExecProcessor) toolPath(tool string) string {
	if p.cfg.ToolchainDir == "" {
		return tool
	}
	return filepath.Join(p.cfg.ToolchainDir, tool)
}

// Process writes the inputs to a fresh workspace, runs the tool for
// req.Action and collects the output file or stdout.
func (p *ExecProcessor) Process(ctx context.Context, req Request) (*Result, error) {
	dir, err := os.MkdirTemp(p.cfg.TempDir, "comgr-"+req.Action.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: create workspace: %v", ErrStageFailed, err)
	}
	if p.cfg.SaveTemps {
		p.logger.InfoContext(ctx, "stage_temps_saved", slog.String("action", req.Action.String()), slog.String("dir", dir))
	} else {
		defer os.RemoveAll(dir)
	}

	ws, err := p.prepare(dir, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStageFailed, err)
	}
	cmd, err := buildCommand(req, ws)
	if err != nil {
		return nil, err
	}

	return p.run(ctx, req, cmd, ws)
}

func (p *ExecProcessor) prepare(dir string, req Request) (workspace, error) {
	ws := workspace{
		includeDir: filepath.Join(dir, "include"),
		output:     filepath.Join(dir, "out", OutputName(req)),
	}
	if err := os.MkdirAll(filepath.Dir(ws.output), 0o755); err != nil {
		return ws, err
	}
	if err := os.MkdirAll(ws.includeDir, 0o755); err != nil {
		return ws, err
	}

	for i, in := range req.Inputs {
		data := in.Data
		if req.Action == api.ActionDisassembleBytesToSource {
			data = hexListing(data)
		}
		// Each input gets its own directory so equal names cannot collide.
		path, err := writeFile(filepath.Join(dir, "in", strconv.Itoa(i)), InputName(in.Name, req.Index+i), data)
		if err != nil {
			return ws, err
		}
		ws.inputs = append(ws.inputs, path)
	}

	for i, inc := range req.Includes {
		if inc.Kind == api.DataKindPrecompiledHeader {
			path, err := writeFile(filepath.Join(dir, "pch", strconv.Itoa(i)), InputName(inc.Name, i), inc.Data)
			if err != nil {
				return ws, err
			}
			ws.pchs = append(ws.pchs, path)
			continue
		}
		if _, err := writeFile(ws.includeDir, inc.Name, inc.Data); err != nil {
			return ws, err
		}
	}
	return ws, nil
}

// writeFile writes data to dir/name. name may contain subdirectories but
// must stay inside dir.
func writeFile(dir, name string, data []byte) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("object name %q escapes the workspace", name)
	}
	path := filepath.Join(dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (p *ExecProcessor) run(ctx context.Context, req Request, c command, ws workspace) (*Result, error) {
	cmd := exec.CommandContext(ctx, p.toolPath(c.tool), c.args...)
	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}
	if len(p.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), p.cfg.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if p.cfg.Verbose {
		w := logging.NewWriter(p.logger.With(slog.String("tool", c.tool)), logging.LevelDebug, "stage_stderr")
		defer w.Flush()
		cmd.Stderr = io.MultiWriter(&stderr, w)
	}

	p.logger.DebugContext(ctx, "stage_command",
		slog.String("action", req.Action.String()),
		slog.String("command", c.String()),
	)
	runErr := cmd.Run()

	res := &Result{Diagnostics: stderr.Bytes()}
	var log bytes.Buffer
	fmt.Fprintf(&log, "command: %s\n", c)
	if p.cfg.Verbose && !c.stdoutIsOutput && stdout.Len() > 0 {
		log.Write(stdout.Bytes())
	}
	if stderr.Len() > 0 {
		log.Write(stderr.Bytes())
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			fmt.Fprintf(&log, "cancelled: %v\n", ctx.Err())
			runErr = fmt.Errorf("%w: %s: %v", ErrStageFailed, c.tool, ctx.Err())
		case errors.As(runErr, &exitErr):
			fmt.Fprintf(&log, "exit status %d\n", exitErr.ExitCode())
			runErr = fmt.Errorf("%w: %s exited with status %d", ErrStageFailed, c.tool, exitErr.ExitCode())
		default:
			fmt.Fprintf(&log, "error: %v\n", runErr)
			runErr = fmt.Errorf("%w: run %s: %v", ErrStageFailed, c.tool, runErr)
		}
		res.Log = log.Bytes()
		return res, runErr
	}

	var data []byte
	if c.stdoutIsOutput {
		data = stdout.Bytes()
	} else {
		out, err := os.ReadFile(ws.output)
		if err != nil {
			fmt.Fprintf(&log, "error: missing output: %v\n", err)
			res.Log = log.Bytes()
			return res, fmt.Errorf("%w: %s produced no output", ErrStageFailed, c.tool)
		}
		data = out
	}
	res.Log = log.Bytes()
	res.Outputs = []Object{{Name: OutputName(req), Kind: req.OutputKind, Data: data}}
	return res, nil
}
