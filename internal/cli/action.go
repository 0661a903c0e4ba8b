package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrijr/comgr"
	"github.com/petrijr/comgr/pkg/api"
)

type actionFlags struct {
	isaName    string
	language   string
	options    string
	workingDir string
	logging    bool
	kind       string
	includes   []string
	outputDir  string
	deviceLibs bool
	then       []string
}

// newActionCommand creates the "action" subcommand that runs one action, or
// a chain of actions with --then, over the given files.
func newActionCommand(opts *Options) *cobra.Command {
	flags := &actionFlags{}
	cmd := &cobra.Command{
		Use:   "action KIND FILE...",
		Short: "Run an action over input files and write the results",
		Long: "Run an action over input files and write the results.\n\nKinds: " +
			strings.Join(actionNames(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, opts, flags, args[0], args[1:])
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.isaName, "isa", "", "Target ISA name, e.g. amdgcn-amd-amdhsa--gfx900")
	f.StringVar(&flags.language, "language", "none", "Source language (none, opencl-1.2, opencl-2.0, hc)")
	f.StringVar(&flags.options, "options", "", "Options passed to the stage tools")
	f.StringVar(&flags.workingDir, "working-dir", "", "Working directory of the stage tools")
	f.BoolVar(&flags.logging, "log", false, "Print the action log to stderr")
	f.StringVar(&flags.kind, "kind", "", "Data kind of the input files (default from extension)")
	f.StringSliceVarP(&flags.includes, "include", "I", nil, "Header files made available to includes")
	f.StringVarP(&flags.outputDir, "output-dir", "o", ".", "Directory receiving the results")
	f.BoolVar(&flags.deviceLibs, "device-libs", false, "Link the default device libraries at the first link-bc-to-bc step")
	f.StringSliceVar(&flags.then, "then", nil, "Actions run on the results, in order")

	return cmd
}

func actionNames() []string {
	var names []string
	for _, a := range api.ActionKinds() {
		names = append(names, a.String())
	}
	return names
}

func (f *actionFlags) pipeline(first string) (*comgr.Pipeline, error) {
	p := comgr.NewPipeline(first)
	libsAdded := false
	for _, name := range append([]string{first}, f.then...) {
		kind, err := api.ParseActionKind(name)
		if err != nil {
			return nil, err
		}
		p.Then(kind)
		if f.deviceLibs && !libsAdded && kind == api.ActionLinkBCToBC {
			p.WithDeviceLibraries()
			libsAdded = true
		}
	}
	if f.deviceLibs && !libsAdded {
		return nil, errors.New("--device-libs needs a link-bc-to-bc step")
	}
	return p, nil
}

func (f *actionFlags) actionInfo(m api.Manager) (api.ActionInfo, error) {
	lang, err := api.ParseLanguage(f.language)
	if err != nil {
		return api.ActionInfo{}, err
	}
	info, err := m.CreateActionInfo()
	if err != nil {
		return api.ActionInfo{}, err
	}
	for _, set := range []func() error{
		func() error { return m.ActionInfoSetISAName(info, f.isaName) },
		func() error { return m.ActionInfoSetLanguage(info, lang) },
		func() error { return m.ActionInfoSetOptions(info, f.options) },
		func() error { return m.ActionInfoSetWorkingDirectoryPath(info, f.workingDir) },
		func() error { return m.ActionInfoSetLogging(info, f.logging) },
	} {
		if err := set(); err != nil {
			_ = m.DestroyActionInfo(info)
			return api.ActionInfo{}, err
		}
	}
	return info, nil
}

func runAction(cmd *cobra.Command, opts *Options, flags *actionFlags, kind string, files []string) error {
	p, err := flags.pipeline(kind)
	if err != nil {
		return err
	}

	stack, err := openStack(cmd, opts)
	if err != nil {
		return err
	}
	defer stack.Close()
	m := stack.Manager

	info, err := flags.actionInfo(m)
	if err != nil {
		return err
	}
	defer m.DestroyActionInfo(info)

	input, err := m.CreateDataSet()
	if err != nil {
		return err
	}
	defer m.DestroyDataSet(input)

	for _, path := range files {
		k, err := kindOf(path, flags.kind)
		if err != nil {
			return err
		}
		if err := addFile(m, input, path, k); err != nil {
			return err
		}
	}
	for _, path := range flags.includes {
		if err := addFile(m, input, path, api.DataKindInclude); err != nil {
			return err
		}
	}

	result, runErr := p.Run(cmd.Context(), m, info, input)
	if result == (api.DataSet{}) {
		return runErr
	}
	defer m.DestroyDataSet(result)

	if err := printMembers(cmd.ErrOrStderr(), m, result, api.DataKindDiagnostic); err != nil {
		return err
	}
	if flags.logging {
		if err := printMembers(cmd.ErrOrStderr(), m, result, api.DataKindLog); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	return writeOutputs(cmd.OutOrStdout(), m, result, flags.outputDir)
}

func printMembers(w io.Writer, m api.Manager, set api.DataSet, kind api.DataKind) error {
	n, err := m.ActionDataCount(set, kind)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		_, data, err := setMember(m, set, kind, i)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func writeOutputs(w io.Writer, m api.Manager, set api.DataSet, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	written := 0
	for _, kind := range outputKinds {
		n, err := m.ActionDataCount(set, kind)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			name, data, err := setMember(m, set, kind, i)
			if err != nil {
				return err
			}
			if name == "" {
				name = fmt.Sprintf("output%d", written)
			}
			path := filepath.Join(dir, filepath.Base(name))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%d bytes\n", path, kind, len(data))
			written++
		}
	}
	return nil
}
