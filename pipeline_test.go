package comgr

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/petrijr/comgr/internal/engine"
	"github.com/petrijr/comgr/pkg/api"
)

func buildPipeline() *Pipeline {
	return NewPipeline("vadd").
		Then(api.ActionCompileSourceToBC).
		Then(api.ActionLinkBCToBC).
		Then(api.ActionCodegenBCToRelocatable).
		Then(api.ActionLinkRelocatableToExecutable)
}

func TestPipeline_Run(t *testing.T) {
	proc := &echoProcessor{}
	m := NewManagerWithProcessor(proc, nil)
	info := mustInfo(t, m, gfx803, api.LanguageOpenCL12)
	in := sourceSet(t, m, "a.cl", "b.cl")

	p := buildPipeline()
	if p.Name() != "vadd" || len(p.Actions()) != 4 {
		t.Fatalf("unexpected pipeline %q with %d actions", p.Name(), len(p.Actions()))
	}

	out, err := p.Run(context.Background(), m, info, in)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer m.DestroyDataSet(out)

	if n := countKind(t, m, out, api.DataKindExecutable); n != 1 {
		t.Fatalf("expected 1 executable, got %d", n)
	}
	exe, err := m.ActionDataGetData(out, api.DataKindExecutable, 0)
	if err != nil {
		t.Fatalf("ActionDataGetData: %v", err)
	}
	data, _ := m.GetData(exe)
	if string(data) != "// a.cl\n// b.cl\n" {
		t.Fatalf("unexpected executable payload %q", data)
	}
	isaName, _ := m.GetDataISAName(exe)
	if isaName != gfx803 {
		t.Fatalf("expected ISA %s, got %q", gfx803, isaName)
	}

	if got := len(proc.requests(api.ActionCompileSourceToBC)); got != 2 {
		t.Fatalf("expected 2 compile stages, got %d", got)
	}
	if got := len(proc.requests(api.ActionLinkBCToBC)); got != 1 {
		t.Fatalf("expected 1 link stage, got %d", got)
	}

	// The caller's set is untouched.
	if n := countKind(t, m, in, api.DataKindSource); n != 2 {
		t.Fatalf("input set changed: %d sources", n)
	}
	if n := countKind(t, m, in, api.DataKindBC); n != 0 {
		t.Fatalf("input set gained %d BC objects", n)
	}
}

func TestPipeline_StepFailure(t *testing.T) {
	proc := &echoProcessor{fail: map[ActionKind]bool{api.ActionCodegenBCToRelocatable: true}}
	m := NewManagerWithProcessor(proc, nil)
	info := mustInfo(t, m, gfx803, api.LanguageOpenCL12)

	partial, err := buildPipeline().Run(context.Background(), m, info, sourceSet(t, m, "a.cl"))
	if err == nil {
		t.Fatalf("expected error")
	}
	defer m.DestroyDataSet(partial)
	if n := countKind(t, m, partial, api.DataKindDiagnostic); n != 1 {
		t.Fatalf("expected the failing step's diagnostic, got %d", n)
	}
	if StatusOf(err) != StatusError {
		t.Fatalf("expected StatusError, got %v", StatusOf(err))
	}
	if !strings.Contains(err.Error(), "step 2 (codegen-bc-to-relocatable)") {
		t.Fatalf("error does not name the step: %v", err)
	}
	if got := len(proc.requests(api.ActionLinkRelocatableToExecutable)); got != 0 {
		t.Fatalf("steps after the failure ran %d times", got)
	}
}

func TestPipeline_InvalidUse(t *testing.T) {
	m := NewManagerWithProcessor(&echoProcessor{}, nil)
	info := mustInfo(t, m, gfx803, api.LanguageOpenCL12)

	_, err := NewPipeline("empty").Run(context.Background(), m, info, sourceSet(t, m))
	if StatusOf(err) != StatusErrorInvalidArgument {
		t.Fatalf("empty pipeline: expected invalid argument, got %v", err)
	}

	// The step info is validated by the manager.
	_, err = NewPipeline("bad-info").
		ThenWithInfo(api.ActionCompileSourceToBC, ActionInfo{Handle: 99}).
		Run(context.Background(), m, info, sourceSet(t, m, "a.cl"))
	if StatusOf(err) != StatusErrorInvalidArgument {
		t.Fatalf("bad info: expected invalid argument, got %v", err)
	}

	assertPanics(t, func() { NewPipeline("x").Then(api.ActionLast + 1) })
	assertPanics(t, func() { NewPipeline("x").WithDeviceLibraries() })
}

func TestPipeline_DeviceLibraries(t *testing.T) {
	libs := fstest.MapFS{}
	for _, name := range []string{
		"ocml.amdgcn.bc", "ockl.amdgcn.bc", "irif.amdgcn.bc",
		"oclc_isa_version_803.amdgcn.bc", "opencl.amdgcn.bc",
	} {
		libs[name] = &fstest.MapFile{Data: []byte("BC\xc0\xde")}
	}
	proc := &echoProcessor{}
	m := engine.NewManagerWithConfig(engine.Config{Processor: proc, DeviceLibs: libs})
	info := mustInfo(t, m, gfx803, api.LanguageOpenCL12)

	out, err := NewPipeline("with-libs").
		Then(api.ActionCompileSourceToBC).
		Then(api.ActionLinkBCToBC).WithDeviceLibraries().
		Run(context.Background(), m, info, sourceSet(t, m, "a.cl"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer m.DestroyDataSet(out)

	links := proc.requests(api.ActionLinkBCToBC)
	if len(links) != 1 || len(links[0].Inputs) != 6 {
		t.Fatalf("expected one link over 6 inputs, got %+v", links)
	}
	if links[0].Inputs[0].Name != "a.bc" || links[0].Inputs[1].Name != "ocml.amdgcn.bc" {
		t.Fatalf("unexpected link input order: %s, %s", links[0].Inputs[0].Name, links[0].Inputs[1].Name)
	}
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}
