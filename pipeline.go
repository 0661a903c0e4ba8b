package comgr

import (
	"context"
	"fmt"

	"github.com/petrijr/comgr/pkg/api"
)

// Pipeline chains actions so that each step's result set feeds the next
// step's input:
//
//	p := comgr.NewPipeline("vadd").
//	    Then(api.ActionCompileSourceToBC).
//	    Then(api.ActionLinkBCToBC).WithDeviceLibraries().
//	    Then(api.ActionCodegenBCToRelocatable).
//	    Then(api.ActionLinkRelocatableToExecutable)
//
//	out, err := p.Run(ctx, m, info, sources)
type Pipeline struct {
	name  string
	steps []pipelineStep
}

type pipelineStep struct {
	action ActionKind
	// info overrides the action info passed to Run when non-zero.
	info ActionInfo
	// libs adds the default bitcode device libraries to the step input.
	libs bool
}

// NewPipeline creates an empty pipeline with the given name.
func NewPipeline(name string) *Pipeline {
	return &Pipeline{name: name}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Actions returns the actions of the pipeline in order.
func (p *Pipeline) Actions() []ActionKind {
	out := make([]ActionKind, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.action
	}
	return out
}

// Then appends an action run with the info passed to Run.
func (p *Pipeline) Then(action ActionKind) *Pipeline {
	return p.ThenWithInfo(action, ActionInfo{})
}

// ThenWithInfo appends an action run with its own action info.
func (p *Pipeline) ThenWithInfo(action ActionKind, info ActionInfo) *Pipeline {
	if !action.Valid() {
		panic(fmt.Sprintf("comgr: pipeline %q: invalid action %d", p.name, int(action)))
	}
	p.steps = append(p.steps, pipelineStep{action: action, info: info})
	return p
}

// WithDeviceLibraries makes the last added step link against the default
// bitcode device libraries for the step's ISA and language.
func (p *Pipeline) WithDeviceLibraries() *Pipeline {
	if len(p.steps) == 0 {
		panic(fmt.Sprintf("comgr: pipeline %q: WithDeviceLibraries before any step", p.name))
	}
	p.steps[len(p.steps)-1].libs = true
	return p
}

// Run executes the steps in order against m. The returned set holds the
// final step's results and must be destroyed by the caller. input is not
// modified unless the first step uses device libraries. Intermediate sets
// are destroyed as soon as the next step has consumed them.
//
// The first failing step aborts the run and its error keeps its status.
// When that step's action failed, the returned set holds its partial
// results, diagnostics and log; otherwise it is zero.
func (p *Pipeline) Run(ctx context.Context, m Manager, info ActionInfo, input DataSet) (DataSet, error) {
	if len(p.steps) == 0 {
		return DataSet{}, api.Invalidf("pipeline %q has no steps", p.name)
	}

	current := input
	release := func() {
		if current != input {
			_ = m.DestroyDataSet(current)
		}
	}

	for i, step := range p.steps {
		stepInfo := info
		if step.info != (ActionInfo{}) {
			stepInfo = step.info
		}

		if step.libs {
			if err := addDeviceLibraries(m, stepInfo, current); err != nil {
				release()
				return DataSet{}, p.stepError(i, err)
			}
		}

		result, err := m.CreateDataSet()
		if err != nil {
			release()
			return DataSet{}, p.stepError(i, err)
		}
		if err := m.DoAction(ctx, step.action, stepInfo, current, result); err != nil {
			release()
			return result, p.stepError(i, err)
		}

		release()
		current = result
	}
	return current, nil
}

func (p *Pipeline) stepError(i int, err error) error {
	return fmt.Errorf("pipeline %s: step %d (%s): %w", p.name, i, p.steps[i].action, err)
}

func addDeviceLibraries(m Manager, info ActionInfo, set DataSet) error {
	isaName, err := m.ActionInfoGetISAName(info)
	if err != nil {
		return err
	}
	lang, err := m.ActionInfoGetLanguage(info)
	if err != nil {
		return err
	}
	return m.AddDefaultDeviceLibraries(isaName, api.DataKindBC, lang, set)
}
