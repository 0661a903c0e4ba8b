package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/comgr/internal/toolchain"
	"github.com/petrijr/comgr/pkg/api"
)

// DoAction runs kind over the qualifying members of input and stores the
// produced objects in result.
func (m *manager) DoAction(ctx context.Context, kind api.ActionKind, infoH api.ActionInfo, inputH, resultH api.DataSet) error {
	spec, ok := actionCatalog[kind]
	if !ok {
		return api.Invalidf("unknown action %s", kind)
	}
	ai, err := m.resolveInfo(infoH)
	if err != nil {
		return err
	}
	in, err := m.resolveSet(inputH)
	if err != nil {
		return err
	}
	out, err := m.resolveSet(resultH)
	if err != nil {
		return err
	}

	cfg := ai.snapshot()
	inputs := m.snapshotMembers(in, spec.input)
	var includes []snapshot
	if spec.includes {
		includes = m.snapshotMembers(in, api.DataKindInclude, api.DataKindPrecompiledHeader)
	}

	isaName, err := resolveISA(kind, spec, cfg, inputs)
	if err != nil {
		return err
	}
	if spec.requiresLanguage && cfg.language == api.LanguageNone {
		return api.Invalidf("%s requires a language", kind)
	}

	run := &api.ActionRun{
		ID:        uuid.NewString(),
		Action:    kind,
		ISAName:   isaName,
		Language:  cfg.language,
		Options:   cfg.options,
		Inputs:    len(inputs),
		StartedAt: time.Now(),
	}

	// Inputs are snapshotted, so result may be the input set.
	m.releaseAll(m.removeKinds(out, spec.output, api.DataKindLog, api.DataKindDiagnostic))

	m.observer.OnActionStart(ctx, run)
	m.journal(ctx, run, api.EventActionStarted, 0, fmt.Sprintf("%d inputs", len(inputs)))

	d := &dispatch{m: m, run: run, spec: spec, cfg: cfg, out: out}
	err = d.stages(ctx, inputs, includes)
	if cfg.logging {
		if logErr := d.appendLog(err); logErr != nil && err == nil {
			err = logErr
		}
	}
	run.FinishedAt = time.Now()

	if err != nil {
		run.Err = err
		m.observer.OnActionFailed(ctx, run, err)
		m.journal(ctx, run, api.EventActionFailed, 0, err.Error())
		return err
	}
	m.observer.OnActionCompleted(ctx, run)
	m.journal(ctx, run, api.EventActionCompleted, 0, fmt.Sprintf("%d outputs", run.Outputs))
	return nil
}

// snapshotMembers copies the members of set whose kind is one of kinds,
// in insertion order.
func (m *manager) snapshotMembers(s *dataSet, kinds ...api.DataKind) []snapshot {
	s.mu.Lock()
	var objs []*dataObject
	for _, h := range s.members {
		d, err := m.data.Resolve(h)
		if err == nil && matchesKind(d.kind, kinds) {
			objs = append(objs, d)
		}
	}
	s.mu.Unlock()

	out := make([]snapshot, 0, len(objs))
	for _, d := range objs {
		out = append(out, d.snapshot())
	}
	return out
}

// resolveISA picks the ISA of an action: the info ISA when set, otherwise
// the single ISA shared by every input.
func resolveISA(kind api.ActionKind, spec actionSpec, cfg infoConfig, inputs []snapshot) (string, error) {
	if cfg.isa != "" {
		return cfg.isa, nil
	}
	if !spec.inheritsISA() {
		return "", api.Invalidf("%s requires an isa name", kind)
	}
	if len(inputs) == 0 {
		return "", api.Invalidf("%s: no isa name and no inputs to take it from", kind)
	}

	isaName := ""
	for i, in := range inputs {
		name := toolchain.InputName(in.name, i)
		switch {
		case in.isa == "":
			return "", api.Invalidf("%s: input %q has no isa", kind, name)
		case isaName != "" && in.isa != isaName:
			return "", api.Invalidf("%s: input %q targets %s, expected %s", kind, name, in.isa, isaName)
		}
		isaName = in.isa
	}
	return isaName, nil
}

// dispatch is the state of one DoAction call once preconditions passed.
type dispatch struct {
	m    *manager
	run  *api.ActionRun
	spec actionSpec
	cfg  infoConfig
	out  *dataSet
	log  strings.Builder
}

func objects(snaps []snapshot, first int) []toolchain.Object {
	out := make([]toolchain.Object, 0, len(snaps))
	for i, s := range snaps {
		out = append(out, toolchain.Object{Name: toolchain.InputName(s.name, first+i), Kind: s.kind, Data: s.data})
	}
	return out
}

func (d *dispatch) stages(ctx context.Context, inputs, includes []snapshot) error {
	type item struct {
		index  int
		inputs []snapshot
	}
	var items []item
	switch {
	case d.spec.aggregate && len(inputs) > 0:
		items = []item{{index: 0, inputs: inputs}}
	case !d.spec.aggregate:
		for i, in := range inputs {
			items = append(items, item{index: i, inputs: []snapshot{in}})
		}
	}

	incl := objects(includes, 0)
	for n, it := range items {
		req := toolchain.Request{
			Action:     d.run.Action,
			OutputKind: d.spec.output,
			ISAName:    d.run.ISAName,
			Language:   d.cfg.language,
			Options:    d.cfg.optionList(),
			WorkingDir: d.cfg.workingDir,
			Index:      it.index,
			Inputs:     objects(it.inputs, it.index),
			Includes:   incl,
		}
		if err := d.stage(ctx, n, req); err != nil {
			return err
		}
	}
	return nil
}

// itemName names a stage invocation after its input, or after its output
// for aggregate actions.
func (d *dispatch) itemName(req toolchain.Request) string {
	if d.spec.aggregate || len(req.Inputs) == 0 {
		return toolchain.OutputName(req)
	}
	return req.Inputs[0].Name
}

func (d *dispatch) stage(ctx context.Context, n int, req toolchain.Request) error {
	m := d.m
	name := d.itemName(req)

	m.observer.OnItemStart(ctx, d.run, name, n)
	m.journal(ctx, d.run, api.EventItemStarted, n, name)

	start := time.Now()
	res, stageErr := m.processor.Process(ctx, req)
	duration := time.Since(start)
	if res == nil {
		res = &toolchain.Result{}
	}
	if res.Cached {
		d.run.CacheHits++
		m.journal(ctx, d.run, api.EventItemCached, n, name)
	}
	d.stageLog(name, res, stageErr)

	addErr := d.appendDiagnostic(name, res.Diagnostics, stageErr)
	if addErr == nil && stageErr == nil {
		addErr = d.appendOutputs(res.Outputs)
	}

	itemErr := stageErr
	if itemErr == nil {
		itemErr = addErr
	}
	m.observer.OnItemCompleted(ctx, d.run, name, n, itemErr, duration)
	if itemErr != nil {
		m.journal(ctx, d.run, api.EventItemFailed, n, itemErr.Error())
	} else {
		m.journal(ctx, d.run, api.EventItemCompleted, n, name)
	}

	if stageErr != nil {
		return stageFailure(d.run.Action, name, stageErr)
	}
	return addErr
}

// stageFailure reports a processor error as ErrError. Errors that already
// carry another status are flattened so StatusOf cannot pick it up.
func stageFailure(action api.ActionKind, name string, err error) error {
	if api.StatusOf(err) != api.StatusError {
		return fmt.Errorf("%w: %s: %s: %v", api.ErrError, action, name, err)
	}
	return fmt.Errorf("%w: %s: %s: %w", api.ErrError, action, name, err)
}

func (d *dispatch) stageLog(name string, res *toolchain.Result, err error) {
	if !d.cfg.logging {
		return
	}
	fmt.Fprintf(&d.log, "== %s\n", name)
	d.log.Write(res.Log)
	if len(res.Log) > 0 && res.Log[len(res.Log)-1] != '\n' {
		d.log.WriteByte('\n')
	}
	if err != nil && len(res.Log) == 0 {
		fmt.Fprintf(&d.log, "error: %v\n", err)
	}
}

// addObject creates an object owned by the result set.
func (d *dispatch) addObject(kind api.DataKind, name string, data []byte) error {
	obj := &dataObject{kind: kind, name: name, data: data}
	if kind.ISASpecific() {
		obj.isa = d.m.deriveISA(kind, data)
		if obj.isa == "" {
			obj.isa = d.run.ISAName
		}
	}
	h, err := d.m.data.Allocate(obj)
	if err != nil {
		return tableError("store "+name, err)
	}
	d.m.appendData(d.out, h)
	return nil
}

// appendDiagnostic records tool diagnostics, or the failure itself when the
// tool printed nothing.
func (d *dispatch) appendDiagnostic(name string, diag []byte, stageErr error) error {
	if len(diag) == 0 {
		if stageErr == nil {
			return nil
		}
		diag = []byte(stageErr.Error() + "\n")
	}
	return d.addObject(api.DataKindDiagnostic, name+".diag", append([]byte{}, diag...))
}

func (d *dispatch) appendOutputs(outputs []toolchain.Object) error {
	for _, o := range outputs {
		kind := o.Kind
		if !kind.Concrete() {
			kind = d.spec.output
		}
		if err := d.addObject(kind, o.Name, append([]byte{}, o.Data...)); err != nil {
			return err
		}
		if kind == d.spec.output {
			d.run.Outputs++
		}
	}
	return nil
}

// appendLog stores the run log as a log object and copies it to the log sink.
func (d *dispatch) appendLog(runErr error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "action: %s\n", d.run.Action)
	fmt.Fprintf(&b, "isa: %s\n", d.run.ISAName)
	fmt.Fprintf(&b, "language: %s\n", d.run.Language)
	fmt.Fprintf(&b, "options: %s\n", d.run.Options)
	if d.cfg.workingDir != "" {
		fmt.Fprintf(&b, "working-directory: %s\n", d.cfg.workingDir)
	}
	b.WriteString(d.log.String())
	if runErr != nil {
		fmt.Fprintf(&b, "result: error: %v\n", runErr)
	} else {
		fmt.Fprintf(&b, "result: success, %d outputs\n", d.run.Outputs)
	}
	text := b.String()

	if sink := d.m.logSink; sink != nil {
		d.m.sinkMu.Lock()
		_, err := sink.Write([]byte(text))
		d.m.sinkMu.Unlock()
		if err != nil {
			d.m.logger.Warn("write action log", slog.Any("error", err))
		}
	}
	return d.addObject(api.DataKindLog, d.run.Action.String()+".log", []byte(text))
}

// journal appends an event to the action journal. Journal failures never
// fail the action.
func (m *manager) journal(ctx context.Context, run *api.ActionRun, typ api.EventType, item int, detail string) {
	ev := api.ActionEvent{
		RunID:   run.ID,
		At:      time.Now(),
		Type:    typ,
		Action:  run.Action.String(),
		ISAName: run.ISAName,
		Item:    item,
		Detail:  detail,
	}
	if err := m.events.AppendEvent(context.WithoutCancel(ctx), ev); err != nil {
		m.logger.WarnContext(ctx, "append action event",
			slog.String("run_id", run.ID),
			slog.String("type", string(typ)),
			slog.Any("error", err),
		)
	}
}
