package engine

import "github.com/petrijr/comgr/pkg/api"

// actionSpec describes how DoAction selects inputs for an action and what
// it requires from the action info.
type actionSpec struct {
	input  api.DataKind
	output api.DataKind

	// aggregate actions run one stage over all qualifying inputs.
	aggregate bool

	requiresISA      bool
	requiresLanguage bool
	// includes passes include and precompiled header objects to the stage.
	includes bool
}

// inheritsISA reports whether an unset info ISA may be taken from the
// inputs.
func (s actionSpec) inheritsISA() bool { return !s.requiresISA }

var actionCatalog = map[api.ActionKind]actionSpec{
	api.ActionSourceToPreprocessor: {
		input: api.DataKindSource, output: api.DataKindSource,
		requiresISA: true, requiresLanguage: true, includes: true,
	},
	api.ActionCompileSourceToBC: {
		input: api.DataKindSource, output: api.DataKindBC,
		requiresISA: true, requiresLanguage: true, includes: true,
	},
	api.ActionLinkBCToBC: {
		input: api.DataKindBC, output: api.DataKindBC, aggregate: true,
	},
	api.ActionOptimizeBCToBC: {
		input: api.DataKindBC, output: api.DataKindBC,
	},
	api.ActionCodegenBCToRelocatable: {
		input: api.DataKindBC, output: api.DataKindRelocatable,
	},
	api.ActionCodegenBCToAssembly: {
		input: api.DataKindBC, output: api.DataKindSource,
	},
	api.ActionLinkRelocatableToRelocatable: {
		input: api.DataKindRelocatable, output: api.DataKindRelocatable, aggregate: true,
	},
	api.ActionLinkRelocatableToExecutable: {
		input: api.DataKindRelocatable, output: api.DataKindExecutable, aggregate: true,
	},
	api.ActionAssembleSourceToRelocatable: {
		input: api.DataKindSource, output: api.DataKindRelocatable,
		requiresISA: true, includes: true,
	},
	api.ActionDisassembleRelocatableToSource: {
		input: api.DataKindRelocatable, output: api.DataKindSource,
	},
	api.ActionDisassembleExecutableToSource: {
		input: api.DataKindExecutable, output: api.DataKindSource,
	},
	api.ActionDisassembleBytesToSource: {
		input: api.DataKindBytes, output: api.DataKindSource,
		requiresISA: true,
	},
}
