// Package toolchain runs the stages behind each action: preprocessing,
// compilation, linking, optimization, code generation, assembly and
// disassembly. Stages are opaque to the dispatch engine; it only sees
// the Processor interface.
package toolchain

import (
	"context"
	"errors"

	"github.com/petrijr/comgr/pkg/api"
)

var (
	// ErrStageFailed is wrapped by every failure of a stage tool, including
	// tools that could not be started.
	ErrStageFailed = errors.New("stage failed")

	// ErrUnsupported is returned for requests no stage can serve, such as
	// an unsupported source language.
	ErrUnsupported = errors.New("unsupported stage request")

	// ErrNoProcessor is returned by a Registry without a processor for an
	// action.
	ErrNoProcessor = errors.New("no processor registered")
)

// Object is a named payload passed to or produced by a stage.
type Object struct {
	Name string
	Kind api.DataKind
	Data []byte
}

// Request is one stage invocation. Per-item actions send one input,
// aggregate actions send all of them.
type Request struct {
	Action     api.ActionKind
	OutputKind api.DataKind
	ISAName    string
	Language   api.Language
	Options    []string
	WorkingDir string

	// Index is the position of the first input among the qualifying inputs.
	Index    int
	Inputs   []Object
	Includes []Object
}

// Result is what a stage produced. Processors return a non-nil Result
// together with an error when the tool ran and failed, so diagnostics are
// not lost.
type Result struct {
	Outputs     []Object
	Diagnostics []byte
	Log         []byte
	Cached      bool
}

// Processor executes stage requests.
type Processor interface {
	Process(ctx context.Context, req Request) (*Result, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, req Request) (*Result, error)

func (f ProcessorFunc) Process(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
