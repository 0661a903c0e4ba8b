package toolchain

import (
	"fmt"
	"path"
	"strings"

	"github.com/petrijr/comgr/pkg/api"
)

// InputName returns name, or "input<index>" for unnamed objects.
func InputName(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("input%d", index)
	}
	return name
}

func stem(name string) string {
	base := path.Base(name)
	if ext := path.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// OutputName derives the name of the object produced for req.
func OutputName(req Request) string {
	first := InputName("", req.Index)
	if len(req.Inputs) > 0 {
		first = InputName(req.Inputs[0].Name, req.Index)
	}

	switch req.Action {
	case api.ActionSourceToPreprocessor:
		return stem(first) + ".i"
	case api.ActionCompileSourceToBC, api.ActionOptimizeBCToBC:
		return stem(first) + ".bc"
	case api.ActionLinkBCToBC:
		return "linked.bc"
	case api.ActionCodegenBCToRelocatable, api.ActionAssembleSourceToRelocatable:
		return stem(first) + ".o"
	case api.ActionLinkRelocatableToRelocatable:
		return "linked.o"
	case api.ActionLinkRelocatableToExecutable:
		return "a.so"
	default:
		return stem(first) + ".s"
	}
}
