package toolchain

import (
	"fmt"
	"strings"

	"github.com/petrijr/comgr/internal/isa"
	"github.com/petrijr/comgr/pkg/api"
)

// Tool names, resolved in the toolchain directory or on PATH.
const (
	ToolClang   = "clang"
	ToolLink    = "llvm-link"
	ToolOpt     = "opt"
	ToolLLC     = "llc"
	ToolLLD     = "ld.lld"
	ToolObjdump = "llvm-objdump"
	ToolMC      = "llvm-mc"
)

// Tools lists every tool an ExecProcessor may run.
var Tools = []string{ToolClang, ToolLink, ToolOpt, ToolLLC, ToolLLD, ToolObjdump, ToolMC}

// command is a fully resolved tool invocation.
type command struct {
	tool string
	args []string
	// stdoutIsOutput means the tool prints its result instead of writing
	// the -o file.
	stdoutIsOutput bool
}

// workspace locates the files of one stage invocation.
type workspace struct {
	inputs     []string
	includeDir string
	pchs       []string
	output     string
}

func languageFlags(lang api.Language) ([]string, error) {
	switch lang {
	case api.LanguageOpenCL12:
		return []string{"-x", "cl", "-cl-std=CL1.2"}, nil
	case api.LanguageOpenCL20:
		return []string{"-x", "cl", "-cl-std=CL2.0"}, nil
	case api.LanguageHC:
		// Same as hcc-config --cxxflags.
		return []string{"-x", "c++", "-hc", "-std=c++amp"}, nil
	case api.LanguageNone:
		return nil, fmt.Errorf("%w: no source language", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: language %s", ErrUnsupported, lang)
	}
}

func buildCommand(req Request, ws workspace) (command, error) {
	triple, cpu := isa.SplitName(req.ISAName)
	opts := req.Options

	withOutput := func(tool string, args ...string) command {
		args = append(args, opts...)
		args = append(args, "-o", ws.output)
		args = append(args, ws.inputs...)
		return command{tool: tool, args: args}
	}

	switch req.Action {
	case api.ActionSourceToPreprocessor, api.ActionCompileSourceToBC:
		lang, err := languageFlags(req.Language)
		if err != nil {
			return command{}, err
		}
		args := []string{"-E"}
		if req.Action == api.ActionCompileSourceToBC {
			args = []string{"-c", "-emit-llvm"}
		}
		args = append(args, lang...)
		args = append(args, "--target="+triple, "-mcpu="+cpu, "-I"+ws.includeDir)
		for _, pch := range ws.pchs {
			args = append(args, "-include-pch", pch)
		}
		return withOutput(ToolClang, args...), nil

	case api.ActionLinkBCToBC:
		return withOutput(ToolLink), nil

	case api.ActionOptimizeBCToBC:
		return withOutput(ToolOpt, "-mtriple="+triple, "-mcpu="+cpu), nil

	case api.ActionCodegenBCToRelocatable:
		return withOutput(ToolLLC, "-mtriple="+triple, "-mcpu="+cpu, "-filetype=obj"), nil

	case api.ActionCodegenBCToAssembly:
		return withOutput(ToolLLC, "-mtriple="+triple, "-mcpu="+cpu, "-filetype=asm"), nil

	case api.ActionLinkRelocatableToRelocatable:
		return withOutput(ToolLLD, "-r"), nil

	case api.ActionLinkRelocatableToExecutable:
		return withOutput(ToolLLD, "-shared"), nil

	case api.ActionAssembleSourceToRelocatable:
		return withOutput(ToolMC, "-triple="+triple, "-mcpu="+cpu, "-filetype=obj", "-I"+ws.includeDir), nil

	case api.ActionDisassembleRelocatableToSource, api.ActionDisassembleExecutableToSource:
		args := append([]string{"-d", "--triple=" + triple, "--mcpu=" + cpu}, opts...)
		return command{tool: ToolObjdump, args: append(args, ws.inputs...), stdoutIsOutput: true}, nil

	case api.ActionDisassembleBytesToSource:
		args := append([]string{"-disassemble", "-triple=" + triple, "-mcpu=" + cpu}, opts...)
		return command{tool: ToolMC, args: append(args, ws.inputs...), stdoutIsOutput: true}, nil

	default:
		return command{}, fmt.Errorf("%w: action %s", ErrUnsupported, req.Action)
	}
}

// hexListing renders raw machine code the way llvm-mc -disassemble reads it.
func hexListing(data []byte) []byte {
	var b strings.Builder
	for i, c := range data {
		if i > 0 {
			if i%16 == 0 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		fmt.Fprintf(&b, "0x%02x", c)
	}
	if len(data) > 0 {
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func (c command) String() string {
	return c.tool + " " + strings.Join(c.args, " ")
}
