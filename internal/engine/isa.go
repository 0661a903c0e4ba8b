package engine

import (
	"bytes"
	"regexp"
)

var (
	irTriple = regexp.MustCompile(`(?m)^target triple = "([^"]+)"`)
	irCPU    = regexp.MustCompile(`"target-cpu"="([^"]+)"`)
)

// textualIRTarget reads the ISA name from textual LLVM IR: the module's
// target triple joined with the first target-cpu attribute. Binary bitcode
// is not decoded, so it only gets an ISA from the action that produced it.
func textualIRTarget(payload []byte) (string, bool) {
	if bytes.HasPrefix(payload, []byte("BC")) {
		return "", false
	}
	triple := irTriple.FindSubmatch(payload)
	cpu := irCPU.FindSubmatch(payload)
	if triple == nil || cpu == nil {
		return "", false
	}
	return string(triple[1]) + "--" + string(cpu[1]), true
}
