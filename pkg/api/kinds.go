package api

import "fmt"

// DataKind is the kind of payload a data object holds.
type DataKind int

const (
	// DataKindUndef is not a valid kind for any data object. As a filter it
	// means "all kinds" where an operation allows a wildcard.
	DataKindUndef DataKind = iota
	// DataKindSource is textual source (language source or assembly).
	DataKindSource
	// DataKindInclude is a header resolved by name from include directives.
	DataKindInclude
	// DataKindPrecompiledHeader is a precompiled header.
	DataKindPrecompiledHeader
	// DataKindDiagnostic holds diagnostics emitted by an action.
	DataKindDiagnostic
	// DataKindLog holds the log of an action.
	DataKindLog
	// DataKindBC is LLVM bitcode.
	DataKindBC
	// DataKindRelocatable is a relocatable machine code object.
	DataKindRelocatable
	// DataKindExecutable is an executable machine code object.
	DataKindExecutable
	// DataKindBytes is raw machine code bytes.
	DataKindBytes

	DataKindLast = DataKindBytes
)

var dataKindNames = map[DataKind]string{
	DataKindUndef:             "undef",
	DataKindSource:            "source",
	DataKindInclude:           "include",
	DataKindPrecompiledHeader: "precompiled-header",
	DataKindDiagnostic:        "diagnostic",
	DataKindLog:               "log",
	DataKindBC:                "bc",
	DataKindRelocatable:       "relocatable",
	DataKindExecutable:        "executable",
	DataKindBytes:             "bytes",
}

// Valid reports whether k is a defined kind, including DataKindUndef.
func (k DataKind) Valid() bool {
	return k >= DataKindUndef && k <= DataKindLast
}

// Concrete reports whether k is a defined kind other than DataKindUndef.
func (k DataKind) Concrete() bool {
	return k > DataKindUndef && k <= DataKindLast
}

// ISASpecific reports whether objects of kind k carry an ISA name.
func (k DataKind) ISASpecific() bool {
	switch k {
	case DataKindBC, DataKindRelocatable, DataKindExecutable:
		return true
	default:
		return false
	}
}

func (k DataKind) String() string {
	if name, ok := dataKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DataKind(%d)", int(k))
}

// ParseDataKind converts a kind name as printed by String back to a DataKind.
func ParseDataKind(s string) (DataKind, error) {
	for k, name := range dataKindNames {
		if name == s {
			return k, nil
		}
	}
	return DataKindUndef, Invalidf("unknown data kind %q", s)
}

// Language is the source language used by preprocessing and compilation.
type Language int

const (
	LanguageNone Language = iota
	LanguageOpenCL12
	LanguageOpenCL20
	LanguageHC

	LanguageLast = LanguageHC
)

var languageNames = map[Language]string{
	LanguageNone:     "none",
	LanguageOpenCL12: "opencl-1.2",
	LanguageOpenCL20: "opencl-2.0",
	LanguageHC:       "hc",
}

func (l Language) Valid() bool {
	return l >= LanguageNone && l <= LanguageLast
}

func (l Language) String() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

// ParseLanguage converts a language name as printed by String back to a Language.
func ParseLanguage(s string) (Language, error) {
	for l, name := range languageNames {
		if name == s {
			return l, nil
		}
	}
	return LanguageNone, Invalidf("unknown language %q", s)
}

// ActionKind selects the transformation performed by Manager.DoAction.
type ActionKind int

const (
	ActionSourceToPreprocessor ActionKind = iota
	ActionCompileSourceToBC
	ActionLinkBCToBC
	ActionOptimizeBCToBC
	ActionCodegenBCToRelocatable
	ActionCodegenBCToAssembly
	ActionLinkRelocatableToRelocatable
	ActionLinkRelocatableToExecutable
	ActionAssembleSourceToRelocatable
	ActionDisassembleRelocatableToSource
	ActionDisassembleExecutableToSource
	ActionDisassembleBytesToSource

	ActionLast = ActionDisassembleBytesToSource
)

var actionNames = map[ActionKind]string{
	ActionSourceToPreprocessor:           "source-to-preprocessor",
	ActionCompileSourceToBC:              "compile-source-to-bc",
	ActionLinkBCToBC:                     "link-bc-to-bc",
	ActionOptimizeBCToBC:                 "optimize-bc-to-bc",
	ActionCodegenBCToRelocatable:         "codegen-bc-to-relocatable",
	ActionCodegenBCToAssembly:            "codegen-bc-to-assembly",
	ActionLinkRelocatableToRelocatable:   "link-relocatable-to-relocatable",
	ActionLinkRelocatableToExecutable:    "link-relocatable-to-executable",
	ActionAssembleSourceToRelocatable:    "assemble-source-to-relocatable",
	ActionDisassembleRelocatableToSource: "disassemble-relocatable-to-source",
	ActionDisassembleExecutableToSource:  "disassemble-executable-to-source",
	ActionDisassembleBytesToSource:       "disassemble-bytes-to-source",
}

func (a ActionKind) Valid() bool {
	return a >= ActionSourceToPreprocessor && a <= ActionLast
}

func (a ActionKind) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ActionKind(%d)", int(a))
}

// ParseActionKind converts an action name as printed by String back to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return -1, Invalidf("unknown action %q", s)
}

// ActionKinds returns every action kind in declaration order.
func ActionKinds() []ActionKind {
	out := make([]ActionKind, 0, int(ActionLast)+1)
	for a := ActionSourceToPreprocessor; a <= ActionLast; a++ {
		out = append(out, a)
	}
	return out
}

// MetadataKind is the kind of a metadata node.
type MetadataKind int

const (
	MetadataKindNull MetadataKind = iota
	MetadataKindString
	MetadataKindMap
	MetadataKindList

	MetadataKindLast = MetadataKindList
)

func (k MetadataKind) String() string {
	switch k {
	case MetadataKindNull:
		return "null"
	case MetadataKindString:
		return "string"
	case MetadataKindMap:
		return "map"
	case MetadataKindList:
		return "list"
	default:
		return fmt.Sprintf("MetadataKind(%d)", int(k))
	}
}

// SymbolType classifies a machine code symbol.
type SymbolType int

const (
	SymbolTypeNoType SymbolType = iota
	SymbolTypeObject
	SymbolTypeFunc
	SymbolTypeSection
	SymbolTypeFile
	SymbolTypeCommon
)

func (t SymbolType) String() string {
	switch t {
	case SymbolTypeNoType:
		return "notype"
	case SymbolTypeObject:
		return "object"
	case SymbolTypeFunc:
		return "func"
	case SymbolTypeSection:
		return "section"
	case SymbolTypeFile:
		return "file"
	case SymbolTypeCommon:
		return "common"
	default:
		return fmt.Sprintf("SymbolType(%d)", int(t))
	}
}

// SymbolInfo selects the attribute returned by Manager.SymbolGetInfo.
//
// The dynamic type of the returned value is:
//
//	SymbolInfoNameLength  uint64
//	SymbolInfoName        string
//	SymbolInfoType        SymbolType
//	SymbolInfoSize        uint64
//	SymbolInfoIsUndefined bool
//	SymbolInfoValue       uint64
type SymbolInfo int

const (
	SymbolInfoNameLength SymbolInfo = iota
	SymbolInfoName
	SymbolInfoType
	SymbolInfoSize
	SymbolInfoIsUndefined
	SymbolInfoValue

	SymbolInfoLast = SymbolInfoValue
)

func (i SymbolInfo) Valid() bool {
	return i >= SymbolInfoNameLength && i <= SymbolInfoLast
}
