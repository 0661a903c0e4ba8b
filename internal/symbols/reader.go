// Package symbols reads symbol tables and header fields of AMD GPU ELF code
// objects.
package symbols

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"

	"github.com/petrijr/comgr/pkg/api"
)

// MachineAMDGPU is the ELF e_machine value of AMD GPU code objects.
const MachineAMDGPU = elf.Machine(224)

// MachMask selects the processor (mach) field of e_flags.
const MachMask = 0xff

var (
	// ErrNotELF is returned for payloads that are not ELF files.
	ErrNotELF = errors.New("not an elf object")
	// ErrNoSymbolTable is returned when the requested table is absent.
	ErrNoSymbolTable = errors.New("no symbol table")
)

// Table selects which ELF symbol table to read.
type Table int

const (
	// SymTab is the static .symtab of relocatable objects.
	SymTab Table = iota
	// DynSym is the .dynsym of executables and shared objects.
	DynSym
)

func (t Table) String() string {
	if t == DynSym {
		return ".dynsym"
	}
	return ".symtab"
}

// Symbol is a decoded symbol table entry.
type Symbol struct {
	Name      string
	Type      api.SymbolType
	Size      uint64
	Value     uint64
	Undefined bool
	// Local is set for STB_LOCAL bindings.
	Local bool
}

// Read decodes every symbol of table, in table order, skipping the null entry.
func Read(payload []byte, table Table) ([]Symbol, error) {
	f, err := open(payload)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []elf.Symbol
	switch table {
	case DynSym:
		raw, err = f.DynamicSymbols()
	default:
		raw, err = f.Symbols()
	}
	if errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("%w: %s", ErrNoSymbolTable, table)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}

	out := make([]Symbol, 0, len(raw))
	for _, s := range raw {
		out = append(out, Symbol{
			Name:      s.Name,
			Type:      symbolType(elf.ST_TYPE(s.Info)),
			Size:      s.Size,
			Value:     s.Value,
			Undefined: s.Section == elf.SHN_UNDEF,
			Local:     elf.ST_BIND(s.Info) == elf.STB_LOCAL,
		})
	}
	return out, nil
}

// Mach returns the processor field of e_flags of an AMD GPU ELF object.
// ok is false for payloads that are not AMD GPU ELF objects.
func Mach(payload []byte) (mach uint32, ok bool) {
	f, err := open(payload)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	if f.Machine != MachineAMDGPU {
		return 0, false
	}
	return readFlags(payload, f) & MachMask, true
}

// IsELF reports whether payload starts with the ELF magic.
func IsELF(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte(elf.ELFMAG))
}

func open(payload []byte) (*elf.File, error) {
	if !IsELF(payload) {
		return nil, ErrNotELF
	}
	f, err := elf.NewFile(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}
	return f, nil
}

// readFlags extracts e_flags, which debug/elf does not expose.
func readFlags(payload []byte, f *elf.File) uint32 {
	off := 36 // ELF32
	if f.Class == elf.ELFCLASS64 {
		off = 48
	}
	if len(payload) < off+4 {
		return 0
	}
	return f.ByteOrder.Uint32(payload[off : off+4])
}

func symbolType(t elf.SymType) api.SymbolType {
	switch t {
	case elf.STT_OBJECT:
		return api.SymbolTypeObject
	case elf.STT_FUNC:
		return api.SymbolTypeFunc
	case elf.STT_SECTION:
		return api.SymbolTypeSection
	case elf.STT_FILE:
		return api.SymbolTypeFile
	case elf.STT_COMMON:
		return api.SymbolTypeCommon
	default:
		return api.SymbolTypeNoType
	}
}
