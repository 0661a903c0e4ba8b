package testutil

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Mach values of e_flags for a few AMD GPU processors.
const (
	MachGFX700 = 0x22
	MachGFX803 = 0x2a
	MachGFX900 = 0x2c
)

// ELFSymbol describes a symbol written by BuildELF.
type ELFSymbol struct {
	Name      string
	Type      elf.SymType
	Bind      elf.SymBind
	Value     uint64
	Size      uint64
	Undefined bool
	// Local forces STB_LOCAL; a zero Bind otherwise means global except for
	// file and section symbols.
	Local bool
}

// ELFObject describes a minimal little-endian ELF64 AMD GPU code object.
// ET_DYN objects get their symbols in .dynsym, everything else in .symtab.
type ELFObject struct {
	Type     elf.Type
	Mach     uint32
	Symbols  []ELFSymbol
	Metadata string // YAML for the "AMD" metadata note; empty omits the note
}

type elfSection struct {
	name    string
	typ     elf.SectionType
	flags   elf.SectionFlag
	data    []byte
	link    uint32
	info    uint32
	align   uint64
	entsize uint64
	nameOff uint32
	offset  uint64
}

type strtab struct{ buf bytes.Buffer }

func newStrtab() *strtab {
	s := &strtab{}
	s.buf.WriteByte(0)
	return s
}

func (s *strtab) add(name string) uint32 {
	if name == "" {
		return 0
	}
	off := uint32(s.buf.Len())
	s.buf.WriteString(name)
	s.buf.WriteByte(0)
	return off
}

// MetadataNote encodes an "AMD" note record of type 10 holding yamlText.
func MetadataNote(yamlText string) []byte {
	var b bytes.Buffer
	le := binary.LittleEndian
	name := []byte("AMD\x00")
	desc := []byte(yamlText)
	_ = binary.Write(&b, le, uint32(len(name)))
	_ = binary.Write(&b, le, uint32(len(desc)))
	_ = binary.Write(&b, le, uint32(10))
	b.Write(name)
	b.Write(desc)
	for b.Len()%4 != 0 {
		b.WriteByte(0)
	}
	return b.Bytes()
}

// BuildELF returns the bytes of obj. The result is readable by debug/elf.
func BuildELF(obj ELFObject) []byte {
	typ := obj.Type
	if typ == elf.ET_NONE {
		typ = elf.ET_REL
	}

	sections := []*elfSection{
		{}, // SHN_UNDEF
		{name: ".text", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, data: make([]byte, 16), align: 4},
	}
	const textIndex = 1

	if obj.Metadata != "" {
		sections = append(sections, &elfSection{
			name: ".note", typ: elf.SHT_NOTE, flags: elf.SHF_ALLOC, data: MetadataNote(obj.Metadata), align: 4,
		})
	}

	symName, strName, symType := ".symtab", ".strtab", elf.SHT_SYMTAB
	if typ == elf.ET_DYN {
		symName, strName, symType = ".dynsym", ".dynstr", elf.SHT_DYNSYM
	}

	strs := newStrtab()
	var syms bytes.Buffer
	syms.Write(make([]byte, elf.Sym64Size)) // null symbol
	for _, s := range obj.Symbols {
		shndx := uint16(textIndex)
		switch {
		case s.Undefined:
			shndx = uint16(elf.SHN_UNDEF)
		case s.Type == elf.STT_COMMON:
			shndx = uint16(elf.SHN_COMMON)
		case s.Type == elf.STT_FILE:
			shndx = uint16(elf.SHN_ABS)
		}
		bind := s.Bind
		if bind == elf.STB_LOCAL && !s.Local && s.Type != elf.STT_FILE && s.Type != elf.STT_SECTION {
			bind = elf.STB_GLOBAL
		}
		sym := elf.Sym64{
			Name:  strs.add(s.Name),
			Info:  elf.ST_INFO(bind, s.Type),
			Shndx: shndx,
			Value: s.Value,
			Size:  s.Size,
		}
		_ = binary.Write(&syms, binary.LittleEndian, sym)
	}

	symIndex := uint32(len(sections))
	sections = append(sections,
		&elfSection{name: symName, typ: symType, flags: elf.SHF_ALLOC, data: syms.Bytes(), link: symIndex + 1, info: 1, align: 8, entsize: elf.Sym64Size},
		&elfSection{name: strName, typ: elf.SHT_STRTAB, data: strs.buf.Bytes(), align: 1},
	)

	shstr := newStrtab()
	for _, s := range sections[1:] {
		s.nameOff = shstr.add(s.name)
	}
	shstrIndex := uint32(len(sections))
	shstrtab := &elfSection{name: ".shstrtab", typ: elf.SHT_STRTAB, align: 1}
	shstrtab.nameOff = shstr.add(".shstrtab")
	shstrtab.data = shstr.buf.Bytes()
	sections = append(sections, shstrtab)

	var body bytes.Buffer
	body.Write(make([]byte, 64))
	for _, s := range sections[1:] {
		for body.Len()%8 != 0 {
			body.WriteByte(0)
		}
		s.offset = uint64(body.Len())
		body.Write(s.data)
	}
	for body.Len()%8 != 0 {
		body.WriteByte(0)
	}
	shoff := uint64(body.Len())

	for _, s := range sections {
		sh := elf.Section64{
			Name:      s.nameOff,
			Type:      uint32(s.typ),
			Flags:     uint64(s.flags),
			Off:       s.offset,
			Size:      uint64(len(s.data)),
			Link:      s.link,
			Info:      s.info,
			Addralign: s.align,
			Entsize:   s.entsize,
		}
		_ = binary.Write(&body, binary.LittleEndian, sh)
	}

	hdr := elf.Header64{
		Type:      uint16(typ),
		Machine:   224, // EM_AMDGPU
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Flags:     obj.Mach,
		Ehsize:    64,
		Phentsize: 56,
		Shentsize: 64,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(shstrIndex),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr.Ident[elf.EI_OSABI] = 64 // ELFOSABI_AMDGPU_HSA

	var head bytes.Buffer
	_ = binary.Write(&head, binary.LittleEndian, hdr)

	out := body.Bytes()
	copy(out, head.Bytes())
	return out
}
