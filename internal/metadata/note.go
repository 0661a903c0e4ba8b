package metadata

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
)

// Note types of the AMD GPU code object notes.
const (
	NoteTypeHSAMetadata    = 10 // "AMD", YAML text
	NoteTypeAMDGPUMetadata = 32 // "AMDGPU", msgpack
)

// Note is a single ELF note record.
type Note struct {
	Name string
	Type uint32
	Desc []byte
}

var errTruncatedNote = errors.New("truncated elf note")

func align4(n uint32) uint64 { return (uint64(n) + 3) &^ 3 }

// ParseNotes splits the contents of a note section into records.
func ParseNotes(data []byte, order binary.ByteOrder) ([]Note, error) {
	var notes []Note
	for len(data) > 0 {
		if len(data) < 12 {
			return notes, errTruncatedNote
		}
		namesz := order.Uint32(data[0:4])
		descsz := order.Uint32(data[4:8])
		typ := order.Uint32(data[8:12])
		data = data[12:]

		nameEnd := align4(namesz)
		descEnd := nameEnd + align4(descsz)
		if uint64(len(data)) < nameEnd || uint64(len(data)) < nameEnd+uint64(descsz) {
			return notes, errTruncatedNote
		}
		name := string(bytes.TrimRight(data[:namesz], "\x00"))
		desc := data[nameEnd : nameEnd+uint64(descsz)]
		notes = append(notes, Note{Name: name, Type: typ, Desc: desc})

		if uint64(len(data)) < descEnd {
			break
		}
		data = data[descEnd:]
	}
	return notes, nil
}

// FromCodeObject returns the metadata tree embedded in an ELF code object.
// Objects without a YAML metadata note yield Null.
func FromCodeObject(payload []byte) (*Node, error) {
	f, err := elf.NewFile(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open code object: %w", err)
	}
	defer f.Close()

	for _, sec := range f.Sections {
		if sec.Type != elf.SHT_NOTE {
			continue
		}
		raw, err := sec.Data()
		if err != nil {
			return nil, fmt.Errorf("read section %s: %w", sec.Name, err)
		}
		notes, err := ParseNotes(raw, f.ByteOrder)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", sec.Name, err)
		}
		for _, n := range notes {
			if n.Name == "AMD" && n.Type == NoteTypeHSAMetadata {
				return Decode(bytes.TrimRight(n.Desc, "\x00"))
			}
		}
	}
	return Null, nil
}
