package engine

import (
	"errors"
	"fmt"

	"github.com/petrijr/comgr/internal/symbols"
	"github.com/petrijr/comgr/pkg/api"
)

// symbolRef is the value behind an api.Symbol handle.
type symbolRef struct {
	sym   symbols.Symbol
	owner *dataObject
	gen   uint64
}

func (m *manager) releaseSymbols(handles []uint64) {
	for _, h := range handles {
		m.symbols.Release(h)
	}
}

func symbolTable(kind api.DataKind) (symbols.Table, error) {
	switch kind {
	case api.DataKindRelocatable:
		return symbols.SymTab, nil
	case api.DataKindExecutable:
		return symbols.DynSym, nil
	default:
		return 0, api.Invalidf("data kind %s has no symbol table", kind)
	}
}

// objectSymbols returns the symbol handles of the current payload of h,
// creating them on first use. The handles belong to the data object and
// are released when its payload is replaced or it is freed.
func (m *manager) objectSymbols(h api.Data) ([]uint64, error) {
	d, err := m.resolveData(h)
	if err != nil {
		return nil, err
	}
	table, err := symbolTable(d.kind)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.freed {
		return nil, api.Invalidf("data object released")
	}
	if d.syms != nil && d.symGen == d.gen {
		return d.syms, nil
	}

	syms, err := symbols.Read(d.data, table)
	switch {
	case errors.Is(err, symbols.ErrNoSymbolTable):
		syms = nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", api.ErrError, err)
	}

	handles := make([]uint64, 0, len(syms))
	for _, s := range syms {
		sh, err := m.symbols.Allocate(&symbolRef{sym: s, owner: d, gen: d.gen})
		if err != nil {
			m.releaseSymbols(handles)
			return nil, tableError("create symbol", err)
		}
		handles = append(handles, sh)
	}
	d.syms = handles
	d.symGen = d.gen
	return handles, nil
}

func (m *manager) resolveSymbol(h api.Symbol) (symbols.Symbol, error) {
	ref, err := m.symbols.Resolve(h.Handle)
	if err != nil {
		return symbols.Symbol{}, tableError("symbol", err)
	}
	ref.owner.mu.Lock()
	stale := ref.owner.freed || ref.owner.gen != ref.gen
	ref.owner.mu.Unlock()
	if stale {
		return symbols.Symbol{}, api.Invalidf("symbol of a replaced or released data object")
	}
	return ref.sym, nil
}

func (m *manager) IterateSymbols(h api.Data, fn func(sym api.Symbol) error) error {
	if fn == nil {
		return api.Invalidf("nil symbol visitor")
	}
	handles, err := m.objectSymbols(h)
	if err != nil {
		return err
	}
	for i, sh := range handles {
		if err := fn(api.Symbol{Handle: sh}); err != nil {
			return fmt.Errorf("%w: symbol visitor stopped at symbol %d: %w", api.ErrError, i, err)
		}
	}
	return nil
}

func (m *manager) SymbolLookup(h api.Data, name string) (api.Symbol, error) {
	handles, err := m.objectSymbols(h)
	if err != nil {
		return api.Symbol{}, err
	}
	// Relocatable links may keep several locals of one name; a global or
	// weak definition wins over them, otherwise the first match does.
	var local api.Symbol
	found := false
	for _, sh := range handles {
		ref, err := m.symbols.Resolve(sh)
		if err != nil || ref.sym.Name != name {
			continue
		}
		if !ref.sym.Local {
			return api.Symbol{Handle: sh}, nil
		}
		if !found {
			local, found = api.Symbol{Handle: sh}, true
		}
	}
	if found {
		return local, nil
	}
	return api.Symbol{}, api.Errorf("symbol %q not found", name)
}

func (m *manager) SymbolGetInfo(h api.Symbol, attr api.SymbolInfo) (any, error) {
	if !attr.Valid() {
		return nil, api.Invalidf("unknown symbol attribute %d", int(attr))
	}
	sym, err := m.resolveSymbol(h)
	if err != nil {
		return nil, err
	}
	switch attr {
	case api.SymbolInfoNameLength:
		return uint64(len(sym.Name)), nil
	case api.SymbolInfoName:
		return sym.Name, nil
	case api.SymbolInfoType:
		return sym.Type, nil
	case api.SymbolInfoSize:
		return sym.Size, nil
	case api.SymbolInfoIsUndefined:
		return sym.Undefined, nil
	default:
		return sym.Value, nil
	}
}
