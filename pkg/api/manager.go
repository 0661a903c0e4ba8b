package api

import "context"

// Manager is the code object manager API.
//
// Every method returns an error that wraps ErrError, ErrInvalidArgument or
// ErrOutOfResources; use StatusOf to classify it. Operations touching
// disjoint handles may run concurrently. Concurrent use of the same handle
// must be serialized by the caller, except default device library objects,
// which are immutable.
type Manager interface {
	// ISACount returns the number of supported ISA names.
	ISACount() int
	// ISAName returns the index'th supported ISA name (0-based).
	ISAName(index int) (string, error)
	// ISAMetadata returns the metadata of an ISA. An ISA without metadata
	// yields a node of kind MetadataKindNull.
	ISAMetadata(isaName string) (MetadataNode, error)
	// AddDefaultDeviceLibraries adds the device libraries of kind for the
	// ISA and language to set, skipping libraries already present.
	AddDefaultDeviceLibraries(isaName string, kind DataKind, lang Language, set DataSet) error

	// CreateData creates an empty, unnamed data object with refcount 1.
	CreateData(kind DataKind) (Data, error)
	// RetainData increments the refcount of a data object.
	RetainData(d Data) error
	// ReleaseData decrements the refcount and destroys the object at zero.
	ReleaseData(d Data) error
	GetDataKind(d Data) (DataKind, error)
	// SetData replaces the payload. Metadata and symbol handles of the old
	// payload become invalid.
	SetData(d Data, payload []byte) error
	// GetData returns a copy of the payload.
	GetData(d Data) ([]byte, error)
	SetDataName(d Data, name string) error
	GetDataName(d Data) (string, error)
	// GetDataISAName fails for kinds that are not ISA specific.
	GetDataISAName(d Data) (string, error)
	// GetDataMetadata returns the metadata root, MetadataKindNull if absent.
	GetDataMetadata(d Data) (MetadataNode, error)

	CreateDataSet() (DataSet, error)
	// DestroyDataSet releases every member and invalidates the handle.
	DestroyDataSet(s DataSet) error
	// DataSetAdd adds d to s unless already present.
	DataSetAdd(s DataSet, d Data) error
	// DataSetRemove removes all members of kind; DataKindUndef removes all.
	DataSetRemove(s DataSet, kind DataKind) error
	// ActionDataCount counts the members of a concrete kind.
	ActionDataCount(s DataSet, kind DataKind) (int, error)
	// ActionDataGetData returns the index'th member of kind and retains it.
	ActionDataGetData(s DataSet, kind DataKind, index int) (Data, error)

	CreateActionInfo() (ActionInfo, error)
	DestroyActionInfo(ai ActionInfo) error
	// ActionInfoSetISAName sets the ISA; "" clears it.
	ActionInfoSetISAName(ai ActionInfo, isaName string) error
	ActionInfoGetISAName(ai ActionInfo) (string, error)
	ActionInfoSetLanguage(ai ActionInfo, lang Language) error
	ActionInfoGetLanguage(ai ActionInfo) (Language, error)
	ActionInfoSetOptions(ai ActionInfo, options string) error
	ActionInfoGetOptions(ai ActionInfo) (string, error)
	ActionInfoSetWorkingDirectoryPath(ai ActionInfo, path string) error
	ActionInfoGetWorkingDirectoryPath(ai ActionInfo) (string, error)
	ActionInfoSetLogging(ai ActionInfo, logging bool) error
	ActionInfoGetLogging(ai ActionInfo) (bool, error)

	// DoAction performs kind on the qualifying members of input and replaces
	// the produced kinds in result. It blocks until all stages finish.
	DoAction(ctx context.Context, kind ActionKind, info ActionInfo, input DataSet, result DataSet) error

	GetMetadataKind(m MetadataNode) (MetadataKind, error)
	GetMetadataString(m MetadataNode) (string, error)
	GetMetadataMapSize(m MetadataNode) (int, error)
	// IterateMapMetadata calls fn for every entry. The key and value handles
	// are destroyed after fn returns. A non-nil error from fn stops the
	// iteration and is returned wrapped in ErrError.
	IterateMapMetadata(m MetadataNode, fn func(key, value MetadataNode) error) error
	// MetadataLookup fails with ErrError when key is absent.
	MetadataLookup(m MetadataNode, key string) (MetadataNode, error)
	GetMetadataListSize(m MetadataNode) (int, error)
	IndexListMetadata(m MetadataNode, index int) (MetadataNode, error)
	DestroyMetadata(m MetadataNode) error

	// IterateSymbols visits .symtab of a relocatable or .dynsym of an
	// executable. A non-nil error from fn stops the iteration and is
	// returned wrapped in ErrError.
	IterateSymbols(d Data, fn func(sym Symbol) error) error
	// SymbolLookup fails with ErrError when no symbol has name.
	SymbolLookup(d Data, name string) (Symbol, error)
	// SymbolGetInfo returns an attribute; see SymbolInfo for value types.
	SymbolGetInfo(sym Symbol, attr SymbolInfo) (any, error)
}
