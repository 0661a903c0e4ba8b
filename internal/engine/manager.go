package engine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/petrijr/comgr/internal/handle"
	"github.com/petrijr/comgr/internal/isa"
	"github.com/petrijr/comgr/internal/metadata"
	"github.com/petrijr/comgr/internal/persistence"
	"github.com/petrijr/comgr/internal/symbols"
	"github.com/petrijr/comgr/internal/toolchain"
	"github.com/petrijr/comgr/pkg/api"
)

// Config describes how to construct a manager.
type Config struct {
	// Processor runs the stages of every action. Nil fails every stage.
	Processor toolchain.Processor

	// Persistence.Cache, when set, answers repeated stage requests.
	// Persistence.Events, when set, receives the action journal.
	Persistence persistence.Persistence

	Observer api.Observer
	Logger   *slog.Logger

	// ISAs defaults to isa.Default().
	ISAs *isa.Catalog
	// DeviceLibs holds the default device library files.
	DeviceLibs fs.FS

	// MaxHandles caps the live handles of each handle family; 0 means
	// unlimited.
	MaxHandles int

	// LogSink also receives the text of every log object.
	LogSink io.Writer
}

// manager is a synchronous, in-process api.Manager.
type manager struct {
	processor toolchain.Processor
	events    persistence.EventStore
	observer  api.Observer
	logger    *slog.Logger
	isas      *isa.Catalog
	libFS     fs.FS
	logSink   io.Writer
	sinkMu    sync.Mutex

	data     *handle.Table[*dataObject]
	sets     *handle.Table[*dataSet]
	infos    *handle.Table[*actionInfo]
	metadata *handle.Table[*metadataRef]
	symbols  *handle.Table[*symbolRef]

	libMu sync.Mutex
	libs  map[libraryKey]uint64
}

var _ api.Manager = (*manager)(nil)

// NewManager returns a manager running stages with p and default settings.
func NewManager(p toolchain.Processor) api.Manager {
	return NewManagerWithConfig(Config{Processor: p})
}

// NewManagerWithConfig creates a manager from cfg.
func NewManagerWithConfig(cfg Config) api.Manager {
	return newManager(cfg)
}

func newManager(cfg Config) *manager {
	m := &manager{
		observer: cfg.Observer,
		logger:   cfg.Logger,
		isas:     cfg.ISAs,
		libFS:    cfg.DeviceLibs,
		logSink:  cfg.LogSink,
		events:   cfg.Persistence.Events,
		libs:     make(map[libraryKey]uint64),
	}
	if m.observer == nil {
		m.observer = api.NoopObserver{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.isas == nil {
		m.isas = isa.Default()
	}
	if m.events == nil {
		m.events = persistence.NoopEventStore{}
	}

	proc := cfg.Processor
	if proc == nil {
		proc = toolchain.NewRegistry(nil)
	}
	if cfg.Persistence.Cache != nil {
		proc = toolchain.NewCachingProcessor(proc, cfg.Persistence.Cache, m.logger)
	}
	m.processor = proc

	limit := cfg.MaxHandles
	m.data = handle.New(handle.WithLimit[*dataObject](limit), handle.WithFinalizer(m.finalizeData))
	m.sets = handle.New(handle.WithLimit[*dataSet](limit), handle.WithFinalizer(m.finalizeSet))
	m.infos = handle.New(handle.WithLimit[*actionInfo](limit))
	m.metadata = handle.New(handle.WithLimit[*metadataRef](limit))
	m.symbols = handle.New(handle.WithLimit[*symbolRef](limit))
	return m
}

// tableError maps handle table errors to API errors.
func tableError(what string, err error) error {
	switch {
	case errors.Is(err, handle.ErrTableFull):
		return fmt.Errorf("%w: %s: %v", api.ErrOutOfResources, what, err)
	case errors.Is(err, handle.ErrInvalidHandle):
		return api.Invalidf("%s: %v", what, err)
	default:
		return api.Errorf("%s: %v", what, err)
	}
}

func (m *manager) ISACount() int {
	return m.isas.Len()
}

func (m *manager) ISAName(index int) (string, error) {
	t, ok := m.isas.At(index)
	if !ok {
		return "", api.Invalidf("isa index %d out of range [0, %d)", index, m.isas.Len())
	}
	return t.Name, nil
}

func (m *manager) ISAMetadata(isaName string) (api.MetadataNode, error) {
	t, ok := m.isas.Lookup(isaName)
	if !ok {
		return api.MetadataNode{}, api.Invalidf("unknown isa %q", isaName)
	}
	return m.newMetadataHandle(&metadataRef{node: t.Metadata})
}

// deriveISA names the target of an ISA specific payload: the ELF e_flags
// processor for code objects, the target triple and cpu for textual IR.
func (m *manager) deriveISA(kind api.DataKind, payload []byte) string {
	if !kind.ISASpecific() || len(payload) == 0 {
		return ""
	}
	if mach, ok := symbols.Mach(payload); ok {
		if t, ok := m.isas.ByMach(mach); ok {
			return t.Name
		}
		return ""
	}
	if kind == api.DataKindBC {
		if name, ok := textualIRTarget(payload); ok {
			if _, known := m.isas.Lookup(name); known {
				return name
			}
		}
	}
	return ""
}

// dataMetadata decodes the metadata tree of a payload.
func (m *manager) dataMetadata(kind api.DataKind, payload []byte) *metadata.Node {
	if !kind.ISASpecific() || !symbols.IsELF(payload) {
		return metadata.Null
	}
	node, err := metadata.FromCodeObject(payload)
	if err != nil {
		m.logger.Debug("code object metadata unreadable", slog.Any("error", err))
		return metadata.Null
	}
	return node
}
