package engine

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/comgr/internal/toolchain"
	"github.com/petrijr/comgr/pkg/api"
)

const (
	gfx803 = "amdgcn-amd-amdhsa--gfx803"
	gfx900 = "amdgcn-amd-amdhsa--gfx900"
)

// fakeProcessor records requests and echoes its inputs into one output
// object per request. Inputs named in fail make the stage fail with the
// mapped diagnostic.
type fakeProcessor struct {
	mu   sync.Mutex
	reqs []toolchain.Request
	fail map[string]string
	warn map[string]string
}

func (p *fakeProcessor) Process(ctx context.Context, req toolchain.Request) (*toolchain.Result, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()

	first := ""
	if len(req.Inputs) > 0 {
		first = req.Inputs[0].Name
	}
	if msg, ok := p.fail[first]; ok {
		return &toolchain.Result{Diagnostics: []byte(msg + "\n"), Log: []byte("failed " + first + "\n")},
			fmt.Errorf("%w: %s", toolchain.ErrStageFailed, msg)
	}

	var data bytes.Buffer
	data.WriteString(req.Action.String() + "\n")
	for _, in := range req.Inputs {
		data.Write(in.Data)
	}
	res := &toolchain.Result{
		Outputs: []toolchain.Object{{Name: toolchain.OutputName(req), Kind: req.OutputKind, Data: data.Bytes()}},
		Log:     []byte("ran " + toolchain.OutputName(req) + "\n"),
	}
	if msg, ok := p.warn[first]; ok {
		res.Diagnostics = []byte(msg + "\n")
	}
	return res, nil
}

func (p *fakeProcessor) requests() []toolchain.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]toolchain.Request(nil), p.reqs...)
}

func newTestManager(t *testing.T, cfg Config) *manager {
	t.Helper()
	if cfg.Processor == nil {
		cfg.Processor = &fakeProcessor{}
	}
	return newManager(cfg)
}

func newData(t *testing.T, m *manager, kind api.DataKind, name string, payload []byte) api.Data {
	t.Helper()
	d, err := m.CreateData(kind)
	require.NoError(t, err)
	require.NoError(t, m.SetDataName(d, name))
	if payload != nil {
		require.NoError(t, m.SetData(d, payload))
	}
	return d
}

// newSet creates a set holding objs and drops the caller references, so the
// set owns them.
func newSet(t *testing.T, m *manager, objs ...api.Data) api.DataSet {
	t.Helper()
	s, err := m.CreateDataSet()
	require.NoError(t, err)
	for _, d := range objs {
		require.NoError(t, m.DataSetAdd(s, d))
		require.NoError(t, m.ReleaseData(d))
	}
	return s
}

func newInfo(t *testing.T, m *manager, isaName string, lang api.Language, logging bool) api.ActionInfo {
	t.Helper()
	ai, err := m.CreateActionInfo()
	require.NoError(t, err)
	require.NoError(t, m.ActionInfoSetISAName(ai, isaName))
	require.NoError(t, m.ActionInfoSetLanguage(ai, lang))
	require.NoError(t, m.ActionInfoSetLogging(ai, logging))
	return ai
}

// member returns the name and payload of the index'th object of kind in s.
func member(t *testing.T, m *manager, s api.DataSet, kind api.DataKind, index int) (string, []byte) {
	t.Helper()
	d, err := m.ActionDataGetData(s, kind, index)
	require.NoError(t, err)
	defer func() { require.NoError(t, m.ReleaseData(d)) }()

	name, err := m.GetDataName(d)
	require.NoError(t, err)
	data, err := m.GetData(d)
	require.NoError(t, err)
	return name, data
}

func count(t *testing.T, m *manager, s api.DataSet, kind api.DataKind) int {
	t.Helper()
	n, err := m.ActionDataCount(s, kind)
	require.NoError(t, err)
	return n
}

func requireStatus(t *testing.T, want api.Status, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, api.StatusOf(err), "error: %v", err)
}
