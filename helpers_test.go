package comgr

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/petrijr/comgr/internal/toolchain"
	"github.com/petrijr/comgr/pkg/api"
)

const gfx803 = "amdgcn-amd-amdhsa--gfx803"

// echoProcessor concatenates its inputs into one output per request and
// fails every request for an action listed in fail.
type echoProcessor struct {
	mu   sync.Mutex
	reqs []StageRequest
	fail map[ActionKind]bool
}

func (p *echoProcessor) Process(ctx context.Context, req StageRequest) (*StageResult, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()

	if p.fail[req.Action] {
		return &StageResult{Diagnostics: []byte("boom\n")}, fmt.Errorf("%w: boom", toolchain.ErrStageFailed)
	}
	var data bytes.Buffer
	for _, in := range req.Inputs {
		data.Write(in.Data)
	}
	return &StageResult{
		Outputs: []StageObject{{Name: toolchain.OutputName(req), Kind: req.OutputKind, Data: data.Bytes()}},
	}, nil
}

func (p *echoProcessor) requests(action ActionKind) []StageRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []StageRequest
	for _, r := range p.reqs {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

func mustData(t *testing.T, m Manager, kind DataKind, name, payload string) Data {
	t.Helper()
	d, err := m.CreateData(kind)
	if err != nil {
		t.Fatalf("CreateData: %v", err)
	}
	if err := m.SetDataName(d, name); err != nil {
		t.Fatalf("SetDataName: %v", err)
	}
	if err := m.SetData(d, []byte(payload)); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	return d
}

// sourceSet returns a set holding one source object per name.
func sourceSet(t *testing.T, m Manager, names ...string) DataSet {
	t.Helper()
	s, err := m.CreateDataSet()
	if err != nil {
		t.Fatalf("CreateDataSet: %v", err)
	}
	for _, name := range names {
		d := mustData(t, m, api.DataKindSource, name, "// "+name+"\n")
		if err := m.DataSetAdd(s, d); err != nil {
			t.Fatalf("DataSetAdd: %v", err)
		}
		_ = m.ReleaseData(d)
	}
	return s
}

func mustInfo(t *testing.T, m Manager, isaName string, lang Language) ActionInfo {
	t.Helper()
	info, err := m.CreateActionInfo()
	if err != nil {
		t.Fatalf("CreateActionInfo: %v", err)
	}
	if err := m.ActionInfoSetISAName(info, isaName); err != nil {
		t.Fatalf("ActionInfoSetISAName: %v", err)
	}
	if err := m.ActionInfoSetLanguage(info, lang); err != nil {
		t.Fatalf("ActionInfoSetLanguage: %v", err)
	}
	return info
}

func countKind(t *testing.T, m Manager, s DataSet, kind DataKind) int {
	t.Helper()
	n, err := m.ActionDataCount(s, kind)
	if err != nil {
		t.Fatalf("ActionDataCount: %v", err)
	}
	return n
}
