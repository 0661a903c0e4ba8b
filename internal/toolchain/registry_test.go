package toolchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/comgr/internal/persistence"
	"github.com/petrijr/comgr/pkg/api"
)

func constProcessor(name string) Processor {
	return ProcessorFunc(func(ctx context.Context, req Request) (*Result, error) {
		return &Result{Outputs: []Object{{Name: name}}}, nil
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Get(api.ActionLinkBCToBC)
	require.ErrorIs(t, err, ErrNoProcessor)

	require.NoError(t, r.Register(api.ActionLinkBCToBC, constProcessor("custom")))
	require.Error(t, r.Register(api.ActionLinkBCToBC, constProcessor("again")))
	require.Error(t, r.Register(api.ActionKind(99), constProcessor("bad")))
	require.Error(t, r.Register(api.ActionOptimizeBCToBC, nil))

	res, err := r.Process(context.Background(), Request{Action: api.ActionLinkBCToBC})
	require.NoError(t, err)
	require.Equal(t, "custom", res.Outputs[0].Name)

	withFallback := NewRegistry(constProcessor("fallback"))
	res, err = withFallback.Process(context.Background(), Request{Action: api.ActionOptimizeBCToBC})
	require.NoError(t, err)
	require.Equal(t, "fallback", res.Outputs[0].Name)
}

func TestCachingProcessor(t *testing.T) {
	calls := 0
	fail := false
	next := ProcessorFunc(func(ctx context.Context, req Request) (*Result, error) {
		calls++
		if fail {
			return &Result{Diagnostics: []byte("error")}, errors.New("boom")
		}
		return &Result{
			Outputs:     []Object{{Name: "k.bc", Kind: api.DataKindBC, Data: []byte{0, 1}}},
			Diagnostics: []byte("warning"),
		}, nil
	})
	cache := persistence.NewInMemoryCache()
	p := NewCachingProcessor(next, cache, nil)
	ctx := context.Background()

	req := Request{
		Action:  api.ActionCompileSourceToBC,
		ISAName: gfx803,
		Inputs:  []Object{{Name: "k.cl", Kind: api.DataKindSource, Data: []byte("src")}},
	}

	first, err := p.Process(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := p.Process(ctx, req)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Outputs, second.Outputs)
	require.Equal(t, "warning", string(second.Diagnostics))
	require.Equal(t, 1, calls)

	fail = true
	changed := req
	changed.Options = []string{"-O0"}
	_, err = p.Process(ctx, changed)
	require.Error(t, err)
	_, err = p.Process(ctx, changed)
	require.Error(t, err)
	require.Equal(t, 3, calls, "failures are not cached")
	require.Equal(t, 1, cache.Len())
}

func TestKey(t *testing.T) {
	base := Request{
		Action:  api.ActionLinkBCToBC,
		ISAName: gfx803,
		Inputs: []Object{
			{Name: "a", Kind: api.DataKindBC, Data: []byte("1")},
			{Name: "b", Kind: api.DataKindBC, Data: []byte("2")},
		},
	}
	require.Equal(t, Key(base), Key(base))

	swapped := base
	swapped.Inputs = []Object{base.Inputs[1], base.Inputs[0]}
	require.NotEqual(t, Key(base), Key(swapped))

	merged := base
	merged.Inputs = []Object{{Name: "a", Kind: api.DataKindBC, Data: []byte("12")}}
	require.NotEqual(t, Key(base), Key(merged))

	lang := base
	lang.Language = api.LanguageOpenCL20
	require.NotEqual(t, Key(base), Key(lang))
}
