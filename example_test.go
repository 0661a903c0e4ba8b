package comgr_test

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/petrijr/comgr"
	"github.com/petrijr/comgr/pkg/api"
)

// upper is a stand-in stage that emits one output per request.
func upper(ctx context.Context, req comgr.StageRequest) (*comgr.StageResult, error) {
	var data []byte
	for _, in := range req.Inputs {
		data = append(data, bytes.ToUpper(in.Data)...)
	}
	return &comgr.StageResult{
		Outputs: []comgr.StageObject{{Name: "out", Kind: req.OutputKind, Data: data}},
	}, nil
}

// Example_pipeline demonstrates chaining actions with a Pipeline and a
// custom stage processor.
func Example_pipeline() {
	ctx := context.Background()
	m := comgr.NewManagerWithProcessor(comgr.ProcessorFunc(upper), nil)

	src, _ := m.CreateData(api.DataKindSource)
	_ = m.SetDataName(src, "hello.cl")
	_ = m.SetData(src, []byte("kernel void hello() {}"))

	in, _ := m.CreateDataSet()
	_ = m.DataSetAdd(in, src)

	info, _ := m.CreateActionInfo()
	_ = m.ActionInfoSetISAName(info, "amdgcn-amd-amdhsa--gfx900")
	_ = m.ActionInfoSetLanguage(info, api.LanguageOpenCL20)

	out, err := comgr.NewPipeline("hello").
		Then(api.ActionCompileSourceToBC).
		Then(api.ActionCodegenBCToRelocatable).
		Run(ctx, m, info, in)
	if err != nil {
		log.Fatal(err)
	}

	obj, _ := m.ActionDataGetData(out, api.DataKindRelocatable, 0)
	data, _ := m.GetData(obj)
	isaName, _ := m.GetDataISAName(obj)
	fmt.Printf("%s %s\n", isaName, data)
	// Output: amdgcn-amd-amdhsa--gfx900 KERNEL VOID HELLO() {}
}

// Example_status shows how errors map to status codes.
func Example_status() {
	m := comgr.NewManager("")
	_, err := m.CreateData(api.DataKindUndef)

	name, _ := comgr.StatusString(comgr.StatusOf(err))
	fmt.Println(name)
	// Output: INVALID_ARGUMENT
}
