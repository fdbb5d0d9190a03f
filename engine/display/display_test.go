package display

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/dual_view"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/shader"
)

const shaderDir = "../../examples/assets/shaders"

type drawCall struct {
	key      string
	vertices uint32
	provider string
}

type fakeRenderer struct {
	renderer.Renderer

	pipelines  map[string]pipeline.Pipeline
	draws      []drawCall
	samplers   map[string]common.SamplerStagingData
	bindGroups []string
	writes     []bind_group_provider.BufferWrite
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		pipelines: map[string]pipeline.Pipeline{},
		samplers:  map[string]common.SamplerStagingData{},
	}
}

func (f *fakeRenderer) RegisterPipelines(ps ...pipeline.Pipeline) error {
	for _, p := range ps {
		f.pipelines[p.PipelineKey()] = p
	}
	return nil
}

func (f *fakeRenderer) Pipeline(key string) pipeline.Pipeline {
	return f.pipelines[key]
}

func (f *fakeRenderer) InitSampler(p bind_group_provider.BindGroupProvider, _ int, s common.SamplerStagingData) error {
	f.samplers[p.Label()] = s
	return nil
}

func (f *fakeRenderer) InitBindGroup(p bind_group_provider.BindGroupProvider, _ wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, _ map[int]uint64) error {
	f.bindGroups = append(f.bindGroups, p.Label())
	return nil
}

func (f *fakeRenderer) WriteBuffers(w []bind_group_provider.BufferWrite) {
	f.writes = append(f.writes, w...)
}

func (f *fakeRenderer) Draw(key string, vertexCount uint32, groups []bind_group_provider.BindGroupProvider) error {
	f.draws = append(f.draws, drawCall{key: key, vertices: vertexCount, provider: groups[0].Label()})
	return nil
}

type fakeAllocator struct{}

func (fakeAllocator) CreateStorageBuffer(string, uint64) (*wgpu.Buffer, error) { return nil, nil }
func (fakeAllocator) CreateCompressedTexture(string, uint32, uint32) (*wgpu.Texture, *wgpu.TextureView, error) {
	return nil, nil, nil
}

type nopEncoder struct{}

func (nopEncoder) CopyBufferToTexture(*wgpu.ImageCopyBuffer, *wgpu.ImageCopyTexture, *wgpu.Extent3D) error {
	return nil
}

// sourceView stands in for the compressor's uploaded input texture.
var sourceView = &wgpu.TextureView{}

func setup(t *testing.T) (*fakeRenderer, Display, dual_view.DualView) {
	t.Helper()
	f := newFakeRenderer()
	out, err := dual_view.NewDualView(fakeAllocator{}, "output", 512, 512)
	if err != nil {
		t.Fatalf("NewDualView: %v", err)
	}
	d := NewDisplay(f, WithShaderDir(shaderDir))
	if err := d.Initialize(sourceView, out); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return f, d, out
}

func TestBuildPipelineQuadStrip(t *testing.T) {
	p, err := NewDisplay(newFakeRenderer(), WithShaderDir(shaderDir)).BuildPipeline()
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if p.Type() != pipeline.PipelineTypeRender {
		t.Errorf("Type() = %v, want render", p.Type())
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleStrip {
		t.Errorf("Topology() = %v, want triangle strip", p.Topology())
	}
	if p.CullMode() != wgpu.CullModeNone {
		t.Errorf("CullMode() = %v, want none", p.CullMode())
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestBuildPipelineMissingShader(t *testing.T) {
	_, err := NewDisplay(newFakeRenderer(), WithShaderDir(t.TempDir())).BuildPipeline()
	var compileErr *shader.ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Errorf("BuildPipeline() error = %v, want *shader.ShaderCompileError", err)
	}
}

func TestInitializeSamplers(t *testing.T) {
	f, _, _ := setup(t)

	if got := f.samplers["Display Input"]; got.MagFilter != wgpu.FilterModeLinear {
		t.Errorf("input sampler mag filter = %v, want linear", got.MagFilter)
	}
	if got := f.samplers["Display Output"]; got.MagFilter != wgpu.FilterModeNearest || got.MinFilter != wgpu.FilterModeNearest {
		t.Errorf("output sampler filters = %v/%v, want nearest", got.MagFilter, got.MinFilter)
	}
	if len(f.bindGroups) != 1 || f.bindGroups[0] != "Display Input" {
		t.Errorf("bind groups at init = %v, want only the input", f.bindGroups)
	}
}

func TestInitializeBorrowsSourceView(t *testing.T) {
	_, d, _ := setup(t)
	in := d.InputProvider()
	if in.TextureView(0) != sourceView {
		t.Error("input bind group does not use the given source view")
	}
	if !in.IsBorrowed(0) {
		t.Error("source view is owned by the display provider")
	}
}

func TestCheckPipeline(t *testing.T) {
	_, d, _ := setup(t)

	rebuilt, err := d.BuildPipeline()
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if err := d.CheckPipeline(rebuilt); err != nil {
		t.Errorf("CheckPipeline(unchanged shaders) = %v", err)
	}

	var linkErr *renderer.ProgramLinkError
	err = d.CheckPipeline(pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeRender))
	if !errors.As(err, &linkErr) || !errors.Is(err, shader.ErrLayoutMismatch) {
		t.Errorf("CheckPipeline(no fragment shader) = %v, want a ProgramLinkError wrapping ErrLayoutMismatch", err)
	}

	if err := NewDisplay(newFakeRenderer()).CheckPipeline(rebuilt); err != nil {
		t.Errorf("CheckPipeline before Initialize = %v", err)
	}
}

func TestDrawInput(t *testing.T) {
	f, d, _ := setup(t)
	if err := d.DrawInput(); err != nil {
		t.Fatalf("DrawInput: %v", err)
	}
	want := drawCall{key: PipelineKey, vertices: 4, provider: "Display Input"}
	if len(f.draws) != 1 || f.draws[0] != want {
		t.Errorf("draws = %+v, want %+v", f.draws, want)
	}
}

func TestDrawOutputWaitsForPublish(t *testing.T) {
	f, d, out := setup(t)

	if err := d.DrawOutput(); !errors.Is(err, dual_view.ErrNotPublished) {
		t.Fatalf("DrawOutput() before publish = %v, want ErrNotPublished", err)
	}
	if len(f.draws) != 0 {
		t.Fatal("unpublished output was drawn")
	}

	_ = out.BeginWrite()
	if err := out.Publish(nopEncoder{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for range 2 {
		if err := d.DrawOutput(); err != nil {
			t.Fatalf("DrawOutput: %v", err)
		}
	}

	if len(f.bindGroups) != 2 || f.bindGroups[1] != "Display Output" {
		t.Errorf("bind groups = %v, want the output group created once", f.bindGroups)
	}
	if !d.OutputProvider().IsBorrowed(0) {
		t.Error("BC4 texture view is owned by the display provider")
	}
	if f.draws[1].provider != "Display Output" || f.draws[1].vertices != QuadVertexCount {
		t.Errorf("draw = %+v", f.draws[1])
	}

	last := f.writes[len(f.writes)-1]
	if last.Provider.Label() != "Display Output" || last.Data[0] != 1 {
		t.Errorf("output display params = %v, want red replicated", last.Data)
	}
}

func TestDrawBeforeInitialize(t *testing.T) {
	d := NewDisplay(newFakeRenderer())
	if err := d.DrawInput(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DrawInput() = %v, want ErrNotInitialized", err)
	}
	if err := d.DrawOutput(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DrawOutput() = %v, want ErrNotInitialized", err)
	}
}
