package renderer

import (
	"errors"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/shader"
)

// fakeBackend satisfies RendererBackend for registry tests. Only pipeline creation is implemented.
type fakeBackend struct {
	RendererBackend
	fail     map[string]bool
	attempts []string
}

func (f *fakeBackend) RegisterComputePipeline(p pipeline.Pipeline) error {
	f.attempts = append(f.attempts, p.PipelineKey())
	if f.fail[p.PipelineKey()] {
		return errors.New("device rejected module")
	}
	return nil
}

func (f *fakeBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	return f.RegisterComputePipeline(p)
}

const testCompute = `@compute @workgroup_size(1)
fn cs_main() {
}
`

func newTestRenderer(fail ...string) (*renderer, *fakeBackend) {
	fb := &fakeBackend{fail: make(map[string]bool)}
	for _, k := range fail {
		fb.fail[k] = true
	}
	return &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backend:       fb,
	}, fb
}

func computePipeline(t *testing.T, key string) pipeline.Pipeline {
	t.Helper()
	s, err := shader.NewShader(key, shader.ShaderTypeCompute, "", shader.WithSource(testCompute))
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	return pipeline.NewPipeline(key, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s))
}

func TestRegisterPipelinesSkipsKnownKeys(t *testing.T) {
	r, fb := newTestRenderer()
	first := computePipeline(t, "compress")
	if err := r.RegisterPipelines(first); err != nil {
		t.Fatalf("RegisterPipelines: %v", err)
	}
	if err := r.RegisterPipelines(computePipeline(t, "compress")); err != nil {
		t.Fatalf("RegisterPipelines again: %v", err)
	}
	if r.Pipeline("compress") != first {
		t.Error("a second registration replaced the live pipeline")
	}
	if len(fb.attempts) != 1 {
		t.Errorf("backend saw %d creations, want 1", len(fb.attempts))
	}
}

func TestReloadPipelinesSwapsOnSuccess(t *testing.T) {
	r, _ := newTestRenderer()
	old := computePipeline(t, "compress")
	if err := r.RegisterPipelines(old); err != nil {
		t.Fatalf("RegisterPipelines: %v", err)
	}

	fresh := computePipeline(t, "compress")
	if err := r.ReloadPipelines(fresh); err != nil {
		t.Fatalf("ReloadPipelines: %v", err)
	}
	if got := r.Pipeline("compress"); got != fresh || got == old {
		t.Error("reload did not install the new pipeline")
	}
}

func TestReloadPipelinesKeepsOldOnFailure(t *testing.T) {
	r, fb := newTestRenderer()
	oldCompress := computePipeline(t, "compress")
	oldQuad := computePipeline(t, "quad")
	if err := r.RegisterPipelines(oldCompress, oldQuad); err != nil {
		t.Fatalf("RegisterPipelines: %v", err)
	}

	fb.fail["quad"] = true
	err := r.ReloadPipelines(computePipeline(t, "compress"), computePipeline(t, "quad"))

	var linkErr *ProgramLinkError
	if !errors.As(err, &linkErr) {
		t.Fatalf("ReloadPipelines error = %v, want *ProgramLinkError", err)
	}
	if linkErr.Key != "quad" {
		t.Errorf("ProgramLinkError.Key = %q, want quad", linkErr.Key)
	}
	if r.Pipeline("compress") != oldCompress || r.Pipeline("quad") != oldQuad {
		t.Error("a failed reload changed the live pipelines")
	}
}

func TestReloadPipelinesRejectsMissingShader(t *testing.T) {
	r, fb := newTestRenderer()
	err := r.ReloadPipelines(pipeline.NewPipeline("empty", pipeline.PipelineTypeCompute))

	if !errors.Is(err, pipeline.ErrMissingShader) {
		t.Fatalf("ReloadPipelines error = %v, want ErrMissingShader", err)
	}
	if len(fb.attempts) != 0 {
		t.Error("an invalid pipeline reached the backend")
	}
}

func TestSwapPipelinesReturnsReplaced(t *testing.T) {
	r, _ := newTestRenderer()
	a := computePipeline(t, "a")
	r.SwapPipelines(a)

	replaced := r.SwapPipelines(computePipeline(t, "a"), computePipeline(t, "b"))
	if len(replaced) != 1 || replaced[0] != a {
		t.Errorf("SwapPipelines returned %v, want only the old a", replaced)
	}
	if len(r.SwapPipelines(r.Pipeline("a"))) != 0 {
		t.Error("swapping a pipeline for itself reported a replacement")
	}
}

func TestPipelinesReturnsSnapshot(t *testing.T) {
	r, _ := newTestRenderer()
	r.SwapPipelines(computePipeline(t, "a"))

	snap := r.Pipelines()
	delete(snap, "a")
	if r.Pipeline("a") == nil {
		t.Error("mutating the snapshot changed the registry")
	}
}

func TestPreferredSurfaceFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []wgpu.TextureFormat
		want    wgpu.TextureFormat
		ok      bool
	}{
		{"none", nil, wgpu.TextureFormatUndefined, false},
		{"srgb first", []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm}, wgpu.TextureFormatBGRA8Unorm, true},
		{"only srgb", []wgpu.TextureFormat{wgpu.TextureFormatRGBA8UnormSrgb}, wgpu.TextureFormatRGBA8UnormSrgb, true},
		{"rgba", []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm}, wgpu.TextureFormatRGBA8Unorm, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := preferredSurfaceFormat(tt.formats)
			if got != tt.want || ok != tt.ok {
				t.Errorf("preferredSurfaceFormat() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestBytesPerTexel(t *testing.T) {
	tests := []struct {
		format  wgpu.TextureFormat
		want    uint32
		wantErr bool
	}{
		{wgpu.TextureFormatR8Unorm, 1, false},
		{wgpu.TextureFormatRGBA8Unorm, 4, false},
		{wgpu.TextureFormatBC4RUnorm, 0, true},
	}
	for _, tt := range tests {
		got, err := bytesPerTexel(tt.format)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("bytesPerTexel(%v) = (%d, %v), want (%d, err=%v)", tt.format, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 2, Visibility: wgpu.ShaderStageVertex},
		}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment},
			{Binding: 2, Visibility: wgpu.ShaderStageFragment},
		}},
		1: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment},
		}},
	}

	merged := mergeBindGroupLayouts(vertex, fragment)
	if len(merged) != 2 {
		t.Fatalf("got %d groups, want 2", len(merged))
	}

	entries := merged[0].Entries
	if len(entries) != 2 || entries[0].Binding != 0 || entries[1].Binding != 2 {
		t.Fatalf("group 0 entries = %+v, want bindings 0 and 2 in order", entries)
	}
	if entries[1].Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Errorf("binding 2 visibility = %v, want vertex|fragment", entries[1].Visibility)
	}
	if len(merged[1].Entries) != 1 {
		t.Errorf("group 1 entries = %+v, want the fragment-only binding", merged[1].Entries)
	}
}

func TestErrorTypesUnwrap(t *testing.T) {
	cause := errors.New("boom")

	var link error = &ProgramLinkError{Key: "quad", Err: cause}
	if !errors.Is(link, cause) {
		t.Error("ProgramLinkError does not unwrap")
	}

	var alloc error = &ResourceAllocationError{Resource: "output storage", Err: cause}
	if !errors.Is(alloc, cause) {
		t.Error("ResourceAllocationError does not unwrap")
	}
}
