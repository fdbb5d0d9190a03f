package session

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/verify"
)

type fakeCompressor struct {
	frames      int
	storageSize uint64
	source      *common.ImportedTexture
}

func (f *fakeCompressor) CompressAndPublish() error {
	f.frames++
	return nil
}

type fakeDisplay struct {
	draws []string
}

func (f *fakeDisplay) DrawInput() error {
	f.draws = append(f.draws, "input")
	return nil
}

func (f *fakeDisplay) DrawOutput() error {
	f.draws = append(f.draws, "output")
	return nil
}

type fakeVerifier struct {
	runs int
}

func (f *fakeVerifier) Verify() (verify.Report, error) {
	f.runs++
	return verify.Report{Blocks: 1}, nil
}

// fakePrograms builds a new pipeline per key on every reload and tracks the active set.
type fakePrograms struct {
	keys     []string
	active   map[string]pipeline.Pipeline
	released []pipeline.Pipeline
	fail     error
	builds   int
}

func newFakePrograms(keys ...string) *fakePrograms {
	f := &fakePrograms{keys: keys, active: map[string]pipeline.Pipeline{}}
	for _, k := range keys {
		f.active[k] = pipeline.NewPipeline(k, pipeline.PipelineTypeRender)
	}
	return f
}

func (f *fakePrograms) ReloadPrograms() (int, error) {
	f.builds++
	if f.fail != nil {
		return 0, f.fail
	}
	for _, k := range f.keys {
		f.released = append(f.released, f.active[k])
		f.active[k] = pipeline.NewPipeline(k, pipeline.PipelineTypeRender)
	}
	return len(f.keys), nil
}

func TestDisplayModeString(t *testing.T) {
	if ShowInput.String() != "input" || ShowOutput.String() != "output" {
		t.Errorf("String() = %q/%q", ShowInput, ShowOutput)
	}
}

func TestToggleIsTwoCycle(t *testing.T) {
	s := NewSession(&fakeCompressor{}, &fakeDisplay{})
	if s.Mode() != ShowOutput {
		t.Fatalf("initial mode = %v, want output", s.Mode())
	}

	tests := []struct {
		toggles int
		want    DisplayMode
	}{
		{1, ShowInput},
		{2, ShowOutput},
		{7, ShowInput},
		{10, ShowOutput},
	}
	for _, tt := range tests {
		s := NewSession(&fakeCompressor{}, &fakeDisplay{})
		for range tt.toggles {
			s.Toggle()
		}
		if s.Mode() != tt.want {
			t.Errorf("after %d toggles mode = %v, want %v", tt.toggles, s.Mode(), tt.want)
		}
	}
}

func TestOnKey(t *testing.T) {
	progs := newFakePrograms("quad")
	v := &fakeVerifier{}
	s := NewSession(&fakeCompressor{}, &fakeDisplay{}, WithProgramBuilder(progs), WithVerifier(v))

	s.OnKey(common.KeyM, common.KeyRelease)
	s.OnKey(common.KeyM, common.KeyRepeat)
	if s.Mode() != ShowOutput {
		t.Error("non-press action toggled the mode")
	}

	s.OnKey(common.KeyM, common.KeyPress)
	if s.Mode() != ShowInput {
		t.Error("M press did not toggle the mode")
	}

	s.OnKey(common.KeyR, common.KeyPress)
	if progs.builds != 1 || s.Reloads() != 1 {
		t.Errorf("R press: builds %d reloads %d, want 1/1", progs.builds, s.Reloads())
	}

	s.OnKey(common.KeyV, common.KeyPress)
	if v.runs != 1 {
		t.Errorf("V press ran the verifier %d times", v.runs)
	}

	s.OnKey('X', common.KeyPress)
	if s.Mode() != ShowInput || progs.builds != 1 || v.runs != 1 {
		t.Error("unbound key had an effect")
	}
}

func TestReloadSwapsNewPrograms(t *testing.T) {
	progs := newFakePrograms("compress", "quad")
	c := &fakeCompressor{storageSize: 131072, source: &common.ImportedTexture{Name: "in"}}
	source := c.source
	before := map[string]pipeline.Pipeline{"compress": progs.active["compress"], "quad": progs.active["quad"]}

	s := NewSession(c, &fakeDisplay{}, WithProgramBuilder(progs))
	if err := s.ReloadPrograms(); err != nil {
		t.Fatalf("ReloadPrograms: %v", err)
	}

	for k, old := range before {
		if progs.active[k] == old {
			t.Errorf("%s still uses the old program", k)
		}
	}
	if len(progs.released) != 2 || s.Reloads() != 1 {
		t.Errorf("released %d programs, Reloads() = %d", len(progs.released), s.Reloads())
	}
	if c.storageSize != 131072 || c.source != source {
		t.Error("reload changed the output storage or the input texture")
	}
}

func TestReloadFailureKeepsOldPrograms(t *testing.T) {
	progs := newFakePrograms("compress", "quad")
	before := progs.active["quad"]
	progs.fail = errors.New("shader does not compile")

	s := NewSession(&fakeCompressor{}, &fakeDisplay{}, WithProgramBuilder(progs))
	if err := s.ReloadPrograms(); !errors.Is(err, progs.fail) {
		t.Fatalf("ReloadPrograms() = %v, want the build error", err)
	}
	if progs.active["quad"] != before {
		t.Error("failed reload replaced the active program")
	}
	if s.Reloads() != 0 {
		t.Errorf("Reloads() = %d after a failed reload", s.Reloads())
	}

	// The key path logs instead of failing.
	s.OnKey(common.KeyR, common.KeyPress)
	if progs.active["quad"] != before {
		t.Error("failed reload via key replaced the active program")
	}
}

func TestFrameFollowsMode(t *testing.T) {
	c := &fakeCompressor{}
	d := &fakeDisplay{}
	s := NewSession(c, d)

	for range 3 {
		if err := s.PrepareCompute(); err != nil {
			t.Fatal(err)
		}
		if err := s.DrawCalls(); err != nil {
			t.Fatal(err)
		}
		s.Toggle()
	}

	want := []string{"output", "input", "output"}
	for i, w := range want {
		if d.draws[i] != w {
			t.Errorf("frame %d drew %q, want %q", i, d.draws[i], w)
		}
	}
	if c.frames != 3 {
		t.Errorf("compressed %d frames, want 3", c.frames)
	}
}

func TestVerifyWithoutVerifier(t *testing.T) {
	s := NewSession(&fakeCompressor{}, &fakeDisplay{})
	if _, err := s.Verify(); !errors.Is(err, ErrNoVerifier) {
		t.Errorf("Verify() = %v, want ErrNoVerifier", err)
	}
}

type fakeSource struct {
	key      string
	fail     bool
	mismatch bool
	checked  *int
}

func (f fakeSource) BuildPipeline() (pipeline.Pipeline, error) {
	if f.fail {
		return nil, errors.New("compile error")
	}
	return pipeline.NewPipeline(f.key, pipeline.PipelineTypeCompute), nil
}

func (f fakeSource) CheckPipeline(p pipeline.Pipeline) error {
	if f.checked != nil {
		*f.checked++
	}
	if f.mismatch {
		return &renderer.ProgramLinkError{Key: p.PipelineKey(), Err: shader.ErrLayoutMismatch}
	}
	return nil
}

type fakeRegistry struct {
	reloaded []string
	err      error
}

func (f *fakeRegistry) ReloadPipelines(ps ...pipeline.Pipeline) error {
	if f.err != nil {
		return f.err
	}
	for _, p := range ps {
		f.reloaded = append(f.reloaded, p.PipelineKey())
	}
	return nil
}

func TestRendererPrograms(t *testing.T) {
	reg := &fakeRegistry{}
	checked := 0
	b := NewRendererPrograms(reg, fakeSource{key: "compress", checked: &checked}, fakeSource{key: "quad", checked: &checked})

	n, err := b.ReloadPrograms()
	if err != nil {
		t.Fatalf("ReloadPrograms: %v", err)
	}
	if n != 2 || len(reg.reloaded) != 2 || checked != 2 {
		t.Fatalf("reloaded %v (count %d), checked %d", reg.reloaded, n, checked)
	}

	tests := []struct {
		name    string
		sources []PipelineSource
	}{
		{
			name:    "compile failure",
			sources: []PipelineSource{fakeSource{key: "compress"}, fakeSource{key: "quad", fail: true}},
		},
		{
			name:    "binding change",
			sources: []PipelineSource{fakeSource{key: "compress", mismatch: true}, fakeSource{key: "quad"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistry{}
			if _, err := NewRendererPrograms(reg, tt.sources...).ReloadPrograms(); err == nil {
				t.Fatal("error was not returned")
			}
			if len(reg.reloaded) != 0 {
				t.Errorf("pipelines swapped in after a failed build: %v", reg.reloaded)
			}
		})
	}
}

func TestReloadWithChangedBindingsKeepsPrograms(t *testing.T) {
	reg := &fakeRegistry{}
	progs := NewRendererPrograms(reg, fakeSource{key: "compress", mismatch: true}, fakeSource{key: "quad"})
	s := NewSession(&fakeCompressor{}, &fakeDisplay{}, WithProgramBuilder(progs))

	err := s.ReloadPrograms()
	var linkErr *renderer.ProgramLinkError
	if !errors.As(err, &linkErr) || !errors.Is(err, shader.ErrLayoutMismatch) {
		t.Fatalf("ReloadPrograms() = %v, want a ProgramLinkError wrapping ErrLayoutMismatch", err)
	}
	if len(reg.reloaded) != 0 || s.Reloads() != 0 {
		t.Errorf("reloaded %v, Reloads() = %d", reg.reloaded, s.Reloads())
	}
}
