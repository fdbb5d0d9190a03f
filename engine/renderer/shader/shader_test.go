package shader

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const shaderAssetDir = "../../../examples/assets/shaders"

const computeSource = `//@oxy:include block_layout

//@oxy:provider 0 0 source_texture
@group(0) @binding(0) var sourceTexture: texture_2d<f32>;

//@oxy:group 0 1 storage_uniform blockLayout block_layout

@compute @workgroup_size(8, 4)
fn cs_main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let v = textureLoad(sourceTexture, vec2<i32>(i32(gid.x), i32(gid.y)), 0).r;
    let w = v + f32(blockLayout.blocks_x);
}
`

func TestNewShaderComputeReflection(t *testing.T) {
	s, err := NewShader("compute", ShaderTypeCompute, "", WithSource(computeSource))
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}

	if got := s.EntryPoint(); got != "cs_main" {
		t.Errorf("EntryPoint() = %q, want cs_main", got)
	}
	if got := s.WorkgroupSize(); got != [3]uint32{8, 4, 1} {
		t.Errorf("WorkgroupSize() = %v, want [8 4 1]", got)
	}
	if got := s.ShaderType(); got != ShaderTypeCompute {
		t.Errorf("ShaderType() = %v, want compute", got)
	}
	if s.Module() == nil || s.Module().WGSLDescriptor == nil || s.Module().WGSLDescriptor.Code != s.Source() {
		t.Error("Module() does not carry the pre-processed source")
	}
}

func TestNewShaderBindGroupLayouts(t *testing.T) {
	s, err := NewShader("compute", ShaderTypeCompute, "", WithSource(computeSource))
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}

	desc := s.BindGroupLayoutDescriptor(0)
	if len(desc.Entries) != 2 {
		t.Fatalf("group 0 has %d entries, want 2", len(desc.Entries))
	}

	tex := desc.Entries[0]
	if tex.Binding != 0 || tex.Texture.SampleType != wgpu.TextureSampleTypeFloat || tex.Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("binding 0 = %+v, want a float 2D texture", tex)
	}
	if tex.Visibility != wgpu.ShaderStageCompute {
		t.Errorf("binding 0 visibility = %v, want compute", tex.Visibility)
	}

	uniform := desc.Entries[1]
	if uniform.Buffer.Type != wgpu.BufferBindingTypeUniform {
		t.Errorf("binding 1 buffer type = %v, want uniform", uniform.Buffer.Type)
	}
	if uniform.Buffer.MinBindingSize != 16 {
		t.Errorf("binding 1 MinBindingSize = %d, want 16", uniform.Buffer.MinBindingSize)
	}

	if got := s.BindGroupVarName(0, 1); got != "blockLayout" {
		t.Errorf("BindGroupVarName(0, 1) = %q, want blockLayout", got)
	}
}

func TestBindingFor(t *testing.T) {
	s, err := NewShader("compute", ShaderTypeCompute, "", WithSource(computeSource))
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}

	tests := []struct {
		identity      AnnotationArg
		group, expect int
		ok            bool
	}{
		{AnnotationArgSourceTexture, 0, 0, true},
		{AnnotationArgBlockLayout, 0, 1, true},
		{AnnotationArgOutputBlocks, -1, -1, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.identity), func(t *testing.T) {
			g, b, ok := s.BindingFor(tt.identity)
			if ok != tt.ok || g != tt.group || b != tt.expect {
				t.Errorf("BindingFor(%s) = (%d, %d, %v), want (%d, %d, %v)", tt.identity, g, b, ok, tt.group, tt.expect, tt.ok)
			}
		})
	}
}

func TestNewShaderRejectsBrokenWGSL(t *testing.T) {
	_, err := NewShader("broken", ShaderTypeCompute, "broken.wgsl", WithSource("@compute fn cs_main( {"))
	if err == nil {
		t.Fatal("expected an error for malformed WGSL")
	}

	var compileErr *ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("error %T is not a *ShaderCompileError", err)
	}
	if compileErr.Key != "broken" || compileErr.Path != "broken.wgsl" {
		t.Errorf("ShaderCompileError = %+v, want key broken and path broken.wgsl", compileErr)
	}
}

func TestNewShaderMissingEntryPoint(t *testing.T) {
	src := "fn helper() -> f32 { return 1.0; }\n"
	_, err := NewShader("no-entry", ShaderTypeFragment, "", WithSource(src))

	var compileErr *ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("error = %v, want *ShaderCompileError", err)
	}
	if !strings.Contains(compileErr.Error(), "fragment") {
		t.Errorf("error %q does not name the missing stage", compileErr.Error())
	}
}

func TestNewShaderMissingFile(t *testing.T) {
	_, err := NewShader("missing", ShaderTypeVertex, filepath.Join(t.TempDir(), "nope.wgsl"))

	var compileErr *ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("error = %v, want *ShaderCompileError", err)
	}
}

func TestNewShaderUnknownAnnotation(t *testing.T) {
	_, err := NewShader("bad-annotation", ShaderTypeCompute, "", WithSource("//@oxy:include camera\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown include")
	}
}

func TestShippedShaders(t *testing.T) {
	tests := []struct {
		file       string
		shaderType ShaderType
		entry      string
	}{
		{"rgtc_compress.wgsl", ShaderTypeCompute, "cs_main"},
		{"drawquad_vert.wgsl", ShaderTypeVertex, "vs_main"},
		{"drawquad_frag.wgsl", ShaderTypeFragment, "fs_main"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			s, err := NewShader(tt.file, tt.shaderType, filepath.Join(shaderAssetDir, tt.file))
			if err != nil {
				t.Fatalf("NewShader: %v", err)
			}
			if got := s.EntryPoint(); got != tt.entry {
				t.Errorf("EntryPoint() = %q, want %q", got, tt.entry)
			}
		})
	}
}

func TestCompressShaderLayout(t *testing.T) {
	s, err := NewShader("compress", ShaderTypeCompute, filepath.Join(shaderAssetDir, "rgtc_compress.wgsl"))
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}

	if got := s.WorkgroupSize(); got != [3]uint32{1, 1, 1} {
		t.Errorf("WorkgroupSize() = %v, want one invocation per block", got)
	}

	g, b, ok := s.BindingFor(AnnotationArgOutputBlocks)
	if !ok || g != 0 || b != 1 {
		t.Fatalf("BindingFor(output_blocks) = (%d, %d, %v), want (0, 1, true)", g, b, ok)
	}
	entry := s.BindGroupLayoutDescriptor(0).Entries[1]
	if entry.Buffer.Type != wgpu.BufferBindingTypeStorage {
		t.Errorf("output blocks buffer type = %v, want read-write storage", entry.Buffer.Type)
	}
	if entry.Buffer.MinBindingSize != 8 {
		t.Errorf("output blocks MinBindingSize = %d, want one 8 byte block", entry.Buffer.MinBindingSize)
	}
}

func TestCheckCompatible(t *testing.T) {
	live, err := NewShader("compute", ShaderTypeCompute, "", WithSource(computeSource))
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}

	tests := []struct {
		name     string
		source   string
		mismatch bool
	}{
		{name: "unchanged", source: computeSource},
		{name: "body edit", source: strings.Replace(computeSource, "v + f32", "v * f32", 1)},
		{
			name: "texture moved",
			source: strings.NewReplacer(
				"//@oxy:provider 0 0 source_texture", "//@oxy:provider 0 2 source_texture",
				"@group(0) @binding(0) var sourceTexture", "@group(0) @binding(2) var sourceTexture",
			).Replace(computeSource),
			mismatch: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NewShader("compute", ShaderTypeCompute, "", WithSource(tt.source))
			if err != nil {
				t.Fatalf("NewShader: %v", err)
			}
			err = CheckCompatible(live, next, 0, AnnotationArgSourceTexture, AnnotationArgBlockLayout)
			if got := errors.Is(err, ErrLayoutMismatch); got != tt.mismatch {
				t.Errorf("CheckCompatible() = %v, want mismatch %v", err, tt.mismatch)
			}
		})
	}

	if err := CheckCompatible(live, nil, 0); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("CheckCompatible(nil) = %v, want ErrLayoutMismatch", err)
	}
}
