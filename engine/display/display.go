package display

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/dual_view"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/shader"
)

const (
	// PipelineKey is the renderer key of the full-screen quad pipeline.
	PipelineKey = "drawquad"

	// VertexShaderFile is the quad vertex shader file name inside the shader directory.
	VertexShaderFile = "drawquad_vert.wgsl"

	// FragmentShaderFile is the quad fragment shader file name inside the shader directory.
	FragmentShaderFile = "drawquad_frag.wgsl"

	// QuadVertexCount is the number of strip vertices the quad is drawn with.
	QuadVertexCount = 4
)

// ErrNotInitialized is returned by the draw calls before Initialize succeeded.
var ErrNotInitialized = errors.New("display not initialized")

// display is the implementation of the Display interface.
type display struct {
	mu sync.Mutex

	renderer renderer.Renderer

	shaderDir      string
	outputSampler  common.SamplerStagingData
	inputSampler   common.SamplerStagingData
	replicateInput bool

	output dual_view.DualView

	inputProvider  bind_group_provider.BindGroupProvider
	outputProvider bind_group_provider.BindGroupProvider
	outputReady    bool

	fragment shader.Shader

	textureBinding int
	samplerBinding int
	paramsBinding  int

	initialized bool
}

// Display draws either the input texture or the published BC4 texture as a full-screen quad.
// The quad is a four vertex triangle strip generated from vertex_index, so no vertex buffer is bound.
type Display interface {
	// Initialize builds and registers the quad pipeline and creates the input bind group
	// around the already uploaded input texture. The output bind group is created on the
	// first DrawOutput after the output was published.
	//
	// Parameters:
	//   - source: the view of the input texture, borrowed from its owner
	//   - output: the compressor's dual-view output
	//
	// Returns:
	//   - error: *shader.ShaderCompileError, *renderer.ProgramLinkError or
	//     *renderer.ResourceAllocationError on failure
	Initialize(source *wgpu.TextureView, output dual_view.DualView) error

	// BuildPipeline compiles the quad shaders from the shader directory into a new,
	// unregistered render pipeline.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, ready for renderer.BuildPipelines
	//   - error: *shader.ShaderCompileError if either shader fails to compile
	BuildPipeline() (pipeline.Pipeline, error)

	// CheckPipeline reports whether a rebuilt quad pipeline can run against the bind groups
	// created at Initialize. It accepts anything before Initialize.
	//
	// Parameters:
	//   - p: the rebuilt pipeline
	//
	// Returns:
	//   - error: *renderer.ProgramLinkError wrapping shader.ErrLayoutMismatch
	CheckPipeline(p pipeline.Pipeline) error

	// DrawInput records the quad sampling the input texture into the open render frame.
	DrawInput() error

	// DrawOutput records the quad sampling the published BC4 texture into the open render frame.
	//
	// Returns:
	//   - error: dual_view.ErrNotPublished if no compression frame was published yet
	DrawOutput() error

	// InputProvider returns the bind group provider of the input texture.
	InputProvider() bind_group_provider.BindGroupProvider

	// OutputProvider returns the bind group provider of the BC4 texture.
	OutputProvider() bind_group_provider.BindGroupProvider

	// Release frees both bind groups and the samplers. Both textures belong to other components.
	Release()
}

var _ Display = &display{}

// NewDisplay creates a new Display bound to the given renderer.
// Defaults: shaders from examples/assets/shaders, linear sampling for the input and
// nearest sampling for the output.
//
// Parameters:
//   - r: the renderer that owns the device and the frame
//   - options: a variadic list of DisplayBuilderOption functions
//
// Returns:
//   - Display: the configured display, not yet initialized
func NewDisplay(r renderer.Renderer, options ...DisplayBuilderOption) Display {
	d := &display{
		renderer:       r,
		shaderDir:      filepath.Join("examples", "assets", "shaders"),
		inputSampler:   common.LinearClampSampler(),
		outputSampler:  common.NearestClampSampler(),
		textureBinding: -1,
		samplerBinding: -1,
		paramsBinding:  -1,
	}

	for _, option := range options {
		option(d)
	}
	return d
}

func (d *display) BuildPipeline() (pipeline.Pipeline, error) {
	vs, err := shader.NewShader(PipelineKey+"_vert", shader.ShaderTypeVertex, filepath.Join(d.shaderDir, VertexShaderFile))
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShader(PipelineKey+"_frag", shader.ShaderTypeFragment, filepath.Join(d.shaderDir, FragmentShaderFile))
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		pipeline.WithCullMode(wgpu.CullModeNone),
	), nil
}

func (d *display) CheckPipeline(p pipeline.Pipeline) error {
	d.mu.Lock()
	live := d.fragment
	d.mu.Unlock()

	if live == nil {
		return nil
	}
	if err := shader.CheckCompatible(live, p.Shader(shader.ShaderTypeFragment), 0, fragmentIdentities...); err != nil {
		return &renderer.ProgramLinkError{Key: PipelineKey, Err: err}
	}
	return nil
}

func (d *display) Initialize(source *wgpu.TextureView, output dual_view.DualView) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.BuildPipeline()
	if err != nil {
		return err
	}
	if err := d.renderer.RegisterPipelines(p); err != nil {
		return err
	}
	d.fragment = d.renderer.Pipeline(PipelineKey).Shader(shader.ShaderTypeFragment)
	if err := d.resolveBindings(); err != nil {
		return err
	}

	input := bind_group_provider.NewBindGroupProvider("Display Input",
		bind_group_provider.WithBorrowedTextureView(d.textureBinding, source),
	)
	if err := d.renderer.InitSampler(input, d.samplerBinding, d.inputSampler); err != nil {
		return &renderer.ResourceAllocationError{Resource: "display input sampler", Err: err}
	}
	if err := d.initProvider(input, d.replicateInput); err != nil {
		input.Release()
		return err
	}

	out := bind_group_provider.NewBindGroupProvider("Display Output")
	if err := d.renderer.InitSampler(out, d.samplerBinding, d.outputSampler); err != nil {
		input.Release()
		return &renderer.ResourceAllocationError{Resource: "display output sampler", Err: err}
	}

	d.inputProvider = input
	d.outputProvider = out
	d.output = output
	d.outputReady = false
	d.initialized = true
	return nil
}

var fragmentIdentities = []shader.AnnotationArg{
	shader.AnnotationArgDisplayTexture,
	shader.AnnotationArgDisplaySampler,
	shader.AnnotationArgDisplayParams,
}

// resolveBindings reads the display bind group indices from the fragment shader's declarations.
func (d *display) resolveBindings() error {
	dsts := []*int{&d.textureBinding, &d.samplerBinding, &d.paramsBinding}
	for i, identity := range fragmentIdentities {
		group, binding, ok := d.fragment.BindingFor(identity)
		if !ok || group != 0 {
			return &renderer.ProgramLinkError{
				Key: PipelineKey,
				Err: fmt.Errorf("fragment shader does not declare %s in group 0", identity),
			}
		}
		*dsts[i] = binding
	}
	return nil
}

// initProvider creates the bind group of a provider whose texture and sampler are set
// and uploads its display parameters.
func (d *display) initProvider(p bind_group_provider.BindGroupProvider, replicateRed bool) error {
	if err := d.renderer.InitBindGroup(p, d.fragment.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
		return &renderer.ResourceAllocationError{Resource: p.Label() + " bind group", Err: err}
	}
	params := shader.NewGPUDisplayParams(replicateRed)
	d.renderer.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: p,
		Binding:  d.paramsBinding,
		Data:     params.Marshal(),
	}})
	return nil
}

func (d *display) DrawInput() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return ErrNotInitialized
	}
	return d.renderer.Draw(PipelineKey, QuadVertexCount, []bind_group_provider.BindGroupProvider{d.inputProvider})
}

func (d *display) DrawOutput() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return ErrNotInitialized
	}
	if !d.outputReady {
		view, err := d.output.ReadView()
		if err != nil {
			return err
		}
		d.outputProvider.SetBorrowedTextureView(d.textureBinding, view)
		if err := d.initProvider(d.outputProvider, true); err != nil {
			return err
		}
		d.outputReady = true
		common.Logger().Debug("display output bound", "texture", d.output.Label())
	}
	return d.renderer.Draw(PipelineKey, QuadVertexCount, []bind_group_provider.BindGroupProvider{d.outputProvider})
}

func (d *display) InputProvider() bind_group_provider.BindGroupProvider {
	return d.inputProvider
}

func (d *display) OutputProvider() bind_group_provider.BindGroupProvider {
	return d.outputProvider
}

func (d *display) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inputProvider != nil {
		d.inputProvider.Release()
		d.inputProvider = nil
	}
	if d.outputProvider != nil {
		d.outputProvider.Release()
		d.outputProvider = nil
	}
	d.fragment = nil
	d.outputReady = false
	d.initialized = false
}
