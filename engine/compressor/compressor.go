package compressor

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/bc4"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/loader"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/dual_view"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/shader"
)

const (
	// PipelineKey is the renderer key of the compression compute pipeline.
	PipelineKey = "rgtc_compress"

	// ShaderFile is the compute shader file name inside the shader directory.
	ShaderFile = "rgtc_compress.wgsl"
)

// ErrInvalidDimensions is returned for sizes that are not positive multiples of the block size.
var ErrInvalidDimensions = bc4.ErrInvalidDimensions

// ErrNotInitialized is returned by CompressAndPublish before Initialize succeeded.
var ErrNotInitialized = errors.New("compressor not initialized")

// compressor is the implementation of the Compressor interface.
type compressor struct {
	mu sync.Mutex

	renderer renderer.Renderer
	loader   loader.Loader

	width, height uint32
	shaderDir     string
	texturePath   string

	source   *common.ImportedTexture
	output   dual_view.DualView
	provider bind_group_provider.BindGroupProvider

	// computeShader is the shader the compute bind group layout was created from.
	computeShader shader.Shader
	sourceBinding int
	blocksBinding int
	layoutBinding int

	// encoder resolves the command encoder of the open compute frame.
	encoder func() dual_view.Encoder

	initialized bool
}

// Compressor encodes the input texture into BC4 blocks on the GPU every frame and publishes
// them as a sampled BC4 texture in the same submission.
type Compressor interface {
	// Initialize loads the input texture, builds and registers the compression pipeline,
	// allocates the output storage with its BC4 texture, and wires the compute bind group.
	//
	// Returns:
	//   - error: *loader.AssetLoadError, *shader.ShaderCompileError, *renderer.ProgramLinkError
	//     or *renderer.ResourceAllocationError on failure
	Initialize() error

	// BuildPipeline compiles the compression shader from the shader directory into a new,
	// unregistered compute pipeline.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, ready for renderer.BuildPipelines
	//   - error: *shader.ShaderCompileError if the shader fails to compile
	BuildPipeline() (pipeline.Pipeline, error)

	// CheckPipeline reports whether a rebuilt compression pipeline can run against the
	// compute bind group created at Initialize. It accepts anything before Initialize.
	//
	// Parameters:
	//   - p: the rebuilt pipeline
	//
	// Returns:
	//   - error: *renderer.ProgramLinkError wrapping shader.ErrLayoutMismatch
	CheckPipeline(p pipeline.Pipeline) error

	// CompressAndPublish records one compression pass into the renderer's open compute frame:
	// write the block layout, dispatch one invocation per block, end the pass, then copy the
	// storage into the BC4 texture. The caller owns BeginComputeFrame and EndComputeFrame.
	//
	// Returns:
	//   - error: error if no compute frame is open or encoding fails
	CompressAndPublish() error

	// Source returns the loaded input texture.
	Source() *common.ImportedTexture

	// SourceView returns the GPU view of the uploaded input texture, nil before Initialize.
	// The compressor owns it; other bind groups may borrow it.
	SourceView() *wgpu.TextureView

	// Output returns the dual-view output resource.
	Output() dual_view.DualView

	// Provider returns the compute bind group provider.
	Provider() bind_group_provider.BindGroupProvider

	// Width returns the texture width in texels.
	Width() uint32

	// Height returns the texture height in texels.
	Height() uint32

	// StorageSize returns the byte size of the output storage.
	StorageSize() uint64

	// DispatchGrid returns the workgroup counts dispatched each frame.
	DispatchGrid() [3]uint32

	// Release frees the output resource and the compute bind group.
	Release()
}

var _ Compressor = &compressor{}

// StorageSize returns the size in bytes of the BC4 data for a width x height texture: w*h/2.
//
// Parameters:
//   - width: the texture width in texels
//   - height: the texture height in texels
//
// Returns:
//   - uint64: the storage size in bytes
//   - error: ErrInvalidDimensions if either size is not a positive multiple of 4
func StorageSize(width, height uint32) (uint64, error) {
	size, err := bc4.CompressedSize(int(width), int(height))
	if err != nil {
		return 0, err
	}
	return uint64(size), nil
}

// DispatchGrid returns the compute workgroup counts for a width x height texture: one
// single-invocation workgroup per 4x4 block.
//
// Parameters:
//   - width: the texture width in texels
//   - height: the texture height in texels
//
// Returns:
//   - [3]uint32: the workgroup counts (w/4, h/4, 1)
//   - error: ErrInvalidDimensions if either size is not a positive multiple of 4
func DispatchGrid(width, height uint32) ([3]uint32, error) {
	if err := bc4.ValidateDimensions(int(width), int(height)); err != nil {
		return [3]uint32{}, err
	}
	return [3]uint32{width / bc4.BlockDim, height / bc4.BlockDim, 1}, nil
}

// ValidateDimensions checks that a width x height texture can be compressed and published.
// Beyond block alignment, one row of blocks must fill a whole number of 256 byte copy rows.
//
// Parameters:
//   - width: the texture width in texels
//   - height: the texture height in texels
//
// Returns:
//   - error: ErrInvalidDimensions or dual_view.ErrUnalignedRows
func ValidateDimensions(width, height uint32) error {
	_, err := dual_view.CopyLayout(width, height)
	return err
}

// NewCompressor creates a new Compressor bound to the given renderer.
// Defaults: 512x512, shaders from examples/assets/shaders.
//
// Parameters:
//   - r: the renderer that owns the device
//   - options: a variadic list of CompressorBuilderOption functions
//
// Returns:
//   - Compressor: the configured compressor, not yet initialized
func NewCompressor(r renderer.Renderer, options ...CompressorBuilderOption) Compressor {
	c := &compressor{
		renderer:      r,
		width:         512,
		height:        512,
		shaderDir:     filepath.Join("examples", "assets", "shaders"),
		sourceBinding: -1,
		blocksBinding: -1,
		layoutBinding: -1,
	}
	c.encoder = func() dual_view.Encoder {
		return dual_view.FromCommandEncoder(c.renderer.ComputeEncoder())
	}

	for _, option := range options {
		option(c)
	}

	if c.loader == nil {
		c.loader = loader.NewLoader(
			loader.WithUploader(r),
			loader.WithTargetSize(int(c.width), int(c.height)),
		)
	}
	return c
}

func (c *compressor) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ValidateDimensions(c.width, c.height); err != nil {
		return err
	}

	if c.source == nil {
		tex, err := c.loader.Load(c.texturePath)
		if err != nil {
			return err
		}
		c.source = tex
	}
	if c.source.Width != int(c.width) || c.source.Height != int(c.height) {
		c.source = loader.Resize(c.source, int(c.width), int(c.height))
	}

	p, err := c.BuildPipeline()
	if err != nil {
		return err
	}
	if err := c.renderer.RegisterPipelines(p); err != nil {
		return err
	}
	computeShader := c.renderer.Pipeline(PipelineKey).Shader(shader.ShaderTypeCompute)

	if err := c.resolveBindings(computeShader); err != nil {
		return err
	}

	output, err := dual_view.NewDualView(c.renderer, "Output Storage", c.width, c.height)
	if err != nil {
		return err
	}
	blocks, err := output.WriteView(uint32(c.blocksBinding))
	if err != nil {
		output.Release()
		return err
	}

	provider := bind_group_provider.NewBindGroupProvider("Compress",
		bind_group_provider.WithBorrowedBuffer(int(blocks.Binding), blocks.Buffer),
	)
	if err := c.loader.Upload(c.source, provider, c.sourceBinding, -1); err != nil {
		output.Release()
		return &renderer.ResourceAllocationError{Resource: "input texture", Err: err}
	}
	if err := c.renderer.InitBindGroup(provider, computeShader.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
		provider.Release()
		output.Release()
		return &renderer.ResourceAllocationError{Resource: "compress bind group", Err: err}
	}

	c.computeShader = computeShader
	c.output = output
	c.provider = provider
	c.initialized = true

	grid, _ := DispatchGrid(c.width, c.height)
	common.Logger().Info("compressor initialized",
		"texture", c.source.Name,
		"size", fmt.Sprintf("%dx%d", c.width, c.height),
		"storage_bytes", output.Size(),
		"grid", grid)
	return nil
}

// computeIdentities are the declarations the compute bind group is wired by.
var computeIdentities = []shader.AnnotationArg{
	shader.AnnotationArgSourceTexture,
	shader.AnnotationArgOutputBlocks,
	shader.AnnotationArgBlockLayout,
}

// resolveBindings reads the compute bind group indices from the shader's declarations.
func (c *compressor) resolveBindings(s shader.Shader) error {
	dsts := []*int{&c.sourceBinding, &c.blocksBinding, &c.layoutBinding}
	for i, identity := range computeIdentities {
		group, binding, ok := s.BindingFor(identity)
		if !ok || group != 0 {
			return &renderer.ProgramLinkError{
				Key: PipelineKey,
				Err: fmt.Errorf("compute shader does not declare %s in group 0", identity),
			}
		}
		*dsts[i] = binding
	}
	return nil
}

func (c *compressor) BuildPipeline() (pipeline.Pipeline, error) {
	s, err := shader.NewShader(PipelineKey, shader.ShaderTypeCompute, filepath.Join(c.shaderDir, ShaderFile))
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s)), nil
}

func (c *compressor) CheckPipeline(p pipeline.Pipeline) error {
	c.mu.Lock()
	live := c.computeShader
	c.mu.Unlock()

	if live == nil {
		return nil
	}
	if err := shader.CheckCompatible(live, p.Shader(shader.ShaderTypeCompute), 0, computeIdentities...); err != nil {
		return &renderer.ProgramLinkError{Key: PipelineKey, Err: err}
	}
	return nil
}

func (c *compressor) CompressAndPublish() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return ErrNotInitialized
	}

	grid, err := DispatchGrid(c.width, c.height)
	if err != nil {
		return err
	}
	layout := shader.NewGPUBlockLayout(c.width, c.height)
	c.renderer.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: c.provider,
		Binding:  c.layoutBinding,
		Data:     layout.Marshal(),
	}})

	if err := c.output.BeginWrite(); err != nil {
		return err
	}
	if err := c.renderer.DispatchCompute(PipelineKey, c.provider, grid); err != nil {
		c.output.CancelWrite()
		return fmt.Errorf("dispatch %v: %w", grid, err)
	}
	// The dispatch ended its pass, which orders the block writes before the copy.
	if err := c.output.Publish(c.encoder()); err != nil {
		c.output.CancelWrite()
		return fmt.Errorf("publish output: %w", err)
	}
	common.Logger().Debug("compressed frame", "grid", grid, "published", c.output.Published())
	return nil
}

func (c *compressor) Source() *common.ImportedTexture {
	return c.source
}

func (c *compressor) SourceView() *wgpu.TextureView {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider == nil {
		return nil
	}
	return c.provider.TextureView(c.sourceBinding)
}

func (c *compressor) Output() dual_view.DualView {
	return c.output
}

func (c *compressor) Provider() bind_group_provider.BindGroupProvider {
	return c.provider
}

func (c *compressor) Width() uint32 {
	return c.width
}

func (c *compressor) Height() uint32 {
	return c.height
}

func (c *compressor) StorageSize() uint64 {
	size, _ := StorageSize(c.width, c.height)
	return size
}

func (c *compressor) DispatchGrid() [3]uint32 {
	grid, _ := DispatchGrid(c.width, c.height)
	return grid
}

func (c *compressor) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider != nil {
		c.provider.Release()
		c.provider = nil
	}
	if c.output != nil {
		c.output.Release()
		c.output = nil
	}
	c.computeShader = nil
	c.initialized = false
}
