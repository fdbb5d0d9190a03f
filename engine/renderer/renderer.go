package renderer

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	// pipelineCache holds the live pipelines by key. Reloads replace entries wholesale.
	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	clearColor           wgpu.Color
	requiredFeatures     []wgpu.FeatureName
}

// Renderer owns the GPU device and surface, the pipeline registry, and the per-frame
// command encoding. Compute work is batched into one encoder per frame so that a copy can be
// recorded behind the compute pass before submission.
type Renderer interface {
	// Pipeline returns the live pipeline registered under key, or nil.
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a snapshot of the registry.
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the GPU objects for pipelines whose keys are not yet registered
	// and adds them to the registry. Nothing is registered if any pipeline fails.
	//
	// Parameters:
	//   - pipelines: the pipelines to create
	//
	// Returns:
	//   - error: a *ProgramLinkError for the first pipeline that failed
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// BuildPipelines creates the GPU objects for pipelines without touching the registry.
	// On failure every object built by this call is released.
	//
	// Parameters:
	//   - pipelines: the pipelines to create
	//
	// Returns:
	//   - error: a *ProgramLinkError for the first pipeline that failed
	BuildPipelines(pipelines ...pipeline.Pipeline) error

	// SwapPipelines installs already-built pipelines under their keys in one step.
	//
	// Parameters:
	//   - pipelines: the built pipelines to install
	//
	// Returns:
	//   - []pipeline.Pipeline: the pipelines that were replaced, for the caller to release
	SwapPipelines(pipelines ...pipeline.Pipeline) []pipeline.Pipeline

	// ReloadPipelines builds the given pipelines into temporaries and swaps them in only if
	// all of them were created. The replaced pipelines are released. On failure the registry
	// is unchanged.
	//
	// Parameters:
	//   - pipelines: replacement pipelines keyed like the ones they replace
	//
	// Returns:
	//   - error: a *ProgramLinkError, in which case the old pipelines stay live
	ReloadPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface.
	Resize(width, height int)

	// SetPresentMode changes the present mode. Takes effect on the next Resize.
	SetPresentMode(mode PresentMode)

	// InitBindGroup creates missing buffers for a provider and then its bind group.
	// Texture and sampler bindings must already be populated on the provider.
	//
	// Parameters:
	//   - provider: the provider holding the resources
	//   - descriptor: the layout descriptor reflected from the shader
	//   - bufferUsageOverrides: extra usage flags per binding
	//   - bufferSizeOverrides: buffer sizes per binding, replacing the reflected minimum
	//
	// Returns:
	//   - error: an error if a resource or the bind group could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView uploads texels into a new texture and stores its view on the provider.
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler and stores it on the provider.
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers queues buffer writes.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// CreateStorageBuffer allocates a storage buffer that can also be copied from and into.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: a *ResourceAllocationError
	CreateStorageBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// CreateCompressedTexture allocates a BC4 (RGTC1) texture that can be sampled and filled by copy.
	//
	// Parameters:
	//   - label: the debug label
	//   - width, height: the size in texels, multiples of 4
	//
	// Returns:
	//   - *wgpu.Texture: the texture
	//   - *wgpu.TextureView: a view over the whole texture
	//   - error: a *ResourceAllocationError
	CreateCompressedTexture(label string, width, height uint32) (*wgpu.Texture, *wgpu.TextureView, error)

	// ReadBuffer copies size bytes from src into host memory. It blocks until the GPU is done.
	//
	// Parameters:
	//   - src: a buffer created with CopySrc usage
	//   - size: the number of bytes to read from offset 0
	//
	// Returns:
	//   - []byte: the copied bytes
	//   - error: an error if the copy or the mapping failed
	ReadBuffer(src *wgpu.Buffer, size uint64) ([]byte, error)

	// BeginComputeFrame opens the command encoder shared by this frame's compute work.
	BeginComputeFrame() error

	// ComputeEncoder returns the encoder opened by BeginComputeFrame, or nil outside a compute frame.
	// Commands recorded on it run after every pass dispatched before them.
	ComputeEncoder() *wgpu.CommandEncoder

	// DispatchCompute records one compute pass. The pass ends before DispatchCompute returns.
	//
	// Parameters:
	//   - pipelineKey: the registered compute pipeline
	//   - computeProvider: the provider whose bind group goes to group 0
	//   - workGroupCount: the dispatch grid
	//
	// Returns:
	//   - error: an error if the pipeline is unknown or no compute frame is open
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame finishes and submits the compute encoder.
	EndComputeFrame() error

	// BeginFrame acquires the swapchain texture and begins the render pass, cleared to the clear color.
	BeginFrame() error

	// Draw records a non-indexed draw with no vertex buffers.
	//
	// Parameters:
	//   - pipelineKey: the registered render pipeline
	//   - vertexCount: vertices to generate from vertex_index
	//   - bindGroups: providers bound to groups 0..n in order
	//
	// Returns:
	//   - error: an error if the pipeline is unknown or no frame is open
	Draw(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the render pass and submits it.
	EndFrame() error

	// Present presents the surface texture acquired by BeginFrame.
	Present()

	// Release releases the registry and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing into the window's surface. The device is created with
// the texture-compression-bc feature.
//
// Parameters:
//   - backendType: the GPU backend
//   - window: the window providing the surface descriptor and size
//   - options: functional options
//
// Returns:
//   - Renderer: the renderer
//   - error: a *ResourceAllocationError if the adapter, device, or BC support is missing
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	if window == nil {
		panic("renderer: nil window")
	}

	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		clearColor:    wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		b, err := newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter, r.requiredFeatures, r.clearColor)
		if err != nil {
			return nil, err
		}
		r.backend = b
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if err := r.backend.ConfigureSurface(window.Width(), window.Height()); err != nil {
		r.backend.Release()
		return nil, err
	}
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		common.Logger().Error("surface reconfigure failed", "width", width, "height", height, "error", err)
	}
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	fresh := make([]pipeline.Pipeline, 0, len(pipelines))
	r.mu.Lock()
	for _, p := range pipelines {
		if _, exists := r.pipelineCache[p.PipelineKey()]; !exists {
			fresh = append(fresh, p)
		}
	}
	r.mu.Unlock()

	if err := r.BuildPipelines(fresh...); err != nil {
		return err
	}
	r.SwapPipelines(fresh...)
	return nil
}

func (r *renderer) BuildPipelines(pipelines ...pipeline.Pipeline) error {
	built := make([]pipeline.Pipeline, 0, len(pipelines))
	for _, p := range pipelines {
		if err := r.buildPipeline(p); err != nil {
			for _, b := range built {
				b.Release()
			}
			return err
		}
		built = append(built, p)
	}
	return nil
}

func (r *renderer) buildPipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return &ProgramLinkError{Key: p.PipelineKey(), Err: err}
	}

	var err error
	switch p.Type() {
	case pipeline.PipelineTypeCompute:
		err = r.backend.RegisterComputePipeline(p)
	case pipeline.PipelineTypeRender:
		err = r.backend.RegisterRenderPipeline(p)
	}
	if err != nil {
		return &ProgramLinkError{Key: p.PipelineKey(), Err: err}
	}
	return nil
}

func (r *renderer) SwapPipelines(pipelines ...pipeline.Pipeline) []pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()

	var replaced []pipeline.Pipeline
	for _, p := range pipelines {
		key := p.PipelineKey()
		if old, ok := r.pipelineCache[key]; ok && old != p {
			replaced = append(replaced, old)
		}
		r.pipelineCache[key] = p
	}
	return replaced
}

func (r *renderer) ReloadPipelines(pipelines ...pipeline.Pipeline) error {
	if err := r.BuildPipelines(pipelines...); err != nil {
		return err
	}
	for _, old := range r.SwapPipelines(pipelines...) {
		old.Release()
	}
	return nil
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) CreateStorageBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	buf, err := r.backend.CreateBuffer(label, size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, &ResourceAllocationError{Resource: label, Err: err}
	}
	return buf, nil
}

func (r *renderer) CreateCompressedTexture(label string, width, height uint32) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, view, err := r.backend.CreateCompressedTexture(label, width, height)
	if err != nil {
		return nil, nil, &ResourceAllocationError{Resource: label, Err: err}
	}
	return tex, view, nil
}

func (r *renderer) ReadBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	return r.backend.ReadBuffer(src, size)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) ComputeEncoder() *wgpu.CommandEncoder {
	return r.backend.ComputeEncoder()
}

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	p := r.Pipeline(pipelineKey)
	if p == nil || !p.Created() {
		return fmt.Errorf("compute pipeline %q not found in cache", pipelineKey)
	}
	return r.backend.DispatchCompute(p, computeProvider, workGroupCount)
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) Draw(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p := r.Pipeline(pipelineKey)
	if p == nil || !p.Created() {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	return r.backend.Draw(p, vertexCount, bindGroups)
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	for k, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, k)
	}
	r.mu.Unlock()
	r.backend.Release()
}
