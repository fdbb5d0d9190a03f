package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// resourceKind separates the binding namespaces tracked for borrowed resources.
type resourceKind uint8

const (
	kindBuffer resourceKind = iota
	kindTextureView
	kindSampler
)

type borrowKey struct {
	kind    resourceKind
	binding int
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed.
	// They are populated by the Renderer during initialization, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized with the Renderer.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers bound by this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds the GPU texture views bound by this provider, keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the GPU samplers bound by this provider, keyed by binding index.
	samplers map[int]*wgpu.Sampler

	// borrowed marks resources owned elsewhere (a dual view, another provider). Release skips them.
	borrowed map[borrowKey]struct{}
}

// BindGroupProvider defines the interface for components that require GPU bind group resources.
// The compressor and display renderer each hold providers describing their binding requirements.
// The Renderer uses a provider to create the GPU resources and the bind group itself.
//
// Usage pattern:
//  1. Component creates a BindGroupProvider with a debug label
//  2. Component attaches resources it does not own with SetBorrowedBuffer / SetBorrowedTextureView
//  3. Renderer.InitBindGroup(provider, ...) creates the remaining buffers and the bind group
//  4. Renderer.WriteBuffers(...) updates uniforms through BufferWrite values
//  5. Component passes BindGroup() to dispatch and draw calls
type BindGroupProvider interface {
	// Release releases the GPU resources owned by this provider.
	// Borrowed resources are dropped from the maps without being released.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns a map of all buffers associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: the buffers
	Buffers() map[int]*wgpu.Buffer

	// TextureView returns the texture view at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the view or nil
	TextureView(binding int) *wgpu.TextureView

	// TextureViews returns all texture views keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.TextureView: the texture views
	TextureViews() map[int]*wgpu.TextureView

	// Sampler returns the sampler at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// Samplers returns all samplers keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Sampler: the samplers
	Samplers() map[int]*wgpu.Sampler

	// IsBorrowed reports whether the resource at a binding is owned elsewhere.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - bool: true if the buffer, view, or sampler at binding was attached as borrowed
	IsBorrowed(binding int) bool

	SetBindGroup(bg *wgpu.BindGroup)
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)
	SetBuffer(binding int, buf *wgpu.Buffer)
	SetBuffers(buffers map[int]*wgpu.Buffer)
	SetTextureView(binding int, tv *wgpu.TextureView)
	SetTextureViews(textureViews map[int]*wgpu.TextureView)
	SetSampler(binding int, s *wgpu.Sampler)
	SetSamplers(samplers map[int]*wgpu.Sampler)

	// SetBorrowedBuffer attaches a buffer this provider binds but does not release.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer owned by another component
	SetBorrowedBuffer(binding int, buf *wgpu.Buffer)

	// SetBorrowedTextureView attaches a texture view this provider binds but does not release.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the view owned by another component
	SetBorrowedTextureView(binding int, tv *wgpu.TextureView)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty BindGroupProvider.
//
// Parameters:
//   - label: a debug label used in GPU object labels and log messages
//   - options: functional options applied after the maps are allocated
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
		borrowed:     make(map[borrowKey]struct{}),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) TextureViews() map[int]*wgpu.TextureView {
	return p.textureViews
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Samplers() map[int]*wgpu.Sampler {
	return p.samplers
}

func (p *bindGroupProvider) IsBorrowed(binding int) bool {
	for _, k := range []resourceKind{kindBuffer, kindTextureView, kindSampler} {
		if _, ok := p.borrowed[borrowKey{k, binding}]; ok {
			return true
		}
	}
	return false
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]*wgpu.Buffer)
	}
	p.buffers[binding] = buf
	p.unborrow(kindBuffer, binding)
}

func (p *bindGroupProvider) SetBuffers(buffers map[int]*wgpu.Buffer) {
	p.buffers = buffers
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	if p.textureViews == nil {
		p.textureViews = make(map[int]*wgpu.TextureView)
	}
	p.textureViews[binding] = tv
	p.unborrow(kindTextureView, binding)
}

func (p *bindGroupProvider) SetTextureViews(textureViews map[int]*wgpu.TextureView) {
	p.textureViews = textureViews
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	if p.samplers == nil {
		p.samplers = make(map[int]*wgpu.Sampler)
	}
	p.samplers[binding] = s
	p.unborrow(kindSampler, binding)
}

func (p *bindGroupProvider) SetSamplers(samplers map[int]*wgpu.Sampler) {
	p.samplers = samplers
}

func (p *bindGroupProvider) SetBorrowedBuffer(binding int, buf *wgpu.Buffer) {
	p.SetBuffer(binding, buf)
	p.borrow(kindBuffer, binding)
}

func (p *bindGroupProvider) SetBorrowedTextureView(binding int, tv *wgpu.TextureView) {
	p.SetTextureView(binding, tv)
	p.borrow(kindTextureView, binding)
}

func (p *bindGroupProvider) borrow(kind resourceKind, binding int) {
	if p.borrowed == nil {
		p.borrowed = make(map[borrowKey]struct{})
	}
	p.borrowed[borrowKey{kind, binding}] = struct{}{}
}

func (p *bindGroupProvider) unborrow(kind resourceKind, binding int) {
	delete(p.borrowed, borrowKey{kind, binding})
}

func (p *bindGroupProvider) owned(kind resourceKind, binding int) bool {
	_, ok := p.borrowed[borrowKey{kind, binding}]
	return !ok
}

func (p *bindGroupProvider) Release() {
	for i, tv := range p.textureViews {
		if tv != nil && p.owned(kindTextureView, i) {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, s := range p.samplers {
		if s != nil && p.owned(kindSampler, i) {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil && p.owned(kindBuffer, i) {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	clear(p.borrowed)

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
