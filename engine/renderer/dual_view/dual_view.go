// Package dual_view owns one block of GPU memory that is written as a storage buffer and read
// as a BC4 texture. The transition between the two views is explicit: a writer marks the
// buffer written, then Publish records the copy that makes the bytes visible to samplers.
package dual_view

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/engine/bc4"
)

// State is the position of a DualView in its write/publish cycle.
type State int

const (
	// StateEmpty means nothing has been written since allocation.
	StateEmpty State = iota
	// StateWritten means a writer has recorded work against the write view that is not yet published.
	StateWritten
	// StatePublished means the read view holds the bytes of the last write.
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateWritten:
		return "written"
	case StatePublished:
		return "published"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// copyRowAlignment is the WebGPU requirement on bytesPerRow for buffer/texture copies.
const copyRowAlignment = 256

var (
	// ErrNotPublished is returned by ReadView before the first Publish.
	ErrNotPublished = errors.New("dual view: read view requested before publish")
	// ErrNotWritten is returned by Publish when no write is pending.
	ErrNotWritten = errors.New("dual view: publish without a pending write")
	// ErrWritePending is returned while a write has been recorded but not yet published.
	ErrWritePending = errors.New("dual view: write pending")
	// ErrUnalignedRows is returned when a block row is not a multiple of 256 bytes.
	ErrUnalignedRows = errors.New("dual view: block row size must be a multiple of 256 bytes")
	// ErrReleased is returned by every operation after Release.
	ErrReleased = errors.New("dual view: released")
)

// Allocator creates the two GPU objects a DualView owns. The Renderer satisfies it.
type Allocator interface {
	CreateStorageBuffer(label string, size uint64) (*wgpu.Buffer, error)
	CreateCompressedTexture(label string, width, height uint32) (*wgpu.Texture, *wgpu.TextureView, error)
}

// Encoder records the relabelling copy. Commands recorded on it must execute after the
// compute pass that wrote the buffer.
type Encoder interface {
	CopyBufferToTexture(src *wgpu.ImageCopyBuffer, dst *wgpu.ImageCopyTexture, size *wgpu.Extent3D) error
}

// dualView is the implementation of the DualView interface.
type dualView struct {
	mu sync.Mutex

	label         string
	width, height uint32
	size          uint64

	buffer  *wgpu.Buffer
	texture *wgpu.Texture
	view    *wgpu.TextureView

	state     State
	published uint64
	released  bool
}

// DualView is one storage allocation with a buffer view for writing blocks and a texture view
// for sampling them.
type DualView interface {
	// Label returns the debug label.
	Label() string

	// Width returns the texture width in texels.
	Width() uint32

	// Height returns the texture height in texels.
	Height() uint32

	// Size returns the storage size in bytes, width*height/2.
	Size() uint64

	// Buffer returns the owned storage buffer.
	Buffer() *wgpu.Buffer

	// WriteView returns a bind group entry covering the whole storage buffer. Writers bind
	// the storage through it, so it is only handed out while no write is pending.
	//
	// Parameters:
	//   - binding: the binding index to place the entry at
	//
	// Returns:
	//   - wgpu.BindGroupEntry: the storage buffer entry
	//   - error: ErrWritePending in StateWritten, ErrReleased after Release
	WriteView(binding uint32) (wgpu.BindGroupEntry, error)

	// ReadView returns the BC4 texture view.
	//
	// Returns:
	//   - *wgpu.TextureView: the view
	//   - error: ErrNotPublished until the first Publish succeeded, ErrWritePending while a
	//     later write is recorded but unpublished
	ReadView() (*wgpu.TextureView, error)

	// BeginWrite moves an empty or published view to StateWritten.
	//
	// Returns:
	//   - error: ErrWritePending if a write is already pending, ErrReleased after Release
	BeginWrite() error

	// CancelWrite drops a pending write that will not be published, returning the view to
	// the state it had before BeginWrite. It does nothing outside StateWritten.
	CancelWrite()

	// Publish records the copy that makes the written storage readable through the read view.
	// The caller records it on the same encoder as the write, after the write's pass ended.
	//
	// Parameters:
	//   - encoder: the encoder holding the write
	//
	// Returns:
	//   - error: ErrNotWritten unless BeginWrite preceded it, or the encoder's error
	Publish(encoder Encoder) error

	// State returns the current position in the write/publish cycle.
	State() State

	// Published returns how many times Publish succeeded.
	Published() uint64

	// Release releases the buffer, texture and view.
	Release()
}

var _ DualView = &dualView{}

// NewDualView validates the dimensions and allocates the storage buffer and BC4 texture.
//
// Parameters:
//   - alloc: the allocator for the GPU objects
//   - label: the debug label
//   - width, height: the texture size in texels
//
// Returns:
//   - DualView: the resource in StateEmpty
//   - error: a dimension error from CopyLayout or the allocator's error
func NewDualView(alloc Allocator, label string, width, height uint32) (DualView, error) {
	if _, err := CopyLayout(width, height); err != nil {
		return nil, err
	}
	d := &dualView{
		label:  label,
		width:  width,
		height: height,
		size:   uint64(width) * uint64(height) / 2,
	}

	buf, err := alloc.CreateStorageBuffer(label+" Storage", d.size)
	if err != nil {
		return nil, err
	}
	tex, view, err := alloc.CreateCompressedTexture(label+" BC4 Texture", width, height)
	if err != nil {
		if buf != nil {
			buf.Release()
		}
		return nil, err
	}
	d.buffer, d.texture, d.view = buf, tex, view
	return d, nil
}

// CopyLayout returns the buffer layout of a width x height BC4 image as a copy source.
//
// Parameters:
//   - width, height: the image size in texels
//
// Returns:
//   - wgpu.TextureDataLayout: bytesPerRow = (width/4)*8, rowsPerImage = height/4
//   - error: bc4.ErrInvalidDimensions or ErrUnalignedRows
func CopyLayout(width, height uint32) (wgpu.TextureDataLayout, error) {
	if err := bc4.ValidateDimensions(int(width), int(height)); err != nil {
		return wgpu.TextureDataLayout{}, err
	}
	bytesPerRow := (width / bc4.BlockDim) * bc4.BlockBytes
	if bytesPerRow%copyRowAlignment != 0 {
		return wgpu.TextureDataLayout{}, fmt.Errorf("%w: width %d gives %d bytes", ErrUnalignedRows, width, bytesPerRow)
	}
	return wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  bytesPerRow,
		RowsPerImage: height / bc4.BlockDim,
	}, nil
}

func (d *dualView) Label() string {
	return d.label
}

func (d *dualView) Width() uint32 {
	return d.width
}

func (d *dualView) Height() uint32 {
	return d.height
}

func (d *dualView) Size() uint64 {
	return d.size
}

func (d *dualView) Buffer() *wgpu.Buffer {
	return d.buffer
}

func (d *dualView) WriteView(binding uint32) (wgpu.BindGroupEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return wgpu.BindGroupEntry{}, ErrReleased
	}
	if d.state == StateWritten {
		return wgpu.BindGroupEntry{}, ErrWritePending
	}
	return wgpu.BindGroupEntry{
		Binding: binding,
		Buffer:  d.buffer,
		Offset:  0,
		Size:    d.size,
	}, nil
}

func (d *dualView) ReadView() (*wgpu.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil, ErrReleased
	}
	if d.published == 0 {
		return nil, ErrNotPublished
	}
	if d.state != StatePublished {
		return nil, fmt.Errorf("%w: %d publishes so far", ErrWritePending, d.published)
	}
	return d.view, nil
}

func (d *dualView) BeginWrite() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return ErrReleased
	}
	if d.state == StateWritten {
		return ErrWritePending
	}
	d.state = StateWritten
	return nil
}

func (d *dualView) CancelWrite() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateWritten {
		return
	}
	if d.published == 0 {
		d.state = StateEmpty
	} else {
		d.state = StatePublished
	}
}

func (d *dualView) Publish(encoder Encoder) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return ErrReleased
	}
	if d.state != StateWritten {
		return fmt.Errorf("%w (state %s)", ErrNotWritten, d.state)
	}

	layout, err := CopyLayout(d.width, d.height)
	if err != nil {
		return err
	}
	err = encoder.CopyBufferToTexture(
		&wgpu.ImageCopyBuffer{
			Buffer: d.buffer,
			Layout: layout,
		},
		&wgpu.ImageCopyTexture{
			Texture:  d.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{
			Width:              d.width,
			Height:             d.height,
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", d.label, err)
	}

	d.state = StatePublished
	d.published++
	return nil
}

func (d *dualView) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *dualView) Published() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.published
}

func (d *dualView) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return
	}
	d.released = true
	if d.view != nil {
		d.view.Release()
		d.view = nil
	}
	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}
	if d.buffer != nil {
		d.buffer.Release()
		d.buffer = nil
	}
}
