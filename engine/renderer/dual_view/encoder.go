package dual_view

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoEncoder is returned when Publish is given an encoder wrapping nil.
var ErrNoEncoder = errors.New("dual view: no command encoder")

// commandEncoder adapts *wgpu.CommandEncoder to Encoder.
type commandEncoder struct {
	enc *wgpu.CommandEncoder
}

// FromCommandEncoder wraps a WebGPU command encoder for Publish.
//
// Parameters:
//   - enc: the encoder holding the compute pass that wrote the storage
//
// Returns:
//   - Encoder: the adapter
func FromCommandEncoder(enc *wgpu.CommandEncoder) Encoder {
	return commandEncoder{enc: enc}
}

func (c commandEncoder) CopyBufferToTexture(src *wgpu.ImageCopyBuffer, dst *wgpu.ImageCopyTexture, size *wgpu.Extent3D) error {
	if c.enc == nil {
		return ErrNoEncoder
	}
	if err := c.enc.CopyBufferToTexture(src, dst, size); err != nil {
		return fmt.Errorf("copy buffer to texture: %w", err)
	}
	return nil
}
