package shader

import (
	_ "embed"
	"encoding/binary"
	"unsafe"
)

// GPUBlockLayoutSource is the canonical WGSL definition of the BlockLayout struct.
// Matches GPUBlockLayout layout exactly (16 bytes).
//
//go:embed assets/block_layout.wgsl
var GPUBlockLayoutSource string

// GPUDisplayParamsSource is the canonical WGSL definition of the DisplayParams struct.
// Matches GPUDisplayParams layout exactly (16 bytes).
//
//go:embed assets/display_params.wgsl
var GPUDisplayParamsSource string

// GPUBlockLayout is the uniform the compression compute stage reads to locate its 4x4 block.
// Size: 16 bytes.
type GPUBlockLayout struct {
	TexWidth  uint32 // offset  0: source texture width in texels
	TexHeight uint32 // offset  4: source texture height in texels
	BlocksX   uint32 // offset  8: blocks per row (TexWidth / 4)
	BlocksY   uint32 // offset 12: block rows (TexHeight / 4)
}

// NewGPUBlockLayout derives the block grid for a width x height texture.
//
// Parameters:
//   - width: the texture width in texels
//   - height: the texture height in texels
//
// Returns:
//   - GPUBlockLayout: the populated uniform
func NewGPUBlockLayout(width, height uint32) GPUBlockLayout {
	return GPUBlockLayout{
		TexWidth:  width,
		TexHeight: height,
		BlocksX:   width / 4,
		BlocksY:   height / 4,
	}
}

// Size returns the size of the GPUBlockLayout struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUBlockLayout) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBlockLayout struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUBlockLayout) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], g.TexWidth)
	binary.LittleEndian.PutUint32(buf[4:], g.TexHeight)
	binary.LittleEndian.PutUint32(buf[8:], g.BlocksX)
	binary.LittleEndian.PutUint32(buf[12:], g.BlocksY)
	return buf
}

// GPUDisplayParams controls how the display fragment stage presents a sampled texel.
// Size: 16 bytes.
type GPUDisplayParams struct {
	ReplicateRed uint32    // offset 0: non-zero spreads the red channel to RGB (single-channel sources)
	_pad         [3]uint32 // offset 4: padding to 16 bytes
}

// NewGPUDisplayParams builds display parameters for a texture.
//
// Parameters:
//   - replicateRed: true for single-channel textures that should display as grayscale
//
// Returns:
//   - GPUDisplayParams: the populated uniform
func NewGPUDisplayParams(replicateRed bool) GPUDisplayParams {
	var p GPUDisplayParams
	if replicateRed {
		p.ReplicateRed = 1
	}
	return p
}

// Size returns the size of the GPUDisplayParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUDisplayParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDisplayParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUDisplayParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], g.ReplicateRed)
	return buf
}
