// Package bc4 implements a CPU reference codec for the BC4 (RGTC1) single-channel block format.
//
// A BC4 block covers 4x4 texels in 8 bytes: two 8-bit endpoints followed by sixteen 3-bit
// palette indices packed little-endian in row-major texel order. The engine never uses this
// package to produce displayed data; it exists to verify GPU output and to drive tests.
package bc4

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// BlockDim is the edge length of a BC4 block in texels.
	BlockDim = 4
	// BlockBytes is the encoded size of one BC4 block.
	BlockBytes = 8
	// TexelsPerBlock is the number of texels covered by one block.
	TexelsPerBlock = BlockDim * BlockDim
)

var (
	// ErrInvalidDimensions is returned when a width or height is not a positive multiple of BlockDim.
	ErrInvalidDimensions = errors.New("bc4: dimensions must be positive multiples of 4")
	// ErrShortBuffer is returned when an input slice is smaller than the dimensions require.
	ErrShortBuffer = errors.New("bc4: buffer too small for dimensions")
)

// Block is one encoded BC4 block.
type Block [BlockBytes]byte

// Palette expands two endpoints into the eight palette values selected by a block's indices.
// When r0 > r1 the six interior values interpolate between the endpoints; otherwise four
// interior values are interpolated and the last two entries are fixed at 0 and 255.
//
// Parameters:
//   - r0: the first endpoint
//   - r1: the second endpoint
//
// Returns:
//   - [8]uint8: the palette indexed by the 3-bit texel codes
func Palette(r0, r1 uint8) [8]uint8 {
	var p [8]uint8
	p[0], p[1] = r0, r1

	if r0 > r1 {
		for i := 2; i < 8; i++ {
			p[i] = uint8(((8-i)*int(r0) + (i-1)*int(r1)) / 7)
		}
	} else {
		for i := 2; i < 6; i++ {
			p[i] = uint8(((6-i)*int(r0) + (i-1)*int(r1)) / 5)
		}
		p[6] = 0
		p[7] = 255
	}

	return p
}

// EncodeBlock compresses sixteen single-channel texels into a BC4 block.
// The endpoints are the block maximum and minimum, and every texel picks the palette entry
// nearest to its value. The result is a pure function of the input texels.
//
// Parameters:
//   - texels: the sixteen texel values in row-major order
//
// Returns:
//   - Block: the encoded block
func EncodeBlock(texels *[TexelsPerBlock]uint8) Block {
	lo, hi := texels[0], texels[0]
	for _, v := range texels[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b Block
	b[0], b[1] = hi, lo
	if hi == lo {
		// r0 == r1 selects the six-value palette whose index 0 is r0 exactly; all indices stay zero.
		return b
	}

	palette := Palette(hi, lo)
	var bits uint64
	for i, v := range texels {
		best, bestErr := 0, 256
		for idx, pv := range palette {
			d := int(v) - int(pv)
			if d < 0 {
				d = -d
			}
			if d < bestErr {
				best, bestErr = idx, d
			}
		}
		bits |= uint64(best) << (3 * i)
	}
	putIndexBits(&b, bits)
	return b
}

// Decode expands the block back into sixteen single-channel texels in row-major order.
//
// Returns:
//   - [16]uint8: the decoded texel values
func (b Block) Decode() [TexelsPerBlock]uint8 {
	palette := Palette(b[0], b[1])
	bits := b.indexBits()

	var out [TexelsPerBlock]uint8
	for i := range out {
		out[i] = palette[(bits>>(3*i))&0x07]
	}
	return out
}

// BlockFromWords rebuilds a block from the two 32-bit words of a vec2<u32> element.
//
// Parameters:
//   - lo: the first word (endpoints and the first 16 index bits)
//   - hi: the second word (the remaining 32 index bits)
//
// Returns:
//   - Block: the reconstructed block
func BlockFromWords(lo, hi uint32) Block {
	var b Block
	binary.LittleEndian.PutUint32(b[0:4], lo)
	binary.LittleEndian.PutUint32(b[4:8], hi)
	return b
}

func (b Block) indexBits() uint64 {
	var bits uint64
	for i := range 6 {
		bits |= uint64(b[2+i]) << (8 * i)
	}
	return bits
}

func putIndexBits(b *Block, bits uint64) {
	for i := range 6 {
		b[2+i] = byte(bits >> (8 * i))
	}
}

// CompressedSize returns the number of bytes a width x height image occupies in BC4.
// At 4 bits per texel this is width*height/2.
//
// Parameters:
//   - width: the image width in texels
//   - height: the image height in texels
//
// Returns:
//   - int: the compressed size in bytes
//   - error: ErrInvalidDimensions if either dimension is not a positive multiple of 4
func CompressedSize(width, height int) (int, error) {
	if err := ValidateDimensions(width, height); err != nil {
		return 0, err
	}
	return width * height / 2, nil
}

// ValidateDimensions checks that both dimensions are positive multiples of BlockDim.
//
// Parameters:
//   - width: the image width in texels
//   - height: the image height in texels
//
// Returns:
//   - error: ErrInvalidDimensions wrapped with the offending size, or nil
func ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 || width%BlockDim != 0 || height%BlockDim != 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	return nil
}

// Encode compresses a single-channel image into BC4 blocks in row-major block order.
//
// Parameters:
//   - texels: width*height single-channel values in row-major order
//   - width: the image width in texels
//   - height: the image height in texels
//
// Returns:
//   - []byte: width*height/2 bytes of BC4 data
//   - error: an error if the dimensions are invalid or texels is too short
func Encode(texels []uint8, width, height int) ([]byte, error) {
	size, err := CompressedSize(width, height)
	if err != nil {
		return nil, err
	}
	if len(texels) < width*height {
		return nil, fmt.Errorf("%w: have %d texels, need %d", ErrShortBuffer, len(texels), width*height)
	}

	out := make([]byte, size)
	blocksX := width / BlockDim
	var block [TexelsPerBlock]uint8
	for by := range height / BlockDim {
		for bx := range blocksX {
			for py := range BlockDim {
				row := (by*BlockDim+py)*width + bx*BlockDim
				copy(block[py*BlockDim:(py+1)*BlockDim], texels[row:row+BlockDim])
			}
			encoded := EncodeBlock(&block)
			copy(out[(by*blocksX+bx)*BlockBytes:], encoded[:])
		}
	}
	return out, nil
}

// Decode expands BC4 data into a single-channel image.
//
// Parameters:
//   - data: width*height/2 bytes of BC4 blocks in row-major block order
//   - width: the image width in texels
//   - height: the image height in texels
//
// Returns:
//   - []uint8: width*height decoded values in row-major order
//   - error: an error if the dimensions are invalid or data is too short
func Decode(data []byte, width, height int) ([]uint8, error) {
	if err := ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	out := make([]uint8, width*height)
	if err := DecodeBlockRows(data, width, height, 0, height/BlockDim, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeBlockRows decodes the block rows [rowStart, rowEnd) into dst. Disjoint row ranges
// write disjoint regions of dst, so callers may decode ranges concurrently.
//
// Parameters:
//   - data: the full BC4 image
//   - width: the image width in texels
//   - height: the image height in texels
//   - rowStart: the first block row to decode
//   - rowEnd: one past the last block row to decode
//   - dst: the width*height destination image
//
// Returns:
//   - error: an error if data or dst is too short, or the row range is out of bounds
func DecodeBlockRows(data []byte, width, height, rowStart, rowEnd int, dst []uint8) error {
	size, err := CompressedSize(width, height)
	if err != nil {
		return err
	}
	if len(data) < size {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(data), size)
	}
	if len(dst) < width*height {
		return fmt.Errorf("%w: destination holds %d texels, need %d", ErrShortBuffer, len(dst), width*height)
	}
	blocksX, blocksY := width/BlockDim, height/BlockDim
	if rowStart < 0 || rowEnd > blocksY || rowStart > rowEnd {
		return fmt.Errorf("bc4: block row range [%d, %d) outside [0, %d)", rowStart, rowEnd, blocksY)
	}

	for by := rowStart; by < rowEnd; by++ {
		for bx := range blocksX {
			var b Block
			copy(b[:], data[(by*blocksX+bx)*BlockBytes:])
			texels := b.Decode()
			for py := range BlockDim {
				row := (by*BlockDim+py)*width + bx*BlockDim
				copy(dst[row:row+BlockDim], texels[py*BlockDim:(py+1)*BlockDim])
			}
		}
	}
	return nil
}

// ExtractChannel pulls one 8-bit channel out of tightly packed RGBA8 pixels.
//
// Parameters:
//   - rgba: RGBA8 pixel data, 4 bytes per pixel
//   - channel: the channel index (0=R, 1=G, 2=B, 3=A)
//
// Returns:
//   - []uint8: one value per pixel
func ExtractChannel(rgba []byte, channel int) []uint8 {
	out := make([]uint8, len(rgba)/4)
	for i := range out {
		out[i] = rgba[i*4+channel]
	}
	return out
}

// MaxQuantizationError returns the largest reconstruction error EncodeBlock can produce for
// a block whose values span [lo, hi]. Each palette step is (hi-lo)/7 wide, so the nearest
// entry is at most half a step away, plus one for the truncating palette arithmetic.
//
// Parameters:
//   - lo: the block minimum
//   - hi: the block maximum
//
// Returns:
//   - int: the error bound in 8-bit units
func MaxQuantizationError(lo, hi uint8) int {
	if hi <= lo {
		return 0
	}
	span := int(hi) - int(lo)
	return (span+13)/14 + 1
}
