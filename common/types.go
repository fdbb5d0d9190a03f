// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
// This is primarily used in the BindGroupProvider to stage texture data before creating the GPU texture and bind group.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
	// Format overrides the GPU texture format. Zero selects RGBA8Unorm so compute stages read unconverted texel values.
	Format wgpu.TextureFormat
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// This is primarily used in the BindGroupProvider to stage sampler data before creating the GPU sampler and bind group.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// NearestClampSampler returns sampler staging data with nearest filtering and clamp-to-edge addressing.
// Used for the compressed output so individual 4x4 blocks stay visible.
//
// Returns:
//   - SamplerStagingData: the sampler configuration
func NearestClampSampler() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// LinearClampSampler returns sampler staging data with linear filtering and clamp-to-edge addressing.
//
// Returns:
//   - SamplerStagingData: the sampler configuration
func LinearClampSampler() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// ImportedTexture represents an uncompressed source image loaded from disk or memory.
// For in-memory images the Data field contains the encoded bytes. For files the Path field is set.
// After decoding, Pixels holds tightly packed RGBA8 texels.
type ImportedTexture struct {
	// Name is an identifier for this texture (usually the base file name).
	Name string

	// Path is the file path the texture was loaded from (empty for in-memory data).
	Path string

	// Data contains raw encoded image bytes for in-memory textures.
	Data []byte

	// MimeType indicates the image format (e.g., "image/png", "image/ktx").
	MimeType string

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int

	// Pixels is the decoded RGBA8 pixel data, 4 bytes per pixel in row-major order.
	Pixels []byte

	// SamplerData holds GPU sampler parameters for displaying this texture.
	// When nil, the display uses linear clamp-to-edge sampling.
	SamplerData *SamplerStagingData
}

// Decode decodes the texture to raw RGBA pixel data using the image decoders registered
// with the standard image package. Uses either embedded Data bytes or loads from Path on disk.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - []byte: raw RGBA pixel data (4 bytes per pixel, row-major order)
//   - uint32: texture width in pixels
//   - uint32: texture height in pixels
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() ([]byte, uint32, uint32, error) {
	if t == nil {
		return nil, 0, 0, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	if len(t.Data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	} else if t.Path != "" {
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return nil, 0, 0, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	} else {
		return nil, 0, 0, fmt.Errorf("texture has neither data nor path")
	}

	rgba := ToRGBA(img)
	t.Width = rgba.Rect.Dx()
	t.Height = rgba.Rect.Dy()
	t.Pixels = rgba.Pix

	return rgba.Pix, uint32(t.Width), uint32(t.Height), nil
}

// StagingData returns the decoded pixels wrapped as TextureStagingData for GPU upload.
//
// Returns:
//   - TextureStagingData: the staging data for this texture
func (t *ImportedTexture) StagingData() TextureStagingData {
	return TextureStagingData{
		Pixels: t.Pixels,
		Width:  uint32(t.Width),
		Height: uint32(t.Height),
		Format: wgpu.TextureFormatRGBA8Unorm,
	}
}

// ToRGBA converts any image into a tightly packed *image.RGBA anchored at the origin.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - *image.RGBA: a copy of img in RGBA layout with Stride == 4*width
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) && rgba.Stride == 4*bounds.Dx() {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	return rgba
}
