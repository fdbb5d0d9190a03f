package compressor

import (
	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/loader"
)

// CompressorBuilderOption is a functional option for configuring a Compressor via NewCompressor.
type CompressorBuilderOption func(*compressor)

// WithSize is an option builder that sets the texture size the compressor works at.
// The input texture is resized to this size on load.
//
// Parameters:
//   - width: the width in texels
//   - height: the height in texels
//
// Returns:
//   - CompressorBuilderOption: a function that applies the size option to a compressor
func WithSize(width, height uint32) CompressorBuilderOption {
	return func(c *compressor) {
		c.width = width
		c.height = height
	}
}

// WithShaderDir is an option builder that sets the directory the compute shader is read from.
//
// Parameters:
//   - dir: the shader directory
//
// Returns:
//   - CompressorBuilderOption: a function that applies the shader directory option to a compressor
func WithShaderDir(dir string) CompressorBuilderOption {
	return func(c *compressor) {
		c.shaderDir = dir
	}
}

// WithTexturePath is an option builder that sets the input texture file.
//
// Parameters:
//   - path: the image or KTX file path
//
// Returns:
//   - CompressorBuilderOption: a function that applies the texture path option to a compressor
func WithTexturePath(path string) CompressorBuilderOption {
	return func(c *compressor) {
		c.texturePath = path
	}
}

// WithSourceTexture is an option builder that supplies an already decoded input texture.
// Initialize skips loading when one is set.
//
// Parameters:
//   - tex: the decoded RGBA8 texture
//
// Returns:
//   - CompressorBuilderOption: a function that applies the source texture option to a compressor
func WithSourceTexture(tex *common.ImportedTexture) CompressorBuilderOption {
	return func(c *compressor) {
		c.source = tex
	}
}

// WithLoader is an option builder that sets the Loader used for the input texture.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - CompressorBuilderOption: a function that applies the loader option to a compressor
func WithLoader(l loader.Loader) CompressorBuilderOption {
	return func(c *compressor) {
		c.loader = l
	}
}
