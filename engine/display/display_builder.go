package display

import (
	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

// DisplayBuilderOption is a functional option for configuring a Display via NewDisplay.
type DisplayBuilderOption func(*display)

// WithShaderDir is an option builder that sets the directory the quad shaders are read from.
//
// Parameters:
//   - dir: the shader directory
//
// Returns:
//   - DisplayBuilderOption: a function that applies the shader directory option to a display
func WithShaderDir(dir string) DisplayBuilderOption {
	return func(d *display) {
		d.shaderDir = dir
	}
}

// WithOutputSampler is an option builder that overrides the sampler used for the BC4 texture.
//
// Parameters:
//   - s: the sampler configuration
//
// Returns:
//   - DisplayBuilderOption: a function that applies the sampler option to a display
func WithOutputSampler(s common.SamplerStagingData) DisplayBuilderOption {
	return func(d *display) {
		d.outputSampler = s
	}
}

// WithInputSampler is an option builder that overrides the sampler used for the input texture.
//
// Parameters:
//   - s: the sampler configuration
//
// Returns:
//   - DisplayBuilderOption: a function that applies the sampler option to a display
func WithInputSampler(s common.SamplerStagingData) DisplayBuilderOption {
	return func(d *display) {
		d.inputSampler = s
	}
}

// WithInputRedOnly is an option builder that shows only the red channel of the input as
// grayscale, matching what the compressed output can represent.
//
// Parameters:
//   - enabled: true to replicate the input's red channel
//
// Returns:
//   - DisplayBuilderOption: a function that applies the option to a display
func WithInputRedOnly(enabled bool) DisplayBuilderOption {
	return func(d *display) {
		d.replicateInput = enabled
	}
}
