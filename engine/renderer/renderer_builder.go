package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option used to configure a Renderer during construction.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode applied before the first surface configuration.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - RendererBuilderOption: a function that sets the present mode
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer requests the fallback (software) adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that sets the adapter preference
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithClearColor sets the color the main render pass clears to. Defaults to opaque black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that sets the clear color
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithRequiredFeatures adds device features to request on top of texture-compression-bc.
//
// Parameters:
//   - features: the extra features
//
// Returns:
//   - RendererBuilderOption: a function that appends the features
func WithRequiredFeatures(features ...wgpu.FeatureName) RendererBuilderOption {
	return func(r *renderer) {
		r.requiredFeatures = append(r.requiredFeatures, features...)
	}
}
